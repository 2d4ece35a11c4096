// Package render turns Markdown answers into artifact pairs on disk: the
// Markdown source and a PDF produced by pandoc with the xelatex engine.
package render

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"thoughtprint/model"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultConvertTimeout = 60 * time.Second
	DefaultCheckTimeout   = 10 * time.Second
	DefaultCJKFont        = "SimSun"

	// LuaFilterName is the filter that strips remote images before typesetting.
	LuaFilterName = "no-remote-images.lua"
)

// Options configures the converter invocation. Zero fields take defaults.
type Options struct {
	// OutputDir replaces the documents-folder search when set.
	OutputDir string

	Pandoc    string
	XeLaTeX   string
	PDFEngine string
	LuaFilter string
	CJKFont   string

	ConvertTimeout time.Duration
	CheckTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.Pandoc == "" {
		o.Pandoc = "pandoc"
	}
	if o.XeLaTeX == "" {
		o.XeLaTeX = "xelatex"
	}
	if o.PDFEngine == "" {
		o.PDFEngine = "xelatex"
	}
	if o.LuaFilter == "" {
		o.LuaFilter = "." + string(filepath.Separator) + LuaFilterName
	}
	if o.CJKFont == "" {
		o.CJKFont = DefaultCJKFont
	}
	if o.ConvertTimeout <= 0 {
		o.ConvertTimeout = DefaultConvertTimeout
	}
	if o.CheckTimeout <= 0 {
		o.CheckTimeout = DefaultCheckTimeout
	}
	return o
}

// Writer writes artifact pairs. It keeps no state between calls and may be
// shared by concurrent jobs.
type Writer struct {
	opts Options
	log  zerolog.Logger
}

func NewWriter(opts Options, log zerolog.Logger) *Writer {
	return &Writer{
		opts: opts.withDefaults(),
		log:  log.With().Str("component", "render").Logger(),
	}
}

// Render writes markdown to <dir>/<baseName>.md and converts it to
// <dir>/<baseName>.pdf, returning the PDF path.
//
// The Markdown file is written before any process is started and is kept
// whatever happens afterwards. Errors are *model.Error of kind
// KindFilesystem, KindDependencyMissing, KindConversionFailed or
// KindConversionTimeout.
func (w *Writer) Render(ctx context.Context, markdown, dir, baseName string) (string, error) {
	mdPath := filepath.Join(dir, baseName+".md")
	pdfPath := filepath.Join(dir, baseName+".pdf")

	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return "", model.Wrap(model.KindFilesystem, err, "could not save Markdown file to %s", mdPath)
	}
	w.log.Info().Str("path", mdPath).Msg("markdown saved")

	if err := w.CheckDependencies(ctx); err != nil {
		return "", err
	}

	if err := w.convert(ctx, mdPath, pdfPath, baseName); err != nil {
		return "", err
	}

	w.log.Info().Str("path", pdfPath).Msg("pdf generated")
	return pdfPath, nil
}

// ConvertArgs returns the converter arguments for one artifact pair.
func (w *Writer) ConvertArgs(mdPath, pdfPath, baseName string) []string {
	return []string{
		"-s",
		"-f", "gfm",
		mdPath,
		"-o", pdfPath,
		"--pdf-engine=" + w.opts.PDFEngine,
		"--metadata=title:" + strings.ReplaceAll(baseName, "_", " "),
		"--lua-filter", w.opts.LuaFilter,
		"-V", "CJKmainfont=" + w.opts.CJKFont,
	}
}

func (w *Writer) convert(ctx context.Context, mdPath, pdfPath, baseName string) error {
	ctx, cancel := context.WithTimeout(ctx, w.opts.ConvertTimeout)
	defer cancel()

	args := w.ConvertArgs(mdPath, pdfPath, baseName)
	cmd := exec.CommandContext(ctx, w.opts.Pandoc, args...)
	cmd.WaitDelay = 2 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	w.log.Debug().Str("cmd", w.opts.Pandoc).Strs("args", args).Msg("running converter")
	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started)

	if err == nil {
		w.log.Debug().Dur("elapsed", elapsed).Msg("converter finished")
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return model.Wrap(model.KindConversionTimeout, err,
			"pandoc did not finish within %s; the document might be too large or complex", w.opts.ConvertTimeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return model.Errorf(model.KindConversionFailed,
			"pandoc execution failed (exit code %d)\nstdout: %s\nstderr: %s\nEnsure Pandoc, XeLaTeX and the %s font are installed and configured.",
			exitErr.ExitCode(), strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String()), w.opts.CJKFont)
	}
	return model.Wrap(model.KindConversionFailed, err, "could not run %s", w.opts.Pandoc)
}

// CheckDependencies verifies that pandoc resolves and that xelatex answers
// --version with a XeTeX banner.
func (w *Writer) CheckDependencies(ctx context.Context) error {
	if _, err := exec.LookPath(w.opts.Pandoc); err != nil {
		return model.Wrap(model.KindDependencyMissing, err,
			"Pandoc not found in system PATH; install it from https://pandoc.org/installing.html")
	}

	ctx, cancel := context.WithTimeout(ctx, w.opts.CheckTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, w.opts.XeLaTeX, "--version")
	cmd.WaitDelay = time.Second
	out, err := cmd.Output()
	if err != nil {
		return model.Wrap(model.KindDependencyMissing, err,
			"XeLaTeX check failed; ensure a TeX distribution (like TeX Live or MiKTeX) with xelatex is installed and in PATH")
	}
	if !bytes.Contains(out, []byte("XeTeX")) {
		return model.Errorf(model.KindDependencyMissing,
			"XeLaTeX not found or not working correctly (%s --version did not report XeTeX); install a TeX distribution with xelatex",
			w.opts.XeLaTeX)
	}
	return nil
}
