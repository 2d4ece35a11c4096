package render

import (
	"os"
	"path/filepath"
	"strings"
	"thoughtprint/model"

	"github.com/google/uuid"
)

// FolderName is the subfolder of the documents directory that holds artifacts.
const FolderName = "ThoughtPrint"

// DerivePaths returns the output directory and a fresh base name for one
// artifact pair, creating the directory if needed.
//
// The seed (the user's prompt) is only logged by length; it never reaches
// the filename. Base names are random UUIDs so concurrent writers sharing a
// directory never collide.
func (w *Writer) DerivePaths(seed string) (dir, baseName string, err error) {
	dir = w.opts.OutputDir
	if dir == "" {
		dir = filepath.Join(DocumentsDir(), FolderName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", model.Wrap(model.KindFilesystem, err, "could not create output directory %s", dir)
	}

	baseName = NewBaseName()
	w.log.Debug().
		Int("seed_len", len(seed)).
		Str("dir", dir).
		Str("base", baseName).
		Msg("derived artifact paths")
	return dir, baseName, nil
}

// NewBaseName returns a 32 character hex identifier.
func NewBaseName() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// DocumentsDir returns the first existing directory of ~/Documents,
// $XDG_DOCUMENTS_DIR, the home directory and the working directory.
func DocumentsDir() string {
	home, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()
	return documentsDir(home, os.Getenv("XDG_DOCUMENTS_DIR"), cwd)
}

func documentsDir(home, xdgDocuments, cwd string) string {
	var candidates []string
	if home != "" {
		candidates = append(candidates, filepath.Join(home, "Documents"))
	}
	if xdgDocuments != "" {
		candidates = append(candidates, xdgDocuments)
	}
	if home != "" {
		candidates = append(candidates, home)
	}

	for _, candidate := range candidates {
		if isDir(candidate) {
			return candidate
		}
	}
	return cwd
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
