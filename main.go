package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"thoughtprint/config"
	"thoughtprint/job"
	"thoughtprint/provider"
	"thoughtprint/render"
	"thoughtprint/storage"
	"thoughtprint/ui"
)

const Version = "v0.1.0"

func main() {
	configDir := config.GetConfigDir()
	if err := config.EnsureDir(configDir); err != nil {
		showStartupError("Configuration Error", err, configDir)
		os.Exit(1)
	}

	cfg, err := config.Load(configDir, config.GetDefaultDataDir())
	if err != nil {
		showStartupError("Configuration Error", err, config.GetConfigFilePath(configDir))
		os.Exit(1)
	}

	logs, err := config.NewLogger(config.LogOptions{
		Dir:     cfg.LogDir(),
		Console: cfg.Log.Console,
		Debug:   config.CheckDebug(),
	})
	if err != nil {
		showStartupError("Logging Error", err, cfg.LogDir())
		os.Exit(1)
	}
	defer logs.Close()
	log := logs.Logger

	log.Info().
		Str("version", Version).
		Str("config_dir", configDir).
		Str("data_dir", cfg.DataDir()).
		Msg("starting")
	for _, key := range cfg.UnknownKeys() {
		log.Warn().Str("key", key).Msg("ignoring unknown config key")
	}

	settings := config.NewSettingsStore(configDir, log)
	settings.Load()

	history, err := storage.NewHistory(cfg.DataDir())
	if err != nil {
		// The ledger is optional; requests still work without it.
		log.Error().Err(err).Msg("failed to open history, continuing without it")
	} else {
		defer history.Close()
	}

	gateway := provider.NewGateway(log)
	gateway.Timeout = cfg.NetworkTimeout()

	writer := render.NewWriter(render.Options{
		OutputDir:      cfg.OutputDir(),
		Pandoc:         cfg.Converter.Pandoc,
		XeLaTeX:        cfg.Converter.XeLaTeX,
		PDFEngine:      cfg.Converter.PDFEngine,
		LuaFilter:      cfg.Converter.LuaFilter,
		CJKFont:        cfg.Converter.CJKFont,
		ConvertTimeout: cfg.ConvertTimeout(),
	}, log)

	checkCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := writer.CheckDependencies(checkCtx); err != nil {
		log.Warn().Err(err).Msg("PDF conversion is not available until the dependency is installed")
	}
	cancel()

	requests := job.NewRequestOrchestrator(gateway, writer, log)
	if history != nil {
		requests.WithHistory(history)
	}
	discovery := job.NewModelDiscoveryOrchestrator(gateway, log)

	app := ui.NewApp(context.Background(), ui.Deps{
		Settings:      settings,
		Requests:      requests,
		Discovery:     discovery,
		History:       history,
		Log:           log,
		SurfaceErrors: cfg.UI.SurfaceErrors,
		Version:       Version,
	})

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Error().Err(err).Msg("ui exited with error")
		fmt.Fprintf(os.Stderr, "Error running thoughtprint: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("exiting")
}

func showStartupError(title string, err error, hint string) {
	p := tea.NewProgram(ui.NewErrorModal(title, err, hint), tea.WithAltScreen())
	if _, runErr := p.Run(); runErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", title, err)
	}
}
