package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"nexus-chat/internal/catalog"
	"nexus-chat/internal/chat"
	"nexus-chat/internal/config"
	"nexus-chat/internal/logging"
	"nexus-chat/internal/tfidf"
	"nexus-chat/internal/tui"
)

const logFile = "nexus-tui.log"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	log, err := logging.ToFile(cfg.LogLevel, logFile)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	messages := catalog.NewStore(catalog.Default())
	if cfg.MessagesFile != "" {
		m, err := catalog.Load(cfg.MessagesFile)
		switch {
		case err == nil:
			messages.Set(m)
		case errors.Is(err, os.ErrNotExist):
			log.Info("messages file not found; using built-in copy", zap.String("path", cfg.MessagesFile))
		default:
			return fmt.Errorf("failed to load messages: %w", err)
		}
	}

	backend := tfidf.NewClient(cfg.BackendURL, nil)
	ctrl := chat.New(backend,
		chat.WithContextWindow(cfg.ContextWindow),
		chat.WithResultLimit(cfg.ResultLimit),
		chat.WithMessages(messages),
		chat.WithLogger(log),
	)
	log.Info("starting terminal client", zap.String("backend", backend.BaseURL()))

	if _, err := tea.NewProgram(tui.NewModel(ctrl), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("terminal client failed: %w", err)
	}
	return nil
}
