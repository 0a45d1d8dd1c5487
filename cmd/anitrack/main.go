package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/kshimizu/anitrack/internal/api"
	"github.com/kshimizu/anitrack/internal/cache"
	"github.com/kshimizu/anitrack/internal/catalog"
	"github.com/kshimizu/anitrack/internal/config"
	"github.com/kshimizu/anitrack/internal/credstore"
	"github.com/kshimizu/anitrack/internal/guard"
	"github.com/kshimizu/anitrack/internal/log"
	"github.com/kshimizu/anitrack/internal/session"
	"github.com/kshimizu/anitrack/internal/tui"
	"github.com/kshimizu/anitrack/internal/userlist"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	// Handle version flag
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Parse()

	if showVersion {
		fmt.Printf("anitrack %s\n", Version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("anitrack requires an interactive terminal")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting anitrack", "version", Version, "server", cfg.Server.URL)

	// Credential store. Open degrades to memory-only rather than failing,
	// so a broken data directory never blocks startup.
	creds, err := credstore.Open(config.DataPath())
	if err != nil {
		logger.Warn("credential store degraded, session will not persist", "error", err)
	}
	defer creds.Close()

	// HTTP gateway
	client := api.NewClient(cfg.Server.URL, logger)

	// Session manager over the gateway and the credential store
	sess := session.NewManager(client, creds, logger)

	// The gateway pulls the bearer token from the session and reports
	// auth failures back to it. Wired after construction since each side
	// needs the other.
	client.SetTokenSource(sess.Token)
	client.SetAuthFailureHandler(sess.ForceLogout)

	// Resource cache and services
	ctx := context.Background()
	store := cache.NewStore(ctx, logger)
	catalogSvc := catalog.NewService(client, store, logger)
	userlistSvc := userlist.NewService(client, store, logger)

	// Access guard over the session state
	g := guard.New(sess.State, guard.DefaultProtectedPaths())

	// Restore the previous session before the first frame renders. The
	// TUI still starts in Bootstrapping if the server is slow; the guard
	// holds protected views until this resolves.
	go sess.Bootstrap(ctx)

	// Evict user-scoped data whenever the session identity changes.
	sess.OnChange(func(state session.State) {
		if state == session.Anonymous {
			store.InvalidateAll()
		}
	})

	model := tui.NewModel(sess, g, catalogSvc, userlistSvc, logger)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}
