package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/frjnn/wordquizzle/internal/config"
	"github.com/frjnn/wordquizzle/internal/registration"
	"github.com/frjnn/wordquizzle/internal/server"
	"github.com/frjnn/wordquizzle/internal/store"
	"github.com/frjnn/wordquizzle/internal/words"
)

const ConfigPath = "config/wqserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, os.Args[1:]); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	// Configure slog
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))

	slog.Info("wordquizzle server starting")

	// Load config: file first, the six positional arguments on top.
	cfgPath := ConfigPath
	if p := os.Getenv("WQSERVER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err = config.FromArgs(cfg, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, config.Usage)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"tcpPort", cfg.TCPPort, "udpPort", cfg.UDPPort,
		"matchMinutes", cfg.MatchMinutes, "invitationSeconds", cfg.InvitationSeconds,
		"numWords", cfg.NumWords, "workers", cfg.Workers)

	// Open the user database
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	// Load the match dictionary
	dict, err := words.LoadDictionary(cfg.Dictionary)
	if err != nil {
		return fmt.Errorf("loading dictionary: %w", err)
	}
	slog.Info("dictionary loaded", "path", cfg.Dictionary, "words", dict.Len())

	translator := words.NewHTTPTranslator(cfg.TranslatorURL)

	srv := server.New(cfg, st, dict, translator)
	reg := registration.NewEndpoint(st, cfg.BindAddress, cfg.RegistryPort)

	// Run the request multiplexer and the registration endpoint in parallel.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Run(gctx); err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := reg.Run(gctx); err != nil {
			return fmt.Errorf("registration endpoint: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
