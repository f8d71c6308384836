package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	hertzserver "github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/spf13/cobra"

	"deskchat/chat"
	"deskchat/config"
	"deskchat/knowledge"
	"deskchat/logger"
	"deskchat/memory"
	"deskchat/provider"
	"deskchat/server"
	"deskchat/storage"
)

var (
	cfgFile string
	version = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "deskchat",
	Short: "Customer support chat backend with multi-provider LLM streaming",
	Long: `deskchat is the orchestration backend for a customer support chat
product. It persists sessions in SQLite, streams assistant replies from the
configured LLM provider frame by frame, and lets operators switch providers
at runtime without disturbing turns already in flight.`,
	Version: version,
	Run:     runServer,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "deskchat.toml", "path to config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runServer(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.Setup(cfg.Log); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	slog.Info("deskchat starting", "version", version, "config", cfgFile)

	hlog.SetLogger(logger.NewHertzSlogAdapter(slog.Default()))

	store, err := storage.NewSessionStore(cfg.Storage.DataDir)
	if err != nil {
		slog.Error("failed to open session store", "error", err)
		os.Exit(1)
	}

	registry, err := provider.NewRegistry(cfg)
	if err != nil {
		slog.Error("failed to initialize provider registry", "error", err)
		os.Exit(1)
	}
	active := registry.Current()
	slog.Info("provider registry ready", "provider", string(active.Type), "model", active.Model)

	var searcher memory.Searcher
	if cfg.Knowledge.Enabled && cfg.Knowledge.BaseURL != "" {
		searcher = knowledge.NewClient(cfg.Knowledge.BaseURL, cfg.Knowledge.Timeout.Std(), cfg.Knowledge.Limit)
		slog.Info("knowledge search enabled", "base_url", cfg.Knowledge.BaseURL)
	}

	window := memory.NewWindow(store, searcher, cfg.Chat.SystemPrompt, cfg.Chat.MaxTurns)

	dispatcher := chat.NewDispatcher(store, window, registry, chat.Options{
		MaxConcurrentTurns: cfg.Chat.MaxConcurrentTurns,
		TurnTimeout:        cfg.Chat.TurnTimeout.Std(),
		MaxMessageChars:    cfg.Chat.MaxMessageChars,
	})

	tester := provider.NewTester(registry, cfg.Chat.TestTimeout.Std())

	chatHandler := server.NewChatHandler(dispatcher, store)
	sessionHandler := server.NewSessionHandler(store, slog.Default())
	modelHandler := server.NewModelHandler(registry, tester, slog.Default())
	settingsHandler := server.NewSettingsHandler(window)
	healthHandler := server.NewHealthHandler(registry)

	h := hertzserver.Default(
		hertzserver.WithHostPorts(cfg.Addr()),
		hertzserver.WithReadTimeout(cfg.Server.ReadTimeout.Std()),
		hertzserver.WithWriteTimeout(cfg.Server.WriteTimeout.Std()),
	)

	server.Setup(h, chatHandler, sessionHandler, modelHandler, settingsHandler, healthHandler)

	slog.Info("server started", "address", cfg.Addr())

	go func() {
		if err := h.Run(); err != nil {
			slog.Error("server run failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := h.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	if err := store.Close(); err != nil {
		slog.Error("failed to close session store", "error", err)
	}

	slog.Info("server stopped")
}
