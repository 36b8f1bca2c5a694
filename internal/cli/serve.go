package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anthropics/threadline/internal/compose"
	"github.com/anthropics/threadline/internal/config"
	"github.com/anthropics/threadline/internal/ipc"
	"github.com/anthropics/threadline/internal/store"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the event ingestion and timeline HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "path to configuration JSON file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Resolve config path: --config flag > THREADLINE_CONFIG env > cwd.
	path := serveConfigPath
	if path == "" {
		path = os.Getenv("THREADLINE_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path == "" {
		return fmt.Errorf("no config found: use --config <path>, set THREADLINE_CONFIG, or place config.json in the cwd")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	eventLog, err := store.OpenDurableLog(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer eventLog.Close()

	session, err := compose.NewSession(eventLog, cfg.RootThread)
	if err != nil {
		return err
	}
	if err := session.Resume(cmd.Context()); err != nil {
		return fmt.Errorf("resume session: %w", err)
	}

	handler := &ipc.Handler{Session: session}
	srv := ipc.NewServer(handler, cfg.ListenAddr)

	// Graceful shutdown on interrupt.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("threadline listening on %s (root thread %s)", cfg.ListenAddr, cfg.RootThread)

	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
