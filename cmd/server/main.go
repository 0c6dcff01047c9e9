package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ksavkin/SwiftLabel/internal/domain/session"
	"github.com/ksavkin/SwiftLabel/internal/infrastructure/config"
	"github.com/ksavkin/SwiftLabel/internal/infrastructure/logging"
	"github.com/ksavkin/SwiftLabel/internal/providers/filesystem"
	"github.com/ksavkin/SwiftLabel/internal/server"
)

func main() {
	dir := flag.String("dir", ".", "Working directory containing images")
	classes := flag.String("classes", "", "Comma-separated class names (e.g. cat,dog,bird)")
	host := flag.String("host", "", "Server host address")
	port := flag.String("port", "", "Server port")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Positional directory argument wins over the flag, matching
	// `swiftlabel ./images --classes cat,dog` usage.
	if flag.NArg() > 0 {
		*dir = flag.Arg(0)
	}

	root, err := filepath.Abs(*dir)
	if err != nil {
		fatalf("invalid directory: %v", err)
	}

	cfg := config.LoadOrDefault()
	if *debug {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	ws, err := config.LoadWorkspace(root)
	if err != nil {
		fatalf("workspace config: %v", err)
	}
	cfg.Apply(ws)

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *classes != "" {
		cfg.Session.Classes = splitClasses(*classes)
	}
	if len(cfg.Session.Classes) == 0 {
		fatalf("no classes specified: pass -classes or set them in %s", config.WorkspacePath(root))
	}

	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}
	defer logger.Sync()

	fs := filesystem.New(root)
	if issues := filesystem.ValidateRoot(root); len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "  - %s\n", issue)
		}
		fatalf("directory validation failed: %s", root)
	}

	engine, err := session.New(root, cfg.Session.Classes, fs, logger)
	if err != nil {
		fatalf("%v", err)
	}

	initCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := engine.Initialize(initCtx); err != nil {
		cancel()
		fatalf("failed to initialize session: %v", err)
	}
	cancel()

	// Persist the class list so the next run can omit the flag.
	if err := config.SaveWorkspace(root, &config.Workspace{Classes: cfg.Session.Classes}); err != nil {
		logger.Warn("Failed to save workspace config", zap.Error(err))
	}

	logger.Info("SwiftLabel starting",
		zap.String("directory", root),
		zap.Strings("classes", cfg.Session.Classes),
		zap.String("addr", cfg.Server.Host+":"+cfg.Server.Port))

	srv := server.New(cfg, engine, fs, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run(cfg.Server.Host + ":" + cfg.Server.Port)
	}()

	select {
	case <-sigChan:
		logger.Info("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", zap.Error(err))
		}
	case err := <-errChan:
		if err != nil {
			fatalf("server error: %v", err)
		}
	}
}

func splitClasses(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
