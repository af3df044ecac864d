// Command epubshelf shows the covers of an ePub library directory, caching
// resolved covers between runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/simp-lee/epubcover/covercache"
	"github.com/simp-lee/epubcover/library"
	"github.com/simp-lee/epubcover/shelf"
)

// Globals are the flags shared by every command.
type Globals struct {
	DB         string `help:"Cover cache database path." default:"epubshelf.db" env:"EPUBSHELF_DB" type:"path"`
	LogLevel   string `help:"Log level." enum:"debug,info,warn,error" default:"info" env:"EPUBSHELF_LOG_LEVEL"`
	LogFormat  string `help:"Log format." enum:"text,json" default:"text" env:"EPUBSHELF_LOG_FORMAT"`
	ThumbWidth int    `help:"Scale covers wider than this many pixels before caching (0 keeps originals)." default:"0" env:"EPUBSHELF_THUMB_WIDTH"`
}

type CLI struct {
	Globals

	Scan  ScanCmd  `cmd:"" help:"Load every cover in a library directory."`
	Cover CoverCmd `cmd:"" help:"Resolve the cover of a single ePub."`
	Watch WatchCmd `cmd:"" help:"Rescan a library directory on a schedule."`
	Prune PruneCmd `cmd:"" help:"Drop expired entries from the cover cache."`
}

// app is passed to every command's Run method.
type app struct {
	ctx     context.Context
	logger  *slog.Logger
	globals *Globals
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("epubshelf"),
		kong.Description("Find and cache ePub cover images."),
		kong.UsageOnError(),
	)

	if err := run(kctx, &cli.Globals); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(kctx *kong.Context, g *Globals) error {
	logger, err := newLogger(g.LogLevel, g.LogFormat)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return kctx.Run(&app{ctx: ctx, logger: logger, globals: g})
}

func newLogger(logLevel, logFormat string) (*slog.Logger, error) {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", logLevel)
	}

	var handler slog.Handler
	switch logFormat {
	case "text":
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	default:
		return nil, fmt.Errorf("invalid log format: %s", logFormat)
	}
	return slog.New(handler), nil
}

// openCache opens the bolt store and loads the cover cache from it. The
// returned close function releases the store.
func openCache(rt *app) (*covercache.Cache, func(), error) {
	store, err := covercache.OpenBolt(rt.globals.DB, covercache.WithBoltLogger(rt.logger))
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			rt.logger.Warn("closing cover cache", "error", err)
		}
	}

	cache := covercache.New(store, covercache.WithLogger(rt.logger))
	if err := cache.Load(rt.ctx); err != nil {
		closeStore()
		return nil, nil, err
	}
	return cache, closeStore, nil
}

// newSession opens the library at dir and a session over it.
func newSession(rt *app, dir string, cache *covercache.Cache) (*shelf.Session, error) {
	lib, err := library.Open(dir, library.WithLogger(rt.logger))
	if err != nil {
		return nil, err
	}
	return shelf.New(lib, cache,
		shelf.WithLogger(rt.logger),
		shelf.WithThumbnailWidth(rt.globals.ThumbWidth),
	), nil
}
