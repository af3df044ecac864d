package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/robfig/cron/v3"

	"github.com/simp-lee/epubcover"
	"github.com/simp-lee/epubcover/shelf"
)

type ScanCmd struct {
	Dir        string `arg:"" help:"Library directory." type:"existingdir"`
	Collection string `help:"Sub-directory to scan (all for the whole tree)." default:"all" short:"c"`
}

func (c *ScanCmd) Run(rt *app) error {
	cache, closeCache, err := openCache(rt)
	if err != nil {
		return err
	}
	defer closeCache()

	s, err := newSession(rt, c.Dir, cache)
	if err != nil {
		return err
	}
	books, err := s.Load(rt.ctx, c.Collection)
	if err != nil {
		return err
	}
	return printBooks(os.Stdout, books)
}

func printBooks(w io.Writer, books []shelf.Book) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSTATUS\tTITLE")
	for _, b := range books {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Key, bookStatus(b), b.Title)
	}
	return tw.Flush()
}

func bookStatus(b shelf.Book) string {
	switch {
	case b.Cached:
		return "cached"
	case !b.Placeholder():
		return "resolved"
	case errors.Is(b.Err, shelf.ErrAttachmentUnreadable):
		return "unreadable"
	default:
		return b.Reason.String()
	}
}

type CoverCmd struct {
	File   string `arg:"" help:"ePub file." type:"existingfile"`
	Output string `help:"Write the image here instead of printing a data URI." short:"o" type:"path"`
}

func (c *CoverCmd) Run(rt *app) error {
	cover, err := epubcover.ResolveFile(c.File)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", c.File, epubcover.ReasonOf(err), err)
	}
	rt.logger.Debug("resolved cover", "file", c.File, "entry", cover.Path, "media_type", cover.MediaType, "bytes", len(cover.Data))

	if c.Output == "" {
		_, err := fmt.Fprintln(os.Stdout, cover.DataURI())
		return err
	}
	if err := os.WriteFile(c.Output, cover.Data, 0o644); err != nil {
		return fmt.Errorf("writing cover: %w", err)
	}
	rt.logger.Info("wrote cover", "path", c.Output, "media_type", cover.MediaType)
	return nil
}

type WatchCmd struct {
	Dir        string `arg:"" help:"Library directory." type:"existingdir"`
	Collection string `help:"Sub-directory to scan (all for the whole tree)." default:"all" short:"c"`
	Schedule   string `help:"Cron expression or descriptor for rescans." default:"@every 5m" env:"EPUBSHELF_SCHEDULE"`
}

func (c *WatchCmd) Run(rt *app) error {
	cache, closeCache, err := openCache(rt)
	if err != nil {
		return err
	}
	defer closeCache()

	s, err := newSession(rt, c.Dir, cache)
	if err != nil {
		return err
	}

	scan := func() {
		books, err := s.Load(rt.ctx, c.Collection)
		if err != nil {
			rt.logger.Error("scan failed", "dir", c.Dir, "error", err)
			return
		}
		cached := 0
		for _, b := range books {
			if b.Cached {
				cached++
			}
		}
		rt.logger.Info("scan complete", "dir", c.Dir, "books", len(books), "cached", cached)
	}

	sched := cron.New(cron.WithChain(watchChain(rt.logger)...))
	if _, err := sched.AddFunc(c.Schedule, scan); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}

	scan()
	sched.Start()
	rt.logger.Info("watching library", "dir", c.Dir, "schedule", c.Schedule)

	<-rt.ctx.Done()
	<-sched.Stop().Done()
	return nil
}

// watchChain skips a scheduled scan while the previous one is still running.
func watchChain(logger *slog.Logger) []cron.JobWrapper {
	cl := cronLogger{logger: logger}
	return []cron.JobWrapper{cron.Recover(cl), cron.SkipIfStillRunning(cl)}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

type PruneCmd struct{}

func (c *PruneCmd) Run(rt *app) error {
	cache, closeCache, err := openCache(rt)
	if err != nil {
		return err
	}
	defer closeCache()

	if err := cache.Flush(rt.ctx); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%d covers kept\n", cache.Len())
	return nil
}
