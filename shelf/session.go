// Package shelf loads the covers of a collection of ePub items for display.
//
// A Session is the per-run object tying a Host (where items and their
// attachment bytes come from) to a covercache.Cache. Each item is served from
// the cache when fresh, otherwise its attachment is read and resolved with
// epubcover. A failing item becomes a placeholder Book and never aborts the
// rest of the batch.
package shelf

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/simp-lee/epubcover"
	"github.com/simp-lee/epubcover/covercache"
)

// ErrAttachmentUnreadable marks an item whose attachment bytes could not be read.
var ErrAttachmentUnreadable = errors.New("shelf: attachment unreadable")

// Item is one ePub attachment known to the host.
type Item struct {
	// Key identifies the item; it is also the cover cache key.
	Key string

	// Title is the display title.
	Title string

	// Path is a host-specific location, used only for logging.
	Path string
}

// Book is an Item together with its loaded cover.
type Book struct {
	Item

	// Cover is the cover as a data URI, or "" for a placeholder.
	Cover string

	// Cached reports whether Cover came from the cover cache.
	Cached bool

	// Reason is why no cover is shown, ReasonNone when Cover is set.
	Reason epubcover.Reason

	// Err is the failure behind a placeholder.
	Err error
}

// Placeholder reports whether b has no cover to show.
func (b Book) Placeholder() bool {
	return b.Cover == ""
}

// Host supplies library items and their attachment bytes.
type Host interface {
	// EPUBItems lists the ePub items in collection.
	EPUBItems(ctx context.Context, collection string) ([]Item, error)

	// ReadAttachment returns the raw ePub bytes of the item with itemKey.
	ReadAttachment(ctx context.Context, itemKey string) ([]byte, error)
}

// Session loads covers for one host and cache. It is safe for concurrent use
// when the host is.
type Session struct {
	id         string
	host       Host
	cache      *covercache.Cache
	logger     *slog.Logger
	thumbWidth int
	metrics    *Metrics
	now        func() time.Time
}

// Option configures a Session.
type Option func(*config)

type config struct {
	logger        *slog.Logger
	thumbWidth    int
	meterProvider metric.MeterProvider
}

// WithLogger sets the logger for the session.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithThumbnailWidth scales covers wider than width pixels down to width
// before caching them. Zero keeps the original image.
func WithThumbnailWidth(width int) Option {
	return func(c *config) {
		c.thumbWidth = width
	}
}

// WithMeterProvider sets the meter provider metrics are recorded on.
// Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) {
		c.meterProvider = mp
	}
}

// New returns a session reading items from host and caching covers in cache.
func New(host Host, cache *covercache.Cache, opts ...Option) *Session {
	cfg := config{
		logger:        slog.Default(),
		meterProvider: otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		id:         uuid.NewString(),
		host:       host,
		cache:      cache,
		thumbWidth: cfg.thumbWidth,
		now:        time.Now,
	}
	s.logger = cfg.logger.With("session", s.id)

	m, err := NewMetrics(cfg.meterProvider.Meter(meterName))
	if err != nil {
		s.logger.Warn("cover metrics disabled", "error", err)
	} else {
		s.metrics = m
	}
	return s
}

// ID returns the session identifier attached to its log records.
func (s *Session) ID() string {
	return s.id
}

// Load returns a Book for every ePub item in collection, in host order.
// Only a failure to list the collection or a cancelled context is returned
// as an error; per-item failures are reported on the Book.
func (s *Session) Load(ctx context.Context, collection string) ([]Book, error) {
	items, err := s.host.EPUBItems(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("listing items in %q: %w", collection, err)
	}

	start := s.now()
	books := make([]Book, 0, len(items))
	placeholders := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return books, err
		}
		b := s.Cover(ctx, item)
		if b.Placeholder() {
			placeholders++
		}
		books = append(books, b)
	}

	s.logger.Info("loaded shelf",
		"collection", collection,
		"items", len(books),
		"placeholders", placeholders,
		"duration", s.now().Sub(start),
	)
	return books, nil
}

// Cover loads the cover of a single item, consulting the cache first.
func (s *Session) Cover(ctx context.Context, item Item) Book {
	if data, ok := s.cache.Get(item.Key); ok {
		s.metrics.recordCacheHit(ctx)
		return Book{Item: item, Cover: dataURI(data), Cached: true}
	}
	s.metrics.recordCacheMiss(ctx)

	start := s.now()
	cover, err := s.resolve(ctx, item)
	elapsed := s.now().Sub(start)
	if err != nil {
		reason := epubcover.ReasonOf(err)
		outcome := reason.String()
		if errors.Is(err, ErrAttachmentUnreadable) {
			outcome = "attachment_unreadable"
		}
		s.metrics.recordResolution(ctx, outcome, elapsed)
		s.logger.Debug("no cover", "item", item.Key, "path", item.Path, "reason", outcome, "error", err)
		return Book{Item: item, Reason: reason, Err: err}
	}
	s.metrics.recordResolution(ctx, outcomeFound, elapsed)

	if thumb, ok := thumbnail(cover, s.thumbWidth); ok {
		s.logger.Debug("scaled cover", "item", item.Key, "from", len(cover.Data), "to", len(thumb.Data))
		cover = thumb
	}

	if err := s.cache.Put(ctx, item.Key, cover.Encoded()); err != nil {
		s.logger.Warn("caching cover failed", "item", item.Key, "error", err)
	}
	return Book{Item: item, Cover: cover.DataURI()}
}

// sniffLen is the base64 length of the bytes http.DetectContentType reads.
const sniffLen = 684

// dataURI turns a cached cover, bare standard base64, into a data URI. The
// media type is sniffed from the decoded bytes, defaulting to JPEG. Values
// that already are data URIs are returned as-is.
func dataURI(cached string) string {
	if strings.HasPrefix(cached, "data:") {
		return cached
	}
	head := cached[:min(len(cached), sniffLen)]
	head = head[:len(head)-len(head)%4]

	mediaType := "image/jpeg"
	if raw, err := base64.StdEncoding.DecodeString(head); err == nil {
		if mt := http.DetectContentType(raw); strings.HasPrefix(mt, "image/") {
			mediaType = mt
		}
	}
	return "data:" + mediaType + ";base64," + cached
}

func (s *Session) resolve(ctx context.Context, item Item) (epubcover.Cover, error) {
	data, err := s.host.ReadAttachment(ctx, item.Key)
	if err != nil {
		return epubcover.Cover{}, fmt.Errorf("%w: %s: %w", ErrAttachmentUnreadable, item.Key, err)
	}
	return epubcover.ResolveBytes(data)
}
