// Package logsink mirrors slog records as JSON lines into an Azure append blob so runs on
// ephemeral CI agents leave a durable log behind.
package logsink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/appendblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// flushBytes stays well under the 4 MiB append block limit.
const flushBytes = 1 << 20

var errClosed = errors.New("log sink closed")

type Config struct {
	AccountName string
	AccountKey  string
	Container   string
	BlobName    string        // e.g. "importstores/2026/10/19/host.jsonl"
	Tool        string        // names the default blob when BlobName is empty
	FlushEvery  time.Duration // default 2s
	Level       slog.Leveler
}

type appender interface {
	AppendBlock(ctx context.Context, body io.ReadSeekCloser, o *appendblob.AppendBlockOptions) (appendblob.AppendBlockResponse, error)
}

type sink struct {
	ab     appender
	ch     chan []byte
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	ticker *time.Ticker
}

// Handler is a slog.Handler writing to the append blob.
type Handler struct {
	s     *sink
	level slog.Leveler
	attrs []slog.Attr
}

func New(ctx context.Context, cfg Config) (*Handler, error) {
	if cfg.AccountName == "" || cfg.Container == "" {
		return nil, errors.New("AccountName and Container are required")
	}

	if cfg.BlobName == "" {
		host, _ := os.Hostname()
		cfg.BlobName = DefaultBlobName(cfg.Tool, host, time.Now())
	}

	blobURL := "https://" + cfg.AccountName + ".blob.core.windows.net/" +
		url.PathEscape(cfg.Container) + "/" + cfg.BlobName // BlobName may include slashes; don’t path-escape it.

	var ab *appendblob.Client
	if cfg.AccountKey != "" {
		cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err != nil {
			return nil, err
		}
		if ab, err = appendblob.NewClientWithSharedKeyCredential(blobURL, cred, nil); err != nil {
			return nil, err
		}
	} else {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, err
		}
		if ab, err = appendblob.NewClient(blobURL, cred, nil); err != nil {
			return nil, err
		}
	}
	if err := createIfMissing(ctx, ab); err != nil {
		return nil, err
	}

	return newHandler(ab, cfg.FlushEvery, cfg.Level), nil
}

// createIfMissing creates the append blob unless it already exists. A plain Put Blob would
// truncate the earlier runs sharing the day's blob.
func createIfMissing(ctx context.Context, ab *appendblob.Client) error {
	_, err := ab.Create(ctx, &appendblob.CreateOptions{
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: to.Ptr(azcore.ETagAny)},
		},
	})
	if err != nil && !bloberror.HasCode(err, bloberror.BlobAlreadyExists) {
		return err
	}
	return nil
}

func newHandler(ab appender, flushEvery time.Duration, level slog.Leveler) *Handler {
	if flushEvery <= 0 {
		flushEvery = 2 * time.Second
	}
	if level == nil {
		level = slog.LevelInfo
	}
	s := &sink{
		ab:     ab,
		ch:     make(chan []byte, 1024),
		done:   make(chan struct{}),
		ticker: time.NewTicker(flushEvery),
	}
	s.wg.Add(1)
	go s.loop()
	return &Handler{s: s, level: level}
}

// Close flushes buffered lines. Records handled after Close are rejected.
func (h *Handler) Close() error {
	h.s.once.Do(func() {
		close(h.s.done)
	})
	h.s.wg.Wait()
	h.s.ticker.Stop()
	return nil
}

// slog.Handler

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	line, err := encodeRecord(r, h.attrs)
	if err != nil {
		return err
	}

	select {
	case <-h.s.done:
		return errClosed
	default:
	}
	select {
	case h.s.ch <- line:
		return nil
	case <-h.s.done:
		return errClosed
	}
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &Handler{s: h.s, level: h.level, attrs: merged}
}

func (h *Handler) WithGroup(string) slog.Handler { return h } // groups are flattened

func encodeRecord(r slog.Record, extra []slog.Attr) ([]byte, error) {
	ev := make(map[string]any, r.NumAttrs()+len(extra)+3)
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	ev["ts"] = ts.UTC().Format(time.RFC3339Nano)
	ev["level"] = r.Level.String()
	ev["msg"] = r.Message

	add := func(a slog.Attr) bool {
		a.Value = a.Value.Resolve()
		if a.Value.Kind() == slog.KindGroup {
			m := map[string]any{}
			//only goes one level deep
			for _, aa := range a.Value.Group() {
				aa.Value = aa.Value.Resolve()
				m[aa.Key] = attrValue(aa.Value)
			}
			ev[a.Key] = m
		} else {
			ev[a.Key] = attrValue(a.Value)
		}
		return true
	}
	for _, a := range extra {
		add(a)
	}
	r.Attrs(add)

	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ev); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// attrValue keeps errors readable; json would encode most error types as {}.
func attrValue(v slog.Value) any {
	if err, ok := v.Any().(error); ok {
		return err.Error()
	}
	return v.Any()
}

// internals

func (s *sink) loop() {
	defer s.wg.Done()
	var buf []byte
	flush := func() {
		if len(buf) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, _ = s.ab.AppendBlock(ctx, readSeekNopCloser{bytes.NewReader(buf)}, nil)
		buf = nil
	}

	for {
		select {
		case line := <-s.ch:
			buf = append(buf, line...)
			if len(buf) >= flushBytes {
				flush()
			}
		case <-s.ticker.C:
			flush()
		case <-s.done:
			for {
				select {
				case line := <-s.ch:
					buf = append(buf, line...)
				default:
					flush()
					return
				}
			}
		}
	}
}

type readSeekNopCloser struct{ io.ReadSeeker }

func (r readSeekNopCloser) Close() error { return nil }
