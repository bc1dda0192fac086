// Package delivery downloads generated documents. Every download is preceded
// by an integrity check that picks the standard or the secure route; the
// chosen route is retried on transport failures only.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/dusk-indust/casier/internal/nomenclature"
)

// ErrEmptyPath is returned when Deliver is called without a document path.
var ErrEmptyPath = errors.New("delivery: document path is required")

// Result is a downloaded document held in memory.
type Result struct {
	Data        []byte
	Filename    string
	ContentType string
	Secure      bool
	Attempts    int
}

// session tracks one Deliver call.
type session struct {
	path       string
	attempts   int
	maxRetries int
	lastErr    error
}

// Pipeline performs deliveries. It is safe for concurrent use.
type Pipeline struct {
	http   *http.Client
	routes Routes
	retry  RetryPolicy
	names  *nomenclature.Generator
	logger *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Pipeline) { p.http = hc }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.http.Timeout = d }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(rp RetryPolicy) Option {
	return func(p *Pipeline) { p.retry = rp }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithClock sets the clock used for fallback filenames.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.names = &nomenclature.Generator{Now: now} }
}

// New returns a Pipeline talking to routes.
func New(routes Routes, opts ...Option) *Pipeline {
	p := &Pipeline{
		http:   &http.Client{Timeout: 60 * time.Second},
		routes: routes,
		retry:  DefaultRetryPolicy(),
		names:  nomenclature.NewGenerator(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Deliver downloads the document stored at docPath. client feeds the
// fallback filename when the response names no file. Nothing is written to
// durable storage.
func (p *Pipeline) Deliver(ctx context.Context, docPath string, client nomenclature.Client) (*Result, error) {
	if strings.TrimSpace(docPath) == "" {
		return nil, ErrEmptyPath
	}

	secure := !p.checkIntegrity(ctx, docPath)
	target := p.routes.DownloadURL(docPath, secure)
	s := &session{path: docPath, maxRetries: p.retry.MaxRetries}

	var res *Result
	attempts, err := p.retry.Do(ctx, func(ctx context.Context) error {
		s.attempts++
		r, err := p.fetch(ctx, target, secure)
		if err != nil {
			s.lastErr = err
			p.logger.Debug("download attempt failed",
				zap.String("path", s.path),
				zap.Int("attempt", s.attempts),
				zap.Int("maxRetries", s.maxRetries),
				zap.Error(err),
			)
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		var rejected *DeliveryRejectedError
		if errors.As(err, &rejected) {
			rejected.Secure = secure
		}
		p.logger.Warn("download failed",
			zap.String("path", docPath),
			zap.Bool("secure", secure),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return nil, err
	}

	res.Secure = secure
	res.Attempts = attempts
	if res.Filename == "" {
		res.Filename = p.fallbackFilename(docPath, client)
	}
	p.logger.Info("document delivered",
		zap.String("path", docPath),
		zap.String("filename", res.Filename),
		zap.Bool("secure", secure),
		zap.Int("bytes", len(res.Data)),
	)
	return res, nil
}

type integrityResponse struct {
	Valid bool `json:"valid"`
}

// checkIntegrity reports whether the stored document verified as intact.
// Any failure of the check itself counts as not intact.
func (p *Pipeline) checkIntegrity(ctx context.Context, docPath string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.routes.IntegrityURL(docPath), nil)
	if err != nil {
		p.logger.Warn("integrity check unavailable, using secure route", zap.Error(err))
		return false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		p.logger.Warn("integrity check unavailable, using secure route", zap.String("path", docPath), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.Warn("integrity check rejected, using secure route",
			zap.String("path", docPath), zap.Int("status", resp.StatusCode))
		return false
	}
	var ir integrityResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		p.logger.Warn("integrity check unreadable, using secure route", zap.String("path", docPath), zap.Error(err))
		return false
	}
	if !ir.Valid {
		p.logger.Info("integrity check failed, using secure route", zap.String("path", docPath))
	}
	return ir.Valid
}

// fetch performs one download attempt. Non-2xx answers are permanent.
func (p *Pipeline) fetch(ctx context.Context, target string, secure bool) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("delivery: create request: %w", err))
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("delivery: download: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("delivery: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, backoff.Permanent(&DeliveryRejectedError{
			StatusCode: resp.StatusCode,
			Message:    serverMessage(body),
			Secure:     secure,
		})
	}

	return &Result{
		Data:        body,
		Filename:    FilenameFromHeader(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func serverMessage(body []byte) string {
	var m struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}
	return m.Message
}

func (p *Pipeline) fallbackFilename(docPath string, client nomenclature.Client) string {
	seg := SegmentsFromPath(docPath)
	name := p.names.Generate(seg.Category, seg.Subcategory, seg.DocumentType, client)
	return nomenclature.WithExtension(name, strings.TrimPrefix(path.Ext(docPath), "."))
}
