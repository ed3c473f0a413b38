/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package source fetches card sheets and turns them into a cards.Library.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/Seednode/partydeck/games/cards"
)

var (
	ErrUnsupportedScheme = errors.New("only http and https sheet URLs are supported")
	ErrPayloadTooLarge   = errors.New("payload exceeds size limit")
)

const userAgent = "partydeck"

// Fetcher downloads sheet payloads, at most one request per interval.
type Fetcher struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	maxBytes    int64
}

func NewFetcher(timeout, interval time.Duration, maxBytes int64) *Fetcher {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rateLimiter: rate.NewLimiter(limit, 1),
		maxBytes:    maxBytes,
	}
}

// ValidateURL accepts absolute http and https URLs.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid sheet URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, raw)
	}
	return nil
}

// Result is a decoded payload plus transfer details for logging.
type Result struct {
	Payload any
	Bytes   int64
	CSV     bool
}

// Fetch downloads a sheet and decodes it as JSON, or as CSV when the body
// does not start like a JSON document.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Result, error) {
	if err := ValidateURL(rawURL); err != nil {
		return Result{}, err
	}

	if err := f.rateLimiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/csv;q=0.9, */*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return Result{}, fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, f.maxBytes)
	}

	payload, isCSV, err := decodeBody(body)
	if err != nil {
		return Result{}, err
	}

	return Result{Payload: payload, Bytes: int64(len(body)), CSV: isCSV}, nil
}

func decodeBody(body []byte) (any, bool, error) {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")), " \t\r\n")
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("%w: empty body", cards.ErrMalformedPayload)
	}

	if trimmed[0] == '{' || trimmed[0] == '[' {
		payload, err := cards.Decode(bytes.NewReader(trimmed))
		return payload, false, err
	}

	rows, err := cards.DecodeCSV(bytes.NewReader(body))
	return rows, true, err
}
