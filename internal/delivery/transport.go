package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/cnyeig/hydocpusher/internal/config"
	"github.com/cnyeig/hydocpusher/internal/pusher"
)

// StatusError reports a non-2xx HTTP status from the archive API.
// 4xx codes are permanent request defects; everything else is treated
// as downstream unavailability.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("archive API returned status %d: %s", e.Code, e.Body)
}

// Permanent reports whether the status indicates a request defect that
// retrying cannot fix.
func (e *StatusError) Permanent() bool {
	return e.Code >= 400 && e.Code < 500
}

// AppRejectionError reports a nonzero application STATUS delivered over
// an otherwise successful HTTP response. Always permanent.
type AppRejectionError struct {
	Status int
	Desc   string
}

func (e *AppRejectionError) Error() string {
	return fmt.Sprintf("archive API rejected record: STATUS=%d DESC=%q", e.Status, e.Desc)
}

// HTTPTransport pushes archive records to the downstream API over HTTP.
type HTTPTransport struct {
	client   *http.Client
	endpoint string
	cfg      config.ArchiveConfig
	logger   *zap.Logger
}

// NewHTTPTransport builds the archive transport from config.
func NewHTTPTransport(cfg config.ArchiveConfig, logger *zap.Logger) *HTTPTransport {
	return &HTTPTransport{
		client:   &http.Client{Timeout: cfg.Timeout()},
		endpoint: cfg.Endpoint,
		cfg:      cfg,
		logger:   logger,
	}
}

// Push sends one record. Outcomes are classified through typed errors:
// nil for acceptance, *StatusError for HTTP-level failures,
// *AppRejectionError for application-level rejection, and plain wrapped
// errors for network failures.
func (t *HTTPTransport) Push(ctx context.Context, record *pusher.ArchiveRecord) error {
	body := pusher.WireRequest{
		AppID:       t.cfg.AppID,
		AppToken:    t.cfg.AppToken,
		CompanyName: t.cfg.CompanyName,
		ArchiveType: t.cfg.ArchiveType,
		ArchiveData: record.WireData(),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode archive request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build archive request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "hydocpusher/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("archive request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.logger.Warn("close archive response body", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	var wire pusher.WireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return fmt.Errorf("decode archive response: %w", err)
	}
	if wire.Status != 0 {
		return &AppRejectionError{Status: wire.Status, Desc: wire.Desc}
	}

	t.logger.Debug("archive record accepted",
		zap.String("did", record.DID),
		zap.String("data_id", wire.DataID),
	)
	return nil
}
