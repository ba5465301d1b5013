package wallsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultTable         = "wallpapers"
	DefaultResourcePath  = "rest/v1"
	DefaultBatchSize     = 100
	DefaultBatchTimeout  = 60 * time.Second
	DefaultRecordTimeout = 30 * time.Second

	// mergeDuplicates asks PostgREST to update rows that collide on the table's unique key.
	mergeDuplicates = "resolution=merge-duplicates"
	maxErrorBody    = 500
)

// Upserter submits records to the remote store.
type Upserter interface {
	Upsert(ctx context.Context, records []Record) UpsertResult
}

// UpsertConfig configures the REST upsert client. Zero values get defaults,
// except BaseURL and APIKey which are required.
type UpsertConfig struct {
	BaseURL      string
	APIKey       string
	Table        string
	ResourcePath string
	BatchSize    int
	// BatchTimeout bounds one batch request, RecordTimeout one request of the conflict fallback.
	BatchTimeout  time.Duration
	RecordTimeout time.Duration
	HTTPClient    *http.Client
	Debug         bool
}

type BatchOutcomeKind string

const (
	BatchOK       BatchOutcomeKind = "ok"
	BatchFallback BatchOutcomeKind = "conflict_fallback"
	BatchSkipped  BatchOutcomeKind = "skipped"
)

// BatchResult describes what happened to one batch.
type BatchResult struct {
	Index   int
	Size    int
	Status  int // 0 when no response was received
	Outcome BatchOutcomeKind
	// Processed counts records confirmed accepted, either by the batch request
	// or by the per-record requests of the conflict fallback.
	Processed    int
	RecordOK     int
	RecordFailed int
	Err          string
}

type UpsertResult struct {
	Total     int
	Processed int
	Batches   []BatchResult
}

// Success reports whether at least one record was accepted. Partial success counts.
func (r UpsertResult) Success() bool { return r.Processed > 0 }

func (r UpsertResult) count(kind BatchOutcomeKind) int {
	n := 0
	for _, b := range r.Batches {
		if b.Outcome == kind {
			n++
		}
	}
	return n
}

func (r UpsertResult) BatchesOK() int       { return r.count(BatchOK) }
func (r UpsertResult) BatchesFallback() int { return r.count(BatchFallback) }
func (r UpsertResult) BatchesSkipped() int  { return r.count(BatchSkipped) }

type UpsertClient struct {
	cfg      UpsertConfig
	endpoint string
	client   *http.Client
}

func NewUpsertClient(cfg UpsertConfig) (*UpsertClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("%w: base url", ErrMissingConfig)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: credential", ErrMissingConfig)
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.ResourcePath == "" {
		cfg.ResourcePath = DefaultResourcePath
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}
	if cfg.RecordTimeout <= 0 {
		cfg.RecordTimeout = DefaultRecordTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = NewHTTPClient()
	}
	return &UpsertClient{
		cfg:      cfg,
		endpoint: Endpoint(cfg.BaseURL, cfg.ResourcePath, cfg.Table),
		client:   client,
	}, nil
}

// Endpoint joins <base-url>/<resource-path>/<table>.
func Endpoint(baseURL, resourcePath, table string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.Trim(resourcePath, "/") + "/" + strings.Trim(table, "/")
}

func (c *UpsertClient) debugf(format string, args ...any) {
	if !c.cfg.Debug {
		return
	}
	log.Printf(format, args...)
}

// Upsert sends records in order, BatchSize at a time. A batch answered with
// 409 is retried one record per request; any other failure skips the batch.
func (c *UpsertClient) Upsert(ctx context.Context, records []Record) UpsertResult {
	res := UpsertResult{Total: len(records)}
	for start, idx := 0, 0; start < len(records); start, idx = start+c.cfg.BatchSize, idx+1 {
		end := start + c.cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}
		br := c.upsertBatch(ctx, idx, records[start:end])
		res.Processed += br.Processed
		res.Batches = append(res.Batches, br)
	}
	if res.Success() {
		log.Printf("upsert: accepted %d/%d records", res.Processed, res.Total)
	} else {
		log.Printf("upsert: no records accepted (%d submitted)", res.Total)
	}
	return res
}

func (c *UpsertClient) upsertBatch(ctx context.Context, idx int, batch []Record) BatchResult {
	br := BatchResult{Index: idx, Size: len(batch)}
	status, body, err := c.post(ctx, batch, c.cfg.BatchTimeout)
	br.Status = status
	switch {
	case err != nil:
		br.Outcome = BatchSkipped
		br.Err = err.Error()
		if isTimeout(err) {
			log.Printf("upsert: batch %d timed out after %s, skipping %d records", idx, c.cfg.BatchTimeout, len(batch))
		} else {
			log.Printf("upsert: batch %d request failed, skipping %d records: %v", idx, len(batch), err)
		}
	case isAccepted(status):
		br.Outcome = BatchOK
		br.Processed = len(batch)
		c.debugf("upsert: batch %d accepted %d records", idx, len(batch))
	case status == http.StatusConflict:
		br.Outcome = BatchFallback
		log.Printf("upsert: batch %d conflicted, retrying %d records one by one", idx, len(batch))
		c.upsertEach(ctx, batch, &br)
		br.Processed = br.RecordOK
	default:
		br.Outcome = BatchSkipped
		br.Err = fmt.Sprintf("http %d: %s", status, body)
		log.Printf("upsert: batch %d failed with http %d, skipping %d records; body: %s", idx, status, len(batch), body)
	}
	return br
}

func (c *UpsertClient) upsertEach(ctx context.Context, batch []Record, br *BatchResult) {
	for i := range batch {
		status, body, err := c.post(ctx, batch[i:i+1], c.cfg.RecordTimeout)
		if err == nil && isAccepted(status) {
			br.RecordOK++
			continue
		}
		br.RecordFailed++
		if err != nil {
			log.Printf("upsert: skip record hash=%q resolution=%q: %v", batch[i].Hash, batch[i].ResolutionCode, err)
			continue
		}
		log.Printf("upsert: skip record hash=%q resolution=%q: http %d: %s", batch[i].Hash, batch[i].ResolutionCode, status, body)
	}
}

// post returns the status code and, for non-accepted responses, the head of the body.
func (c *UpsertClient) post(ctx context.Context, records []Record, timeout time.Duration) (int, string, error) {
	payload, err := json.Marshal(records)
	if err != nil {
		return 0, "", fmt.Errorf("encode records: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", mergeDuplicates)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	var body string
	if !isAccepted(resp.StatusCode) {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		body = string(b)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, body, nil
}

func isAccepted(status int) bool {
	return status == http.StatusOK || status == http.StatusCreated
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
