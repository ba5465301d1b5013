package wallsync

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

type RunnerConfig struct {
	// SourceDir is the archive root, laid out as <root>/<country>/<date>.json.
	SourceDir string
	Upsert    UpsertConfig
	// ErrorDir receives files that fail to read or parse. Empty leaves them in place.
	ErrorDir string
	// JournalPath enables the sqlite run journal.
	JournalPath    string
	PushgatewayURL string
	MetricsJob     string
	Debug          bool
	// DryRun transforms everything but sends nothing.
	DryRun bool
}

type Runner struct {
	cfg      RunnerConfig
	upserter Upserter
	journal  *Journal
	metrics  *Metrics
}

// RunReport summarizes one run.
type RunReport struct {
	RunID     string
	StartedAt time.Time
	EndedAt   time.Time
	SourceDir string
	DryRun    bool

	FilesFound     int
	FilesProcessed int
	FilesFailed    int
	// FilesSkipped counts .json files with no country directory above them.
	FilesSkipped     int
	RecordsGenerated int

	// DiscoverError is set when the source root could not be walked. The run
	// then continues as if it had found no files.
	DiscoverError string

	UpsertCalled bool
	Upsert       UpsertResult
}

// Success is false only when the upsert ran and accepted nothing.
func (r RunReport) Success() bool {
	return !r.UpsertCalled || r.Upsert.Success()
}

func (r RunReport) ExitCode() int {
	if r.Success() {
		return 0
	}
	return 1
}

func (r RunReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s (%s)\n", r.RunID, r.EndedAt.Sub(r.StartedAt).Truncate(time.Millisecond))
	if r.DiscoverError != "" {
		fmt.Fprintf(&b, "  discover: %s\n", r.DiscoverError)
	}
	fmt.Fprintf(&b, "  files:   %d found, %d processed, %d failed, %d skipped\n", r.FilesFound, r.FilesProcessed, r.FilesFailed, r.FilesSkipped)
	fmt.Fprintf(&b, "  records: %d generated\n", r.RecordsGenerated)
	switch {
	case r.DryRun && r.RecordsGenerated > 0:
		b.WriteString("  upsert:  dry run, nothing sent\n")
	case !r.UpsertCalled:
		b.WriteString("  upsert:  nothing to sync\n")
	default:
		fmt.Fprintf(&b, "  batches: %d ok, %d conflict fallback, %d skipped\n", r.Upsert.BatchesOK(), r.Upsert.BatchesFallback(), r.Upsert.BatchesSkipped())
		fmt.Fprintf(&b, "  upsert:  %d/%d records accepted\n", r.Upsert.Processed, r.Upsert.Total)
	}
	if r.Success() {
		b.WriteString("  result:  ok")
	} else {
		b.WriteString("  result:  FAILED")
	}
	return b.String()
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	client, err := NewUpsertClient(cfg.Upsert)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.SourceDir) == "" {
		cfg.SourceDir = DefaultSourceDir
	}
	r := &Runner{
		cfg:      cfg,
		upserter: client,
		metrics:  NewMetrics(cfg.PushgatewayURL, cfg.MetricsJob),
	}
	if strings.TrimSpace(cfg.JournalPath) != "" {
		j, err := OpenJournal(cfg.JournalPath)
		if err != nil {
			log.Printf("journal disabled: %v", err)
		} else {
			r.journal = j
		}
	}
	return r, nil
}

func (r *Runner) Close() error {
	if r == nil {
		return nil
	}
	return r.journal.Close()
}

func (r *Runner) debugf(format string, args ...any) {
	if r == nil || !r.cfg.Debug {
		return
	}
	log.Printf(format, args...)
}

// RunOnce discovers, transforms and upserts the whole archive. Problems with
// the source tree, single files or batches are logged and counted in the
// report; only the upsert outcome decides ExitCode.
func (r *Runner) RunOnce(ctx context.Context) (rep RunReport) {
	rep = RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		SourceDir: r.cfg.SourceDir,
		DryRun:    r.cfg.DryRun,
	}
	defer func() {
		rep.EndedAt = time.Now().UTC()
		r.finish(rep)
	}()

	root := r.cfg.SourceDir
	paths, err := DiscoverJSON(root)
	if err != nil {
		log.Printf("run=%s discover %s: %v; treating as empty", rep.RunID, root, err)
		rep.DiscoverError = err.Error()
		paths = nil
	}
	rep.FilesFound = len(paths)
	log.Printf("run=%s found %d json files under %s", rep.RunID, len(paths), root)
	if len(paths) == 0 {
		return rep
	}

	var records []Record
	for _, p := range paths {
		country, stem, ok := PathContext(root, p)
		if !ok {
			r.debugf("run=%s skip %s: no country directory", rep.RunID, p)
			rep.FilesSkipped++
			continue
		}
		recs, err := r.processFile(p, country, stem)
		if err != nil {
			log.Printf("run=%s skip file %s: %v", rep.RunID, p, err)
			rep.FilesFailed++
			r.quarantine(root, p)
			continue
		}
		records = append(records, recs...)
		rep.FilesProcessed++
		if rep.FilesProcessed%100 == 0 {
			log.Printf("run=%s processed %d/%d files", rep.RunID, rep.FilesProcessed, len(paths))
		}
	}
	rep.RecordsGenerated = len(records)
	log.Printf("run=%s files: %d processed, %d failed, %d skipped; %d records", rep.RunID, rep.FilesProcessed, rep.FilesFailed, rep.FilesSkipped, len(records))

	if len(records) == 0 {
		return rep
	}
	if r.cfg.DryRun {
		log.Printf("run=%s dry run: not sending %d records", rep.RunID, len(records))
		return rep
	}

	rep.UpsertCalled = true
	rep.Upsert = r.upserter.Upsert(ctx, records)
	return rep
}

func (r *Runner) processFile(path, country, stem string) ([]Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := DecodeDocument(content)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	recs := Transform(doc, country, FallbackToken(stem))
	if r.cfg.Debug {
		r.debugf("read %s: %s", path, doc)
		for _, rec := range recs {
			r.debugf("  %s/%s -> hash=%q date=%s market=%q resolution=%s %s", country, stem, rec.Hash, rec.ActualDate, rec.MarketCode, rec.ResolutionCode, ResolutionSize(rec.ResolutionCode))
		}
	}
	return recs, nil
}

func (r *Runner) quarantine(root, path string) {
	if strings.TrimSpace(r.cfg.ErrorDir) == "" {
		return
	}
	dst, err := quarantineFile(root, path, r.cfg.ErrorDir)
	if err != nil {
		log.Printf("quarantine %s: %v", path, err)
		return
	}
	r.debugf("quarantined %s -> %s", path, dst)
}

// finish records the run in the journal and metrics. Both are best-effort.
func (r *Runner) finish(rep RunReport) {
	if r.metrics != nil {
		r.metrics.ObserveRun(rep)
		if err := r.metrics.Push(); err != nil {
			log.Printf("run=%s %v", rep.RunID, err)
		}
	}
	if r.journal == nil {
		return
	}
	run, batches := journalRows(rep, r.upsertTable())
	if err := r.journal.Record(run, batches); err != nil {
		log.Printf("run=%s journal write failed: %v", rep.RunID, err)
	}
}

func (r *Runner) upsertTable() string {
	if r.cfg.Upsert.Table == "" {
		return DefaultTable
	}
	return r.cfg.Upsert.Table
}

func journalRows(rep RunReport, table string) (*SyncRun, []BatchOutcome) {
	run := &SyncRun{
		RunID:            rep.RunID,
		StartedAt:        rep.StartedAt,
		EndedAt:          rep.EndedAt,
		SourceDir:        rep.SourceDir,
		TargetTable:      table,
		DryRun:           rep.DryRun,
		FilesFound:       rep.FilesFound,
		FilesProcessed:   rep.FilesProcessed,
		FilesFailed:      rep.FilesFailed,
		FilesSkipped:     rep.FilesSkipped,
		RecordsGenerated: rep.RecordsGenerated,
		UpsertCalled:     rep.UpsertCalled,
		RecordsAccepted:  rep.Upsert.Processed,
		Success:          rep.Success(),
		LastError:        rep.DiscoverError,
	}
	batches := make([]BatchOutcome, 0, len(rep.Upsert.Batches))
	for _, b := range rep.Upsert.Batches {
		batches = append(batches, BatchOutcome{
			RunID:        rep.RunID,
			BatchIndex:   b.Index,
			Size:         b.Size,
			Status:       b.Status,
			Outcome:      string(b.Outcome),
			Processed:    b.Processed,
			RecordOK:     b.RecordOK,
			RecordFailed: b.RecordFailed,
			Error:        b.Err,
		})
	}
	return run, batches
}
