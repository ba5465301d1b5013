package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"wallpaper-sync/wallsync"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	os.Exit(run(os.Args[1:], os.Getenv))
}

func run(args []string, getenv func(string) string) int {
	fs := flag.NewFlagSet("wallpaper-sync", flag.ContinueOnError)

	var configPath string
	var sourceDir string
	var table string
	var batchSize int
	var batchTimeout time.Duration
	var recordTimeout time.Duration
	var errorDir string
	var journalPath string
	var pushgateway string
	var debug bool
	var dryRun bool

	fs.StringVar(&configPath, "config", "", "YAML config file path (optional).")
	fs.StringVar(&sourceDir, "source-dir", wallsync.DefaultSourceDir, "Archive root laid out as <country>/<YYYYMMDD>.json.")
	fs.StringVar(&table, "table", "", "Target table (overrides SUPABASE_TABLE_NAME and config).")
	fs.IntVar(&batchSize, "batch-size", wallsync.DefaultBatchSize, "Records per upsert request.")
	fs.DurationVar(&batchTimeout, "batch-timeout", wallsync.DefaultBatchTimeout, "Timeout of one batch request.")
	fs.DurationVar(&recordTimeout, "record-timeout", wallsync.DefaultRecordTimeout, "Timeout of one request in the conflict fallback.")
	fs.StringVar(&errorDir, "error-dir", "", "Move files that fail to parse into this directory.")
	fs.StringVar(&journalPath, "journal", "", "SQLite journal path for run and batch outcomes.")
	fs.StringVar(&pushgateway, "pushgateway", "", "Prometheus Pushgateway URL for run metrics.")
	fs.BoolVar(&debug, "debug", false, "Enable debug logs.")
	fs.BoolVar(&dryRun, "dry-run", false, "Read and transform everything but send nothing.")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	visited := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		visited[f.Name] = true
	})

	cfg := &wallsync.FileConfig{}
	if configPath != "" {
		fileCfg, err := wallsync.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			return 2
		}
		cfg = fileCfg
	}
	wallsync.ApplyEnv(cfg, getenv)

	if visited["source-dir"] {
		cfg.SourceDir = sourceDir
	}
	if visited["table"] {
		cfg.Supabase.Table = table
	}
	if visited["batch-size"] || cfg.BatchSize == 0 {
		cfg.BatchSize = batchSize
	}
	if visited["batch-timeout"] || cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = batchTimeout
	}
	if visited["record-timeout"] || cfg.RecordTimeout == 0 {
		cfg.RecordTimeout = recordTimeout
	}
	if visited["error-dir"] {
		cfg.ErrorDir = errorDir
	}
	if visited["journal"] {
		cfg.Journal.Path = journalPath
	}
	if visited["pushgateway"] {
		cfg.Metrics.PushgatewayURL = pushgateway
	}
	if visited["debug"] {
		cfg.Debug = debug
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		fmt.Fprintf(os.Stderr, "set %s and %s (or %s)\n", wallsync.EnvURL, wallsync.EnvServiceRoleKey, wallsync.EnvKey)
		return 2
	}

	log.Printf("wallpaper-sync: url=%s table=%s source=%s", cfg.Supabase.URL, cfg.TableName(), cfg.SourceRoot())

	runner, err := wallsync.NewRunner(wallsync.RunnerConfig{
		SourceDir: cfg.SourceRoot(),
		Upsert: wallsync.UpsertConfig{
			BaseURL:       cfg.Supabase.URL,
			APIKey:        cfg.Supabase.Key,
			Table:         cfg.TableName(),
			ResourcePath:  cfg.Supabase.ResourcePath,
			BatchSize:     cfg.BatchSize,
			BatchTimeout:  cfg.BatchTimeout,
			RecordTimeout: cfg.RecordTimeout,
			Debug:         cfg.Debug,
		},
		ErrorDir:       cfg.ErrorDir,
		JournalPath:    cfg.Journal.Path,
		PushgatewayURL: cfg.Metrics.PushgatewayURL,
		MetricsJob:     cfg.Metrics.Job,
		Debug:          cfg.Debug,
		DryRun:         dryRun,
	})
	if err != nil {
		if errors.Is(err, wallsync.ErrMissingConfig) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		}
		log.Printf("init runner: %v", err)
		return 1
	}
	defer runner.Close()

	rep := runner.RunOnce(context.Background())
	fmt.Println(rep.Summary())
	return rep.ExitCode()
}
