package wallsync

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingConfig is returned when the store base URL or credential is absent.
var ErrMissingConfig = errors.New("missing required configuration")

const (
	EnvURL            = "SUPABASE_URL"
	EnvServiceRoleKey = "SUPABASE_SERVICE_ROLE_KEY"
	EnvKey            = "SUPABASE_KEY"
	EnvTable          = "SUPABASE_TABLE_NAME"

	DefaultSourceDir = "archive"
)

type SupabaseConfig struct {
	URL          string `yaml:"url"`
	Key          string `yaml:"key"`
	Table        string `yaml:"table"`
	ResourcePath string `yaml:"resource_path"`
}

type JournalConfig struct {
	// Path of the sqlite journal. Empty disables the journal.
	Path string `yaml:"path"`
}

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

type FileConfig struct {
	Supabase SupabaseConfig `yaml:"supabase"`

	SourceDir     string        `yaml:"source_dir"`
	BatchSize     int           `yaml:"batch_size"`
	BatchTimeout  time.Duration `yaml:"batch_timeout"`
	RecordTimeout time.Duration `yaml:"record_timeout"`
	Debug         bool          `yaml:"debug"`

	// Files that cannot be read or parsed are moved here after being counted. Empty keeps them in place.
	ErrorDir string `yaml:"error_dir"`

	Journal JournalConfig `yaml:"journal"`
	Metrics MetricsConfig `yaml:"metrics"`
}

func LoadConfig(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyEnv overlays the SUPABASE_* variables onto cfg. Unset or empty variables
// leave the file value alone. The service role key wins over SUPABASE_KEY.
func ApplyEnv(cfg *FileConfig, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvURL)); v != "" {
		cfg.Supabase.URL = v
	}
	if v := strings.TrimSpace(getenv(EnvServiceRoleKey)); v != "" {
		cfg.Supabase.Key = v
	} else if v := strings.TrimSpace(getenv(EnvKey)); v != "" {
		cfg.Supabase.Key = v
	}
	if v := strings.TrimSpace(getenv(EnvTable)); v != "" {
		cfg.Supabase.Table = v
	}
}

// Validate checks the two values a run cannot start without.
func (c *FileConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Supabase.URL) == "" {
		missing = append(missing, EnvURL)
	}
	if strings.TrimSpace(c.Supabase.Key) == "" {
		missing = append(missing, EnvServiceRoleKey)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

func (c *FileConfig) TableName() string {
	if strings.TrimSpace(c.Supabase.Table) == "" {
		return DefaultTable
	}
	return c.Supabase.Table
}

func (c *FileConfig) SourceRoot() string {
	if strings.TrimSpace(c.SourceDir) == "" {
		return DefaultSourceDir
	}
	return c.SourceDir
}
