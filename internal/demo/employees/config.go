package employees

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

type LookupFunc func(string) (string, bool)

type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

type Config struct {
	OutPath     string
	// Format is inferred from the OutPath extension when empty.
	Format      Format
	TargetBytes int64
	// Rows applies to Parquet output, whose size is not predictable up front.
	Rows        int64
	Seed        int64
	FlushBytes  int
}

func DefaultConfig() Config {
	return Config{
		OutPath:     "employees_1gb.csv",
		TargetBytes: 1 << 30,
		Rows:        1_000_000,
		Seed:        42,
		FlushBytes:  DefaultFlushBytes,
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	if raw, ok := lookup("DUCKCSV_GEN_OUT"); ok && strings.TrimSpace(raw) != "" {
		cfg.OutPath = strings.TrimSpace(raw)
	}
	if raw, ok := lookup("DUCKCSV_GEN_FORMAT"); ok && strings.TrimSpace(raw) != "" {
		cfg.Format = Format(strings.ToLower(strings.TrimSpace(raw)))
	}
	if err := applyInt64(lookup, "DUCKCSV_GEN_BYTES", &cfg.TargetBytes); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "DUCKCSV_GEN_ROWS", &cfg.Rows); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "DUCKCSV_GEN_SEED", &cfg.Seed); err != nil {
		return Config{}, err
	}
	flush := int64(cfg.FlushBytes)
	if err := applyInt64(lookup, "DUCKCSV_GEN_FLUSH_BYTES", &flush); err != nil {
		return Config{}, err
	}
	cfg.FlushBytes = int(flush)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg and infers a Parquet format from a .parquet path.
func (c *Config) Validate() error {
	c.OutPath = strings.TrimSpace(c.OutPath)
	if c.OutPath == "" {
		return fmt.Errorf("output path is required")
	}
	if c.Format == "" {
		c.Format = FormatCSV
		if strings.EqualFold(filepath.Ext(c.OutPath), ".parquet") {
			c.Format = FormatParquet
		}
	}
	switch c.Format {
	case FormatCSV:
		if c.TargetBytes <= 0 {
			return fmt.Errorf("target bytes must be > 0")
		}
	case FormatParquet:
		if c.Rows <= 0 {
			return fmt.Errorf("rows must be > 0")
		}
	default:
		return fmt.Errorf("unsupported format %q", c.Format)
	}
	if c.FlushBytes <= 0 {
		return fmt.Errorf("flush bytes must be > 0")
	}
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}
