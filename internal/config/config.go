package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
)

// HomeEnv overrides the default ~/.fbz base directory.
const HomeEnv = "FBZ_HOME"

// Config holds application configuration.
type Config struct {
	// MaxDocumentBytes caps the size of a document read from disk or
	// extracted from an archive. 0 disables the check.
	MaxDocumentBytes int64 `json:"max_document_bytes"`

	// CaseInsensitiveSuffixes accepts .FB2, .FBZ and .FB2.ZIP spellings.
	// Suffix matching is exact and case-sensitive by default.
	CaseInsensitiveSuffixes bool `json:"case_insensitive_suffixes,omitempty"`

	// DirectSave truncates and rewrites the destination in place instead of
	// writing a temp file and renaming it over the destination.
	// A failure mid-write then leaves a truncated document behind.
	DirectSave bool `json:"direct_save,omitempty"`

	// RecentLimit is the number of recent documents kept in the database.
	RecentLimit int `json:"recent_limit"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxDocumentBytes: 64 << 20,
		RecentLimit:      20,
		LogLevel:         "info",
	}
}

// BaseDir returns $FBZ_HOME if set, else ~/.fbz.
func BaseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(HomeEnv)); dir != "" {
		return filepath.Clean(dir), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".fbz"), nil
}

// Load loads configuration from baseDir/config.json, then applies
// baseDir/.env and FBZ_* environment overrides.
// Returns default config if neither exists.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.fbz.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}

	// Existing environment variables win over the .env file.
	if err := godotenv.Load(filepath.Join(baseDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg fields from FBZ_* environment variables.
func ApplyEnv(cfg *Config) error {
	if v, ok := lookupEnv("FBZ_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookupEnv("FBZ_MAX_DOCUMENT_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid FBZ_MAX_DOCUMENT_BYTES: %q", v)
		}
		cfg.MaxDocumentBytes = n
	}
	if v, ok := lookupEnv("FBZ_DIRECT_SAVE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid FBZ_DIRECT_SAVE: %q", v)
		}
		cfg.DirectSave = b
	}
	if v, ok := lookupEnv("FBZ_CASE_INSENSITIVE_SUFFIXES"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid FBZ_CASE_INSENSITIVE_SUFFIXES: %q", v)
		}
		cfg.CaseInsensitiveSuffixes = b
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.MaxDocumentBytes = overlay.MaxDocumentBytes
	if result.MaxDocumentBytes == 0 {
		result.MaxDocumentBytes = base.MaxDocumentBytes
	}

	result.RecentLimit = overlay.RecentLimit
	if result.RecentLimit == 0 {
		result.RecentLimit = base.RecentLimit
	}

	result.LogLevel = overlay.LogLevel
	if result.LogLevel == "" {
		result.LogLevel = base.LogLevel
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Booleans: overlay wins if true, else base
	result.CaseInsensitiveSuffixes = base.CaseInsensitiveSuffixes || overlay.CaseInsensitiveSuffixes
	result.DirectSave = base.DirectSave || overlay.DirectSave

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
