package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// DriveFileName is the default name of the backup document in Drive.
const DriveFileName = "money-map-data.json"

// googleClientIDPattern matches a well-formed OAuth web client ID. A
// configured value that fails this check leaves Drive sync permanently
// disabled for the session rather than failing at the first request.
var googleClientIDPattern = regexp.MustCompile(`^[0-9]+-[0-9a-z_-]+\.apps\.googleusercontent\.com$`)

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// Google Drive sync
	GoogleClientID     string
	GoogleClientSecret string
	DriveFileName      string
	OAuthRedirectPort  string

	// Household members selectable on entries (optional)
	Users []string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/moneymap.db"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		DriveFileName:      getEnv("DRIVE_FILE_NAME", DriveFileName),
		OAuthRedirectPort:  getEnv("OAUTH_REDIRECT_PORT", "8085"),

		Users: getEnvList("MONEYMAP_USERS"),
	}

	return cfg
}

// SyncEnabled reports whether a well-formed Drive client configuration
// is present. Malformed and absent client IDs both disable sync.
func (c *Config) SyncEnabled() bool {
	return googleClientIDPattern.MatchString(strings.ToLower(strings.TrimSpace(c.GoogleClientID)))
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// A malformed client ID is not a hard configuration error: the sync
	// feature degrades to disabled instead. Only an empty file name for
	// the backup document is rejected outright.
	if strings.TrimSpace(c.DriveFileName) == "" {
		errors = append(errors, "drive file name cannot be empty")
	}

	if port, err := strconv.Atoi(c.OAuthRedirectPort); err != nil {
		errors = append(errors, fmt.Sprintf("invalid OAuth redirect port '%s': must be a number", c.OAuthRedirectPort))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid OAuth redirect port %d: must be between 1 and 65535", port))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
