// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Synthesis SynthesisConfig
	Storage   StorageConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	// DataPath is the base directory for server state (database, audio artifacts).
	DataPath string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// DatabaseConfig holds SQLite configuration.
type DatabaseConfig struct {
	// Path is the SQLite database file (default: {data}/chapterly.db)
	Path string
}

// AuthConfig holds token verification configuration.
// Token issuance belongs to the auth service; this server only verifies.
type AuthConfig struct {
	// AccessTokenKey is the PASETO v4 symmetric key shared with the auth
	// service, hex-encoded. When empty, a local key is generated under the
	// data path for single-node development.
	AccessTokenKey string
}

// SynthesisConfig holds speech-synthesis pipeline configuration.
type SynthesisConfig struct {
	// ProviderURL is the base URL of the speech-synthesis provider.
	ProviderURL string
	// APIKey authenticates requests to the provider.
	APIKey string
	// MaleVoiceID and FemaleVoiceID map abstract voice profiles to provider voices.
	MaleVoiceID   string
	FemaleVoiceID string
	// MaxChunkChars is the request-sized chunk ceiling in characters (default: 4000).
	MaxChunkChars int
	// MaxFragmentBytes is the provider's per-fragment byte ceiling (default: 1800).
	MaxFragmentBytes int
	// ChunkTimeout bounds each per-chunk provider call (default: 45s).
	ChunkTimeout time.Duration
	// MaxConcurrent is the worker-pool size for chunk synthesis (default: 2).
	// Provider rate limits make unbounded parallelism unsafe.
	MaxConcurrent int
	// ProviderRPS and ProviderBurst feed the outbound rate limiter (default: 2 rps, burst 4).
	ProviderRPS   float64
	ProviderBurst int
}

// StorageConfig holds audio artifact storage configuration.
type StorageConfig struct {
	// AudioPath is the directory for published artifacts (default: {data}/audio).
	AudioPath string
	// PublicBaseURL prefixes published artifact references (default: /audio).
	PublicBaseURL string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for server state")
	dbPath := flag.String("db-path", "", "SQLite database file path")

	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	providerURL := flag.String("tts-url", "", "Speech-synthesis provider base URL")
	maxChunkChars := flag.String("tts-max-chunk-chars", "", "Chunk ceiling in characters (default: 4000)")
	maxFragmentBytes := flag.String("tts-max-fragment-bytes", "", "Per-fragment byte ceiling (default: 1800)")
	chunkTimeout := flag.String("tts-chunk-timeout", "", "Per-chunk synthesis timeout (default: 45s)")
	maxConcurrent := flag.String("tts-max-concurrent", "", "Max concurrent chunk synthesis calls (default: 2)")

	audioPath := flag.String("audio-path", "", "Directory for published audio artifacts")
	publicBaseURL := flag.String("audio-public-url", "", "Public base URL for audio references")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
			DataPath:    getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Path: getConfigValue(*dbPath, "DATABASE_PATH", ""),
		},
		Auth: AuthConfig{
			AccessTokenKey: getConfigValue("", "AUTH_ACCESS_TOKEN_KEY", ""),
		},
		Synthesis: SynthesisConfig{
			ProviderURL:      getConfigValue(*providerURL, "TTS_PROVIDER_URL", "https://api.elevenlabs.io"),
			APIKey:           getConfigValue("", "TTS_API_KEY", ""),
			MaleVoiceID:      getConfigValue("", "TTS_MALE_VOICE_ID", "pNInz6obpgDQGcFmaJgB"),
			FemaleVoiceID:    getConfigValue("", "TTS_FEMALE_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
			MaxChunkChars:    getIntConfigValue(*maxChunkChars, "TTS_MAX_CHUNK_CHARS", 4000),
			MaxFragmentBytes: getIntConfigValue(*maxFragmentBytes, "TTS_MAX_FRAGMENT_BYTES", 1800),
			MaxConcurrent:    getIntConfigValue(*maxConcurrent, "TTS_MAX_CONCURRENT", 2),
			ProviderRPS:      getFloatConfigValue("", "TTS_PROVIDER_RPS", 2),
			ProviderBurst:    getIntConfigValue("", "TTS_PROVIDER_BURST", 4),
		},
		Storage: StorageConfig{
			AudioPath:     getConfigValue(*audioPath, "AUDIO_PATH", ""),
			PublicBaseURL: getConfigValue(*publicBaseURL, "AUDIO_PUBLIC_URL", "/audio"),
		},
	}

	// Parse server timeouts.
	readTimeoutStr := getConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	readTimeoutDuration, err := time.ParseDuration(readTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout %q: %w", readTimeoutStr, err)
	}
	cfg.Server.ReadTimeout = readTimeoutDuration

	writeTimeoutStr := getConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	writeTimeoutDuration, err := time.ParseDuration(writeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout %q: %w", writeTimeoutStr, err)
	}
	cfg.Server.WriteTimeout = writeTimeoutDuration

	idleTimeoutStr := getConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	idleTimeoutDuration, err := time.ParseDuration(idleTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout %q: %w", idleTimeoutStr, err)
	}
	cfg.Server.IdleTimeout = idleTimeoutDuration

	chunkTimeoutStr := getConfigValue(*chunkTimeout, "TTS_CHUNK_TIMEOUT", "45s")
	chunkTimeoutDuration, err := time.ParseDuration(chunkTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid chunk timeout %q: %w", chunkTimeoutStr, err)
	}
	cfg.Synthesis.ChunkTimeout = chunkTimeoutDuration

	// Expand derived paths.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	if err := cfg.expandDatabasePath(); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}
	if err := cfg.expandAudioPath(); err != nil {
		return nil, fmt.Errorf("invalid audio path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.App.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Synthesis.MaxChunkChars <= 0 {
		return fmt.Errorf("invalid chunk ceiling: %d", c.Synthesis.MaxChunkChars)
	}
	if c.Synthesis.MaxFragmentBytes <= 0 {
		return fmt.Errorf("invalid fragment byte ceiling: %d", c.Synthesis.MaxFragmentBytes)
	}
	if c.Synthesis.MaxConcurrent < 1 {
		return fmt.Errorf("invalid synthesis worker count: %d", c.Synthesis.MaxConcurrent)
	}

	// The public URL doubles as a serving route prefix, so it must be
	// either an absolute URL or a rooted path.
	u, err := url.Parse(c.Storage.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("invalid audio public URL %q: %w", c.Storage.PublicBaseURL, err)
	}
	if !u.IsAbs() && !strings.HasPrefix(c.Storage.PublicBaseURL, "/") {
		return fmt.Errorf("invalid audio public URL %q: must be an absolute URL or start with /", c.Storage.PublicBaseURL)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Chapterly", "data")

	expanded, err := expandPath(c.App.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.App.DataPath = expanded
	return nil
}

// expandDatabasePath defaults to {data}/chapterly.db.
func (c *Config) expandDatabasePath() error {
	defaultPath := filepath.Join(c.App.DataPath, "chapterly.db")

	expanded, err := expandPath(c.Database.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Database.Path = expanded
	return nil
}

// expandAudioPath defaults to {data}/audio.
func (c *Config) expandAudioPath() error {
	defaultPath := filepath.Join(c.App.DataPath, "audio")

	expanded, err := expandPath(c.Storage.AudioPath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.AudioPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
