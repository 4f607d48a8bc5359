package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("CHAPTERLY_TEST_KEY", "from-env")

	// Flag wins over env.
	assert.Equal(t, "from-flag", getConfigValue("from-flag", "CHAPTERLY_TEST_KEY", "default"))

	// Env wins over default.
	assert.Equal(t, "from-env", getConfigValue("", "CHAPTERLY_TEST_KEY", "default"))

	// Default when nothing else is set.
	assert.Equal(t, "default", getConfigValue("", "CHAPTERLY_TEST_MISSING", "default"))
}

func TestGetIntConfigValue(t *testing.T) {
	t.Setenv("CHAPTERLY_TEST_INT", "7")
	assert.Equal(t, 7, getIntConfigValue("", "CHAPTERLY_TEST_INT", 2))

	t.Setenv("CHAPTERLY_TEST_INT", "not-a-number")
	assert.Equal(t, 2, getIntConfigValue("", "CHAPTERLY_TEST_INT", 2))

	assert.Equal(t, 2, getIntConfigValue("", "CHAPTERLY_TEST_INT_MISSING", 2))
}

func TestGetFloatConfigValue(t *testing.T) {
	t.Setenv("CHAPTERLY_TEST_FLOAT", "1.5")
	assert.InDelta(t, 1.5, getFloatConfigValue("", "CHAPTERLY_TEST_FLOAT", 2), 0.001)

	assert.InDelta(t, 2.0, getFloatConfigValue("", "CHAPTERLY_TEST_FLOAT_MISSING", 2), 0.001)
}

func TestExpandPath(t *testing.T) {
	// Empty path falls back to the default.
	got, err := expandPath("", "/srv/default")
	require.NoError(t, err)
	assert.Equal(t, "/srv/default", got)

	// Tilde expansion.
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	got, err = expandPath("~/audio", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "audio"), got)

	// Absolute paths pass through cleaned.
	got, err = expandPath("/srv//chapterly/../chapterly/data", "")
	require.NoError(t, err)
	assert.Equal(t, "/srv/chapterly/data", got)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "# comment\nCHAPTERLY_ENVFILE_A=hello\nCHAPTERLY_ENVFILE_B=\"quoted\"\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0600))

	t.Setenv("CHAPTERLY_ENVFILE_A", "")
	t.Setenv("CHAPTERLY_ENVFILE_B", "")
	os.Unsetenv("CHAPTERLY_ENVFILE_A")
	os.Unsetenv("CHAPTERLY_ENVFILE_B")

	require.NoError(t, loadEnvFile(envFile))
	assert.Equal(t, "hello", os.Getenv("CHAPTERLY_ENVFILE_A"))
	assert.Equal(t, "quoted", os.Getenv("CHAPTERLY_ENVFILE_B"))
}

func TestLoadEnvFile_EnvVarWins(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CHAPTERLY_ENVFILE_C=from-file\n"), 0600))

	t.Setenv("CHAPTERLY_ENVFILE_C", "from-env")
	require.NoError(t, loadEnvFile(envFile))
	assert.Equal(t, "from-env", os.Getenv("CHAPTERLY_ENVFILE_C"))
}

func TestValidate(t *testing.T) {
	valid := &Config{
		App:    AppConfig{Environment: "development", DataPath: "/srv/chapterly"},
		Logger: LoggerConfig{Level: "info"},
		Server: ServerConfig{Port: "8080", ReadTimeout: 15 * time.Second},
		Synthesis: SynthesisConfig{
			MaxChunkChars:    4000,
			MaxFragmentBytes: 1800,
			MaxConcurrent:    2,
		},
		Storage: StorageConfig{PublicBaseURL: "/audio"},
	}
	require.NoError(t, valid.Validate())

	badEnv := *valid
	badEnv.App.Environment = "qa"
	assert.Error(t, badEnv.Validate())

	badLevel := *valid
	badLevel.Logger.Level = "verbose"
	assert.Error(t, badLevel.Validate())

	badChunk := *valid
	badChunk.Synthesis.MaxChunkChars = 0
	assert.Error(t, badChunk.Validate())

	badWorkers := *valid
	badWorkers.Synthesis.MaxConcurrent = 0
	assert.Error(t, badWorkers.Validate())

	// An absolute public URL for published audio is allowed.
	cdnURL := *valid
	cdnURL.Storage.PublicBaseURL = "https://cdn.example.com/audio"
	assert.NoError(t, cdnURL.Validate())

	// A relative value is neither a URL nor a route prefix.
	badURL := *valid
	badURL.Storage.PublicBaseURL = "audio"
	assert.Error(t, badURL.Validate())
}
