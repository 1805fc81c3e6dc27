// Package config_test tests the configuration loading for the story-studio service.
package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/story-studio/internal/config"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullTOML = `
[server]
listen_addr = ":8080"
static_dir = "public"
allowed_origins = ["http://localhost:8080"]

[completion]
base_url = "https://llm.example/v1"
model = "deepseek-reasoner"
timeout_seconds = 60

[completion.fallback]
base_url = "https://backup.example/v1"
model = "gpt-4o"

[replicate]
base_url = "https://replicate.example/v1"
speech_model = "minimax/speech-02-hd"
default_image_model = "black-forest-labs/flux-dev"
poll_interval_ms = 250
max_wait_seconds = 90

[media]
ffmpeg_path = "/usr/local/bin/ffmpeg"
codec = "libmp3lame"
bitrate = "192k"

[paths]
output_dir = "/srv/output"
temp_dir = "/srv/temp"
base_logs_dir = "/srv/logs"

[nats]
url = "nats://127.0.0.1:4222"
audio_object_store_bucket = "AUDIO"
audio_chunk_created_subject = "audio.created"
tts_request_subject = "tts.requested"
`

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	var cfg config.Config

	err := toml.Unmarshal([]byte(fullTOML), &cfg)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "https://llm.example/v1", cfg.Completion.BaseURL)
	assert.Equal(t, "deepseek-reasoner", cfg.Completion.Model)
	assert.Equal(t, "gpt-4o", cfg.Completion.Fallback.Model)
	assert.Equal(t, "minimax/speech-02-hd", cfg.Replicate.SpeechModel)
	assert.Equal(t, 250, cfg.Replicate.PollIntervalMS)
	assert.Equal(t, "192k", cfg.Media.Bitrate)
	assert.Equal(t, "/srv/output", cfg.Paths.OutputDir)
	assert.Equal(t, "audio.created", cfg.NATS.AudioChunkCreatedSubject)
	assert.Empty(t, cfg.Completion.APIKey, "credentials must never come from TOML")
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte(""))
	require.NoError(t, err)

	cfg.ApplyDefaults()

	assert.Equal(t, config.DefaultListenAddr, cfg.Server.ListenAddr)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, config.DefaultCompletionModel, cfg.Completion.Model)
	assert.Equal(t, config.DefaultSpeechModel, cfg.Replicate.SpeechModel)
	assert.Equal(t, config.DefaultImageModel, cfg.Replicate.DefaultImageModel)
	assert.Equal(t, time.Second, cfg.PollInterval())
	assert.Equal(t, 300*time.Second, cfg.MaxWait())
	assert.Equal(t, "libmp3lame", cfg.Media.Codec)
	assert.Equal(t, "128k", cfg.Media.Bitrate)
	assert.Equal(t, "output", cfg.Paths.OutputDir)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte(fullTOML))
	require.NoError(t, err)

	cfg.ApplyDefaults()

	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, 90*time.Second, cfg.MaxWait())
	assert.Equal(t, "/usr/local/bin/ffmpeg", cfg.Media.FFmpegPath)
}

func TestParse_InvalidTOML(t *testing.T) {
	t.Parallel()

	_, err := config.Parse([]byte("[server\nlisten_addr ="))
	require.Error(t, err)
}

func TestLoadFile_AppliesEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.toml")
	require.NoError(t, os.WriteFile(path, []byte(fullTOML), 0o600))

	t.Setenv(config.EnvDeepSeekAPIKey, "ds-key")
	t.Setenv(config.EnvReplicateAPIToken, "r8-token")
	t.Setenv(config.EnvOpenAIAPIKey, "")

	cfg, err := config.LoadFile(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "ds-key", cfg.Completion.APIKey)
	assert.Equal(t, "r8-token", cfg.Replicate.APIToken)
	assert.False(t, cfg.HasFallback())
	require.NoError(t, cfg.Validate())
}

func TestValidate_MissingCredentials(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	require.ErrorIs(t, cfg.Validate(), config.ErrDeepSeekKeyMissing)

	cfg.Completion.APIKey = "ds-key"
	require.ErrorIs(t, cfg.Validate(), config.ErrReplicateTokenMissing)
}
