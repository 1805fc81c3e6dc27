// Package config provides the configuration structure for the story-studio service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables holding provider credentials. Credentials never live in TOML.
const (
	EnvDeepSeekAPIKey    = "DEEPSEEK_API_KEY"
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
	EnvReplicateAPIToken = "REPLICATE_API_TOKEN"
)

// Defaults applied to any zero-valued setting after loading.
const (
	DefaultListenAddr        = ":3000"
	DefaultCompletionBaseURL = "https://api.deepseek.com/v1"
	DefaultCompletionModel   = "deepseek-chat"
	DefaultFallbackBaseURL   = "https://api.openai.com/v1"
	DefaultFallbackModel     = "gpt-4o-mini"
	DefaultReplicateBaseURL  = "https://api.replicate.com/v1"
	DefaultSpeechModel       = "minimax/speech-02-turbo"
	DefaultImageModel        = "black-forest-labs/flux-schnell"
	DefaultPollIntervalMS    = 1000
	DefaultMaxWaitSeconds    = 300
	DefaultTimeoutSeconds    = 120
	DefaultFFmpegPath        = "ffmpeg"
	DefaultAudioCodec        = "libmp3lame"
	DefaultAudioBitrate      = "128k"
	DefaultOutputDir         = "output"
	DefaultTempDir           = "temp"
	DefaultLogsDir           = "logs"
	DefaultAudioBucket       = "STORY_AUDIO"
	DefaultAudioSubject      = "story.audio.created"
	DefaultTTSRequestSubject = "story.tts.requested"
)

// Validation errors.
var (
	ErrDeepSeekKeyMissing    = errors.New(EnvDeepSeekAPIKey + " is not set")
	ErrReplicateTokenMissing = errors.New(EnvReplicateAPIToken + " is not set")
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	ListenAddr     string   `toml:"listen_addr"`
	StaticDir      string   `toml:"static_dir"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// FallbackConfig describes the secondary chat-completion backend.
type FallbackConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
	APIKey  string `toml:"-"`
}

// CompletionConfig holds the chat-completion backend settings.
type CompletionConfig struct {
	BaseURL        string         `toml:"base_url"`
	Model          string         `toml:"model"`
	TimeoutSeconds int            `toml:"timeout_seconds"`
	Fallback       FallbackConfig `toml:"fallback"`
	APIKey         string         `toml:"-"`
}

// ReplicateConfig holds the inference platform settings.
type ReplicateConfig struct {
	BaseURL           string `toml:"base_url"`
	SpeechModel       string `toml:"speech_model"`
	DefaultImageModel string `toml:"default_image_model"`
	PollIntervalMS    int    `toml:"poll_interval_ms"`
	MaxWaitSeconds    int    `toml:"max_wait_seconds"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	APIToken          string `toml:"-"`
}

// MediaConfig holds the merge tool settings.
type MediaConfig struct {
	FFmpegPath string `toml:"ffmpeg_path"`
	Codec      string `toml:"codec"`
	Bitrate    string `toml:"bitrate"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	OutputDir   string `toml:"output_dir"`
	TempDir     string `toml:"temp_dir"`
	BaseLogsDir string `toml:"base_logs_dir"`
}

// NATSConfig holds the configuration for NATS. An empty URL disables archiving and the worker.
type NATSConfig struct {
	URL                      string `toml:"url"`
	AudioObjectStoreBucket   string `toml:"audio_object_store_bucket"`
	AudioChunkCreatedSubject string `toml:"audio_chunk_created_subject"`
	TTSRequestSubject        string `toml:"tts_request_subject"`
}

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Completion CompletionConfig `toml:"completion"`
	Replicate  ReplicateConfig  `toml:"replicate"`
	Media      MediaConfig      `toml:"media"`
	Paths      PathsConfig      `toml:"paths"`
	NATS       NATSConfig       `toml:"nats"`
}

// Load loads the configuration through the central configurator, then applies
// environment credentials and defaults.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyEnv(log)
	cfg.ApplyDefaults()

	return &cfg, nil
}

// LoadFile loads the configuration from a TOML file on disk.
func LoadFile(path string, log *logger.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnv(log)
	cfg.ApplyDefaults()

	return cfg, nil
}

// Parse decodes TOML bytes without touching the environment.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	err := toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv reads provider credentials from the process environment, after
// loading a .env file from the working directory when one exists.
func (c *Config) ApplyEnv(log *logger.Logger) {
	envErr := godotenv.Load()
	if envErr != nil && log != nil {
		log.Info("No .env file loaded, using process environment: %v", envErr)
	}

	c.Completion.APIKey = os.Getenv(EnvDeepSeekAPIKey)
	c.Completion.Fallback.APIKey = os.Getenv(EnvOpenAIAPIKey)
	c.Replicate.APIToken = os.Getenv(EnvReplicateAPIToken)
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	setDefault(&c.Server.ListenAddr, DefaultListenAddr)

	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}

	setDefault(&c.Completion.BaseURL, DefaultCompletionBaseURL)
	setDefault(&c.Completion.Model, DefaultCompletionModel)
	setDefault(&c.Completion.Fallback.BaseURL, DefaultFallbackBaseURL)
	setDefault(&c.Completion.Fallback.Model, DefaultFallbackModel)

	if c.Completion.TimeoutSeconds <= 0 {
		c.Completion.TimeoutSeconds = DefaultTimeoutSeconds
	}

	setDefault(&c.Replicate.BaseURL, DefaultReplicateBaseURL)
	setDefault(&c.Replicate.SpeechModel, DefaultSpeechModel)
	setDefault(&c.Replicate.DefaultImageModel, DefaultImageModel)

	if c.Replicate.PollIntervalMS <= 0 {
		c.Replicate.PollIntervalMS = DefaultPollIntervalMS
	}

	if c.Replicate.MaxWaitSeconds <= 0 {
		c.Replicate.MaxWaitSeconds = DefaultMaxWaitSeconds
	}

	if c.Replicate.TimeoutSeconds <= 0 {
		c.Replicate.TimeoutSeconds = DefaultTimeoutSeconds
	}

	setDefault(&c.Media.FFmpegPath, DefaultFFmpegPath)
	setDefault(&c.Media.Codec, DefaultAudioCodec)
	setDefault(&c.Media.Bitrate, DefaultAudioBitrate)
	setDefault(&c.Paths.OutputDir, DefaultOutputDir)
	setDefault(&c.Paths.TempDir, DefaultTempDir)
	setDefault(&c.Paths.BaseLogsDir, DefaultLogsDir)
	setDefault(&c.NATS.AudioObjectStoreBucket, DefaultAudioBucket)
	setDefault(&c.NATS.AudioChunkCreatedSubject, DefaultAudioSubject)
	setDefault(&c.NATS.TTSRequestSubject, DefaultTTSRequestSubject)
}

// Validate checks that the credentials needed to serve requests are present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Completion.APIKey) == "" {
		return ErrDeepSeekKeyMissing
	}

	if strings.TrimSpace(c.Replicate.APIToken) == "" {
		return ErrReplicateTokenMissing
	}

	return nil
}

// HasFallback reports whether a secondary completion backend is usable.
func (c *Config) HasFallback() bool {
	return strings.TrimSpace(c.Completion.Fallback.APIKey) != ""
}

// PollInterval returns the synthesis status poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Replicate.PollIntervalMS) * time.Millisecond
}

// MaxWait returns the upper bound on one prediction's total wait time.
func (c *Config) MaxWait() time.Duration {
	return time.Duration(c.Replicate.MaxWaitSeconds) * time.Second
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}
