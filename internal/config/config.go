package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted by stt.provider
const (
	ProviderVosk       = "vosk"
	ProviderVolcengine = "volcengine"
	ProviderSenseVoice = "sensevoice"
)

// Hotkey sources accepted by hotkey.source
const (
	SourceHook     = "hook"
	SourceRegister = "register"
)

// Config represents the application configuration
type Config struct {
	Hotkey   HotkeyConfig   `yaml:"hotkey"`
	Audio    AudioConfig    `yaml:"audio"`
	STT      STTConfig      `yaml:"stt"`
	Refine   RefineConfig   `yaml:"refine"`
	Inject   InjectConfig   `yaml:"inject"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	History  HistoryConfig  `yaml:"history"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// HotkeyConfig selects the push-to-talk combination and how key events are observed
type HotkeyConfig struct {
	// Combo is a "+" separated key set, e.g. "ctrl+shift" or "ctrl+alt+space"
	Combo string `yaml:"combo"`

	// Source is "hook" (low-level keyboard hook, modifier-only combos allowed)
	// or "register" (OS registered hotkey, combo needs one non-modifier key)
	Source string `yaml:"source"`
}

// AudioConfig holds microphone capture settings
type AudioConfig struct {
	Device      string  `yaml:"device"`
	SampleRate  uint32  `yaml:"sample_rate"`
	Channels    uint32  `yaml:"channels"`
	BitDepth    uint32  `yaml:"bit_depth"`
	ChunkFrames uint32  `yaml:"chunk_frames"`
	LevelGain   float64 `yaml:"level_gain"`
	TempDir     string  `yaml:"temp_dir"`
	FileName    string  `yaml:"file_name"`
}

// STTConfig selects the speech-to-text provider
type STTConfig struct {
	Provider   string           `yaml:"provider"`
	Language   string           `yaml:"language"`
	Vosk       VoskConfig       `yaml:"vosk"`
	Volcengine VolcengineConfig `yaml:"volcengine"`
	SenseVoice SenseVoiceConfig `yaml:"sensevoice"`
}

// VoskConfig configures the local model provider
type VoskConfig struct {
	Model        string    `yaml:"model"`
	ModelsDir    string    `yaml:"models_dir"`
	AutoDownload bool      `yaml:"auto_download"`
	VAD          VADConfig `yaml:"vad"`
}

// VADConfig controls voice activity filtering in the local provider
type VADConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Threshold       float64 `yaml:"threshold"`
	HangoverMS      int     `yaml:"hangover_ms"`
	RetryWithoutVAD bool    `yaml:"retry_without_vad"`
}

// VolcengineConfig configures the cloud ASR provider
type VolcengineConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	AppKey     string        `yaml:"app_key"`
	AccessKey  string        `yaml:"access_key"`
	ResourceID string        `yaml:"resource_id"`
	ModelName  string        `yaml:"model_name"`
	UID        string        `yaml:"uid"`
	Timeout    time.Duration `yaml:"timeout"`
}

// SenseVoiceConfig configures the alternate local provider
type SenseVoiceConfig struct {
	ModelDir string `yaml:"model_dir"`
}

// RefineConfig configures the optional language-model cleanup pass
type RefineConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	Prompt      string        `yaml:"prompt"`
	Temperature float64       `yaml:"temperature"`
	NumPredict  int           `yaml:"num_predict"`
	Timeout     time.Duration `yaml:"timeout"`
}

// InjectConfig holds clipboard paste timings
type InjectConfig struct {
	SettleDelay  time.Duration `yaml:"settle_delay"`
	RestoreDelay time.Duration `yaml:"restore_delay"`
}

// PipelineConfig sizes the utterance worker pool
type PipelineConfig struct {
	Workers       int  `yaml:"workers"`
	QueueSize     int  `yaml:"queue_size"`
	SurfaceErrors bool `yaml:"surface_errors"`
}

// HistoryConfig configures the utterance history store
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	MaxRows int    `yaml:"max_rows"`
}

// ServerConfig configures the gRPC health endpoint
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LogConfig configures logging
type LogConfig struct {
	Verbose bool `yaml:"verbose"`
	JSON    bool `yaml:"json"`
}

// DefaultRefinePrompt asks the model to drop disfluencies without rewording
const DefaultRefinePrompt = "Clean up the following dictated text. Remove filler words, stutters and " +
	"repeated fragments, fix punctuation, keep the original language and meaning. " +
	"Reply with the cleaned text only.\n\nText: "

// DefaultConfig returns a configuration with default values
func DefaultConfig() Config {
	var cfg Config

	cfg.Hotkey.Combo = "ctrl+shift"
	cfg.Hotkey.Source = SourceHook

	cfg.Audio.SampleRate = 16000 // 16kHz is what every provider expects
	cfg.Audio.Channels = 1
	cfg.Audio.BitDepth = 16
	cfg.Audio.ChunkFrames = 1024
	cfg.Audio.LevelGain = 30
	cfg.Audio.TempDir = filepath.Join(os.TempDir(), "murmur")
	cfg.Audio.FileName = "output.wav"

	cfg.STT.Provider = ProviderVosk
	cfg.STT.Language = "zh"
	cfg.STT.Vosk.Model = "vosk-model-small-cn-0.22"
	cfg.STT.Vosk.ModelsDir = ""
	cfg.STT.Vosk.AutoDownload = false
	cfg.STT.Vosk.VAD.Enabled = true
	cfg.STT.Vosk.VAD.Threshold = 0.01
	cfg.STT.Vosk.VAD.HangoverMS = 300
	cfg.STT.Vosk.VAD.RetryWithoutVAD = true

	cfg.STT.Volcengine.Endpoint = "https://openspeech.bytedance.com/api/v3/auc/bigmodel/recognize/flash"
	cfg.STT.Volcengine.ResourceID = "volc.bigasr.auc_turbo"
	cfg.STT.Volcengine.ModelName = "bigmodel"
	cfg.STT.Volcengine.UID = "murmur_user"
	cfg.STT.Volcengine.Timeout = 30 * time.Second

	cfg.Refine.Enabled = false
	cfg.Refine.Endpoint = "http://localhost:11434/api/generate"
	cfg.Refine.Model = "qwen2.5:1.5b"
	cfg.Refine.Prompt = DefaultRefinePrompt
	cfg.Refine.Temperature = 0.3
	cfg.Refine.NumPredict = 100
	cfg.Refine.Timeout = 10 * time.Second

	cfg.Inject.SettleDelay = 100 * time.Millisecond
	cfg.Inject.RestoreDelay = 500 * time.Millisecond

	cfg.Pipeline.Workers = 2
	cfg.Pipeline.QueueSize = 8
	cfg.Pipeline.SurfaceErrors = true

	cfg.History.Enabled = true
	cfg.History.Path = defaultDataPath("history.db")
	cfg.History.MaxRows = 1000

	cfg.Server.Enabled = false
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 50051

	return cfg
}

// Load loads configuration from file on top of the defaults
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > $XDG_CONFIG_HOME/murmur/config.yaml > ~/.murmurrc
func LoadWithFallback(explicitPath string) (Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	for _, candidate := range searchPaths() {
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		}
	}

	// No config file found, use defaults
	cfg := DefaultConfig()
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// DefaultPath is where Save writes when no explicit path was given
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config dir: %w", err)
	}
	return filepath.Join(dir, "murmur", "config.yaml"), nil
}

func searchPaths() []string {
	var paths []string
	if p, err := DefaultPath(); err == nil {
		paths = append(paths, p)
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".murmurrc"))
	}
	return paths
}

// Save saves the configuration to a file
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// 0600: the file may carry cloud credentials
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for values no component can work with
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Hotkey.Combo) == "" {
		errs = append(errs, errors.New("hotkey.combo must not be empty"))
	}
	switch c.Hotkey.Source {
	case SourceHook, SourceRegister:
	default:
		errs = append(errs, fmt.Errorf("hotkey.source must be %q or %q, got %q", SourceHook, SourceRegister, c.Hotkey.Source))
	}

	if c.Audio.SampleRate == 0 {
		errs = append(errs, errors.New("audio.sample_rate must be positive"))
	}
	if c.Audio.Channels != 1 {
		errs = append(errs, errors.New("audio.channels must be 1 (mono)"))
	}
	if c.Audio.BitDepth != 16 {
		errs = append(errs, errors.New("audio.bit_depth must be 16"))
	}
	if c.Audio.ChunkFrames == 0 {
		errs = append(errs, errors.New("audio.chunk_frames must be positive"))
	}

	switch c.STT.Provider {
	case ProviderVosk, ProviderVolcengine, ProviderSenseVoice:
	default:
		errs = append(errs, fmt.Errorf("stt.provider %q is not one of vosk, volcengine, sensevoice", c.STT.Provider))
	}

	if c.Refine.Enabled && strings.TrimSpace(c.Refine.Endpoint) == "" {
		errs = append(errs, errors.New("refine.endpoint must be set when refine.enabled"))
	}

	if c.Pipeline.Workers <= 0 {
		errs = append(errs, errors.New("pipeline.workers must be positive"))
	}
	if c.Pipeline.QueueSize <= 0 {
		errs = append(errs, errors.New("pipeline.queue_size must be positive"))
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, errors.New("server.port must be between 1 and 65535"))
	}

	return errors.Join(errs...)
}

// ContainerPath is the well-known location the per-session WAV is written to
func (a AudioConfig) ContainerPath() string {
	return filepath.Join(a.TempDir, a.FileName)
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Hotkey.Combo, "MURMUR_HOTKEY")
	overrideString(&cfg.Hotkey.Source, "MURMUR_HOTKEY_SOURCE")
	overrideString(&cfg.Audio.Device, "MURMUR_AUDIO_DEVICE")
	overrideString(&cfg.Audio.TempDir, "MURMUR_TEMP_DIR")
	overrideString(&cfg.STT.Provider, "MURMUR_STT_PROVIDER")
	overrideString(&cfg.STT.Language, "MURMUR_STT_LANGUAGE")
	overrideString(&cfg.STT.Vosk.Model, "MURMUR_VOSK_MODEL")
	overrideString(&cfg.STT.Vosk.ModelsDir, "MURMUR_VOSK_MODELS_DIR")
	overrideBool(&cfg.STT.Vosk.VAD.Enabled, "MURMUR_VAD_ENABLED")
	overrideString(&cfg.STT.Volcengine.AppKey, "VOLC_APP_KEY")
	overrideString(&cfg.STT.Volcengine.AccessKey, "VOLC_ACCESS_KEY")
	overrideBool(&cfg.Refine.Enabled, "MURMUR_REFINE_ENABLED")
	overrideString(&cfg.Refine.Endpoint, "MURMUR_REFINE_ENDPOINT")
	overrideString(&cfg.Refine.Model, "MURMUR_REFINE_MODEL")
	overrideInt(&cfg.Pipeline.Workers, "MURMUR_WORKERS")
	overrideString(&cfg.History.Path, "MURMUR_HISTORY_PATH")
	overrideBool(&cfg.Log.Verbose, "MURMUR_VERBOSE")
	overrideBool(&cfg.Log.JSON, "MURMUR_LOG_JSON")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func defaultDataPath(name string) string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "murmur", name)
	}
	return filepath.Join(os.TempDir(), "murmur", name)
}
