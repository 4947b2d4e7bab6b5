package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"

	"github.com/petems/camtray/internal/media"
)

type Config struct {
	LogLevel     string            `json:"log_level"`
	Hotkey       string            `json:"hotkey"`
	HotkeyDarwin string            `json:"hotkey_darwin"`
	Constraints  media.Constraints `json:"constraints"`
	Audio        AudioConfig       `json:"audio"`
	Recorder     RecorderConfig    `json:"recorder"`
	Snapshot     SnapshotConfig    `json:"snapshot"`
	Waveform     WaveformConfig    `json:"waveform"`
}

type AudioConfig struct {
	DeviceID   string `json:"device_id"`
	SampleRate int    `json:"sample_rate"`
}

type RecorderConfig struct {
	MimeType string `json:"mime_type"`
	BitRate  int    `json:"bit_rate"`
	FileName string `json:"file_name"`
}

type SnapshotConfig struct {
	DownloadDir string `json:"download_dir"`
	FileName    string `json:"file_name"`
}

type WaveformConfig struct {
	Enabled bool `json:"enabled"`
	FFTSize int  `json:"fft_size"`
	Width   int  `json:"width"`
	Height  int  `json:"height"`
	FPS     int  `json:"fps"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		LogLevel:     "info",
		Hotkey:       "Alt+Space",
		HotkeyDarwin: "Ctrl+Space",
		Constraints:  media.DefaultConstraints(),
		Audio: AudioConfig{
			DeviceID:   "",
			SampleRate: 48000,
		},
		Recorder: RecorderConfig{
			MimeType: "video/webm",
			BitRate:  1_000_000,
			FileName: "recording.webm",
		},
		Snapshot: SnapshotConfig{
			DownloadDir: DownloadsPath(),
			FileName:    "snapshot.png",
		},
		Waveform: WaveformConfig{
			Enabled: true,
			FFTSize: 2048,
			Width:   64,
			Height:  22,
			FPS:     30,
		},
	}
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	return LoadFile(configPath())
}

// LoadFile overlays the JSON file at path on the defaults. A missing file is
// not an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	return c.SaveFile(configPath())
}

func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// PlatformHotkey returns the appropriate hotkey for the current platform
func (c *Config) PlatformHotkey() string {
	if runtime.GOOS == "darwin" && c.HotkeyDarwin != "" {
		return c.HotkeyDarwin
	}
	return c.Hotkey
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "camtray", "config.json")
}

// DownloadsPath returns the directory downloaded artifacts are saved to
func DownloadsPath() string {
	if xdg := os.Getenv("XDG_DOWNLOAD_DIR"); xdg != "" && runtime.GOOS == "linux" {
		return xdg
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("USERPROFILE"), "Downloads")
	}
	return filepath.Join(os.Getenv("HOME"), "Downloads")
}
