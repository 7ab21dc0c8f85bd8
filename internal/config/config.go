package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	EEG         EEGConfig         `yaml:"eeg"`
	Hub         HubConfig         `yaml:"hub"`
	Recommender RecommenderConfig `yaml:"recommender"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AuthToken      string   `yaml:"auth_token"`
}

type EEGConfig struct {
	// Source selects the acquisition path: "auto" tries hardware and
	// falls back to the synthetic generator, "hardware" requires a board,
	// "synthetic" always simulates.
	Source string `yaml:"source"`

	SampleRate    float64 `yaml:"sample_rate"`
	Channels      int     `yaml:"channels"`
	WindowSamples int     `yaml:"window_samples"`
}

type HubConfig struct {
	// QueueCapacity bounds each subscriber's outbound queue; beyond it
	// the oldest buffered data event is dropped for that subscriber.
	QueueCapacity int `yaml:"queue_capacity"`
}

type RecommenderConfig struct {
	Epsilon    float64  `yaml:"epsilon"`
	Alpha      float64  `yaml:"alpha"`
	Techniques []string `yaml:"techniques"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8765,
		},
		EEG: EEGConfig{
			Source:        "auto",
			SampleRate:    200,
			Channels:      4,
			WindowSamples: 256,
		},
		Hub: HubConfig{
			QueueCapacity: 64,
		},
		Recommender: RecommenderConfig{
			Epsilon:    0.2,
			Alpha:      0.3,
			Techniques: []string{"breathing", "meditation", "music"},
		},
	}
}

// Load reads the YAML config at path over the built-in defaults. A missing
// file is not an error: the defaults are returned unchanged, so the server
// runs out of the box.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.EEG.Source {
	case "auto", "hardware", "synthetic":
	default:
		return fmt.Errorf("eeg.source must be auto, hardware or synthetic, got %q", c.EEG.Source)
	}
	if c.EEG.SampleRate <= 0 {
		return fmt.Errorf("eeg.sample_rate must be positive, got %v", c.EEG.SampleRate)
	}
	if c.EEG.Channels <= 0 {
		return fmt.Errorf("eeg.channels must be positive, got %d", c.EEG.Channels)
	}
	if c.EEG.WindowSamples < 8 || c.EEG.WindowSamples%4 != 0 {
		return fmt.Errorf("eeg.window_samples must be a multiple of 4 and >= 8, got %d", c.EEG.WindowSamples)
	}
	if c.Hub.QueueCapacity <= 0 {
		return fmt.Errorf("hub.queue_capacity must be positive, got %d", c.Hub.QueueCapacity)
	}
	return nil
}
