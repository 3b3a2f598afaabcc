package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and validation of feed configurations
type Loader struct {
	feedsDir string
}

// NewLoader creates a new configuration loader
func NewLoader(feedsDir string) *Loader {
	return &Loader{feedsDir: feedsDir}
}

// LoadAll loads all YAML configuration files from the feeds directory,
// one feed per file, sorted by feed id.
func (l *Loader) LoadAll() ([]*FeedConfig, error) {
	files, err := filepath.Glob(filepath.Join(l.feedsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}

	// Also check for .yml extension
	ymlFiles, err := filepath.Glob(filepath.Join(l.feedsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	configs := make([]*FeedConfig, 0, len(files))
	seen := make(map[string]string)

	for _, file := range files {
		config, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if err := l.validate(config); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", file, err)
		}

		if other, ok := seen[config.ID]; ok {
			return nil, fmt.Errorf("duplicate feed id %q in %s and %s", config.ID, other, file)
		}
		seen[config.ID] = file

		configs = append(configs, config)
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ID < configs[j].ID })

	return configs, nil
}

// loadFile loads a single YAML configuration file
func (l *Loader) loadFile(path string) (*FeedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config FeedConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.ID == "" {
		base := filepath.Base(path)
		config.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return &config, nil
}

// validate validates the configuration
func (l *Loader) validate(config *FeedConfig) error {
	if config.URL == "" {
		return fmt.Errorf("feed URL is required")
	}
	if config.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %d", config.Interval)
	}

	if config.GUIDRegex != "" {
		if _, err := regexp.Compile(config.GUIDRegex); err != nil {
			return fmt.Errorf("invalid guid_regex: %w", err)
		}
	}

	if len(config.Receivers) == 0 {
		return fmt.Errorf("at least one receiver is required")
	}

	for i, receiver := range config.Receivers {
		switch receiver.Type {
		case ReceiverTypeDiscord:
			if err := l.validateDiscord(&receiver.Discord); err != nil {
				return fmt.Errorf("invalid discord receiver at index %d: %w", i, err)
			}
		default:
			return fmt.Errorf("unknown receiver type at index %d: %q", i, receiver.Type)
		}
	}

	return nil
}

func (l *Loader) validateDiscord(config *DiscordConfig) error {
	if config.WebhookURL == "" {
		return fmt.Errorf("webhook_url is required")
	}

	for i, override := range config.Overrides {
		if override.Field == "" {
			return fmt.Errorf("override at index %d must name a field", i)
		}
		if _, err := regexp.Compile(override.Regex); err != nil {
			return fmt.Errorf("invalid override regex at index %d: %w", i, err)
		}
		if override.WebhookURL == "" && override.Content == "" {
			return fmt.Errorf("override at index %d must set webhook_url or content", i)
		}
	}

	return nil
}
