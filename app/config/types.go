package config

// Receiver kinds form a closed set; adding a kind means adding a variant
// to the receiver package, not touching the dispatch loop.
const ReceiverTypeDiscord = "discord"

// FeedConfig represents one feed's polling and notification configuration
type FeedConfig struct {
	ID        string           `yaml:"id"` // defaults to the config filename stem
	URL       string           `yaml:"url"`
	Interval  int              `yaml:"interval"` // seconds
	UserAgent string           `yaml:"user_agent"`
	Atom      bool             `yaml:"atom"` // parse as Atom instead of RSS
	GUIDRegex string           `yaml:"guid_regex"`
	Receivers []ReceiverConfig `yaml:"receivers"`
}

// ReceiverConfig selects a receiver kind and carries its settings
type ReceiverConfig struct {
	Type    string        `yaml:"type"`
	Discord DiscordConfig `yaml:"discord"`
}

// DiscordConfig describes a Discord-compatible webhook target.
// Every text field is a template; {name} placeholders are substituted
// from the item's variable map at notification time.
type DiscordConfig struct {
	WebhookURL string            `yaml:"webhook_url"`
	Content    string            `yaml:"content"`
	Embeds     []DiscordEmbed    `yaml:"embeds"`
	Overrides  []DiscordOverride `yaml:"overrides"`
}

type DiscordEmbed struct {
	Title       string              `yaml:"title"`
	Description string              `yaml:"description"`
	URL         string              `yaml:"url"`
	Image       string              `yaml:"image"`
	Thumbnail   string              `yaml:"thumbnail"`
	Footer      string              `yaml:"footer"`
	Fields      []DiscordEmbedField `yaml:"fields"`
}

type DiscordEmbedField struct {
	Name   string `yaml:"name"`
	Value  string `yaml:"value"`
	Inline bool   `yaml:"inline"`
}

// DiscordOverride redirects or rewords a notification when the regex
// matches the named item variable. The first matching rule wins.
type DiscordOverride struct {
	Regex      string `yaml:"regex"`
	Field      string `yaml:"field"`
	WebhookURL string `yaml:"webhook_url"`
	Content    string `yaml:"content"`
}
