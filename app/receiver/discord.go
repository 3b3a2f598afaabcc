package receiver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/feedhook/feedhook/app/config"
)

// Discord message limits; truncation is a hard cutoff, not word-aware.
const (
	maxTitleLen       = 256
	maxDescriptionLen = 4096
	maxFooterLen      = 2048
	maxFieldNameLen   = 256
	maxFieldValueLen  = 1024
)

// Discord renders items into webhook payloads with optional content text and
// rich embeds, and posts them as JSON to the configured webhook URL.
type Discord struct {
	cfg        config.DiscordConfig
	overrides  []compiledOverride
	httpClient *http.Client
}

type compiledOverride struct {
	re         *regexp.Regexp
	field      string
	webhookURL string
	content    string
}

// NewDiscord creates a Discord webhook receiver. Override patterns are
// validated at config load time; any that fail to compile here are skipped.
func NewDiscord(cfg config.DiscordConfig, httpClient *http.Client) *Discord {
	overrides := make([]compiledOverride, 0, len(cfg.Overrides))
	for _, o := range cfg.Overrides {
		re, err := regexp.Compile(o.Regex)
		if err != nil {
			continue
		}
		overrides = append(overrides, compiledOverride{
			re:         re,
			field:      o.Field,
			webhookURL: o.WebhookURL,
			content:    o.Content,
		})
	}

	return &Discord{
		cfg:        cfg,
		overrides:  overrides,
		httpClient: httpClient,
	}
}

type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	URL         string              `json:"url,omitempty"`
	Image       *discordMedia       `json:"image,omitempty"`
	Thumbnail   *discordMedia       `json:"thumbnail,omitempty"`
	Footer      *discordFooter      `json:"footer,omitempty"`
	Fields      []discordEmbedField `json:"fields"`
}

type discordMedia struct {
	URL string `json:"url"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Send renders the configured templates from the item's variables and posts
// the payload. Exactly one outbound call is made per invocation.
func (d *Discord) Send(ctx context.Context, vars map[string]string) error {
	webhookURL, contentTemplate := d.applyOverrides(vars)

	var payload discordPayload

	if contentTemplate != "" {
		content, err := Render(contentTemplate, vars)
		if err != nil {
			return err
		}
		payload.Content = content
	}

	payload.Embeds = make([]discordEmbed, 0, len(d.cfg.Embeds))
	for _, embedConfig := range d.cfg.Embeds {
		embed, err := renderEmbed(embedConfig, vars)
		if err != nil {
			return err
		}
		payload.Embeds = append(payload.Embeds, embed)
	}

	return d.deliver(ctx, webhookURL, payload)
}

// applyOverrides returns the webhook URL and content template to use for
// this item. The first rule whose regex matches the named variable
// substitutes its webhook URL and/or content template.
func (d *Discord) applyOverrides(vars map[string]string) (string, string) {
	webhookURL := d.cfg.WebhookURL
	content := d.cfg.Content

	for _, o := range d.overrides {
		if !o.re.MatchString(vars[o.field]) {
			continue
		}
		if o.webhookURL != "" {
			webhookURL = o.webhookURL
		}
		if o.content != "" {
			content = o.content
		}
		break
	}

	return webhookURL, content
}

func renderEmbed(embedConfig config.DiscordEmbed, vars map[string]string) (discordEmbed, error) {
	var embed discordEmbed

	if embedConfig.Title != "" {
		title, err := Render(embedConfig.Title, vars)
		if err != nil {
			return embed, err
		}
		embed.Title = truncate(title, maxTitleLen)
	}

	if embedConfig.Description != "" {
		description, err := Render(embedConfig.Description, vars)
		if err != nil {
			return embed, err
		}
		embed.Description = truncate(description, maxDescriptionLen)
	}

	if embedConfig.URL != "" {
		url, err := Render(embedConfig.URL, vars)
		if err != nil {
			return embed, err
		}
		embed.URL = url
	}

	if embedConfig.Image != "" {
		image, err := Render(embedConfig.Image, vars)
		if err != nil {
			return embed, err
		}
		embed.Image = &discordMedia{URL: image}
	}

	if embedConfig.Thumbnail != "" {
		thumbnail, err := Render(embedConfig.Thumbnail, vars)
		if err != nil {
			return embed, err
		}
		embed.Thumbnail = &discordMedia{URL: thumbnail}
	}

	if embedConfig.Footer != "" {
		footer, err := Render(embedConfig.Footer, vars)
		if err != nil {
			return embed, err
		}
		embed.Footer = &discordFooter{Text: truncate(footer, maxFooterLen)}
	}

	embed.Fields = make([]discordEmbedField, 0, len(embedConfig.Fields))
	for _, fieldConfig := range embedConfig.Fields {
		name, err := Render(fieldConfig.Name, vars)
		if err != nil {
			return embed, err
		}
		value, err := Render(fieldConfig.Value, vars)
		if err != nil {
			return embed, err
		}
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   truncate(name, maxFieldNameLen),
			Value:  truncate(value, maxFieldValueLen),
			Inline: fieldConfig.Inline,
		})
	}

	return embed, nil
}

func (d *Discord) deliver(ctx context.Context, webhookURL string, payload discordPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &DeliveryError{URL: webhookURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{URL: webhookURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{URL: webhookURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{URL: webhookURL, StatusCode: resp.StatusCode}
	}

	return nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
