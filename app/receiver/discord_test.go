package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/feedhook/feedhook/app/config"
)

type capturedRequest struct {
	Path    string
	Payload map[string]any
}

type webhookRecorder struct {
	mu       sync.Mutex
	status   int
	requests []capturedRequest
}

func (w *webhookRecorder) handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}

		w.mu.Lock()
		w.requests = append(w.requests, capturedRequest{Path: r.URL.Path, Payload: payload})
		status := w.status
		w.mu.Unlock()

		if status != 0 {
			rw.WriteHeader(status)
			return
		}
		rw.WriteHeader(http.StatusNoContent)
	}
}

func (w *webhookRecorder) captured(t *testing.T) []capturedRequest {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]capturedRequest(nil), w.requests...)
}

func firstEmbed(t *testing.T, payload map[string]any) map[string]any {
	t.Helper()
	embeds, ok := payload["embeds"].([]any)
	if !ok || len(embeds) == 0 {
		t.Fatalf("Expected at least one embed, got %v", payload["embeds"])
	}
	embed, ok := embeds[0].(map[string]any)
	if !ok {
		t.Fatalf("Unexpected embed shape: %v", embeds[0])
	}
	return embed
}

func TestDiscordSendBuildsPayload(t *testing.T) {
	recorder := &webhookRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	discord := NewDiscord(config.DiscordConfig{
		WebhookURL: server.URL + "/hook",
		Content:    "New post: {title}",
		Embeds: []config.DiscordEmbed{{
			Title:       "{title}",
			Description: "{description}",
			URL:         "{link}",
			Image:       "{image_url}",
			Thumbnail:   "{thumb_url}",
			Footer:      "filed under {categories}",
			Fields: []config.DiscordEmbedField{
				{Name: "Author", Value: "{author}", Inline: true},
			},
		}},
	}, server.Client())

	vars := map[string]string{
		"title":       "Hello",
		"description": "World",
		"link":        "http://example.com/42",
		"image_url":   "http://example.com/image.png",
		"thumb_url":   "http://example.com/thumb.png",
		"categories":  "tech, news",
		"author":      "Alice",
	}

	if err := discord.Send(context.Background(), vars); err != nil {
		t.Fatal(err)
	}

	requests := recorder.captured(t)
	if len(requests) != 1 {
		t.Fatalf("Expected exactly 1 webhook call, got %d", len(requests))
	}

	payload := requests[0].Payload
	if payload["content"] != "New post: Hello" {
		t.Errorf("Unexpected content: %v", payload["content"])
	}

	embed := firstEmbed(t, payload)
	if embed["title"] != "Hello" {
		t.Errorf("Unexpected embed title: %v", embed["title"])
	}
	if embed["description"] != "World" {
		t.Errorf("Unexpected embed description: %v", embed["description"])
	}
	if embed["url"] != "http://example.com/42" {
		t.Errorf("Unexpected embed url: %v", embed["url"])
	}

	image, _ := embed["image"].(map[string]any)
	if image["url"] != "http://example.com/image.png" {
		t.Errorf("Unexpected image: %v", embed["image"])
	}
	thumbnail, _ := embed["thumbnail"].(map[string]any)
	if thumbnail["url"] != "http://example.com/thumb.png" {
		t.Errorf("Unexpected thumbnail: %v", embed["thumbnail"])
	}
	footer, _ := embed["footer"].(map[string]any)
	if footer["text"] != "filed under tech, news" {
		t.Errorf("Unexpected footer: %v", embed["footer"])
	}

	fields, _ := embed["fields"].([]any)
	if len(fields) != 1 {
		t.Fatalf("Expected 1 field, got %d", len(fields))
	}
	field, _ := fields[0].(map[string]any)
	if field["name"] != "Author" || field["value"] != "Alice" || field["inline"] != true {
		t.Errorf("Unexpected field: %v", field)
	}
}

func TestDiscordTruncation(t *testing.T) {
	recorder := &webhookRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	discord := NewDiscord(config.DiscordConfig{
		WebhookURL: server.URL,
		Embeds: []config.DiscordEmbed{{
			Title:       "{title}",
			Description: "{description}",
			Footer:      "{footer}",
			Fields: []config.DiscordEmbedField{
				{Name: "{name}", Value: "{value}"},
			},
		}},
	}, server.Client())

	vars := map[string]string{
		"title":       strings.Repeat("t", 300),
		"description": strings.Repeat("d", 5000),
		"footer":      strings.Repeat("f", 3000),
		"name":        strings.Repeat("n", 300),
		"value":       strings.Repeat("v", 2000),
	}

	if err := discord.Send(context.Background(), vars); err != nil {
		t.Fatal(err)
	}

	requests := recorder.captured(t)
	if len(requests) != 1 {
		t.Fatalf("Expected 1 webhook call, got %d", len(requests))
	}

	embed := firstEmbed(t, requests[0].Payload)
	if got := len(embed["title"].(string)); got != 256 {
		t.Errorf("Expected title truncated to 256 characters, got %d", got)
	}
	if got := len(embed["description"].(string)); got != 4096 {
		t.Errorf("Expected description truncated to 4096 characters, got %d", got)
	}
	footer, _ := embed["footer"].(map[string]any)
	if got := len(footer["text"].(string)); got != 2048 {
		t.Errorf("Expected footer truncated to 2048 characters, got %d", got)
	}

	fields, _ := embed["fields"].([]any)
	field, _ := fields[0].(map[string]any)
	if got := len(field["name"].(string)); got != 256 {
		t.Errorf("Expected field name truncated to 256 characters, got %d", got)
	}
	if got := len(field["value"].(string)); got != 1024 {
		t.Errorf("Expected field value truncated to 1024 characters, got %d", got)
	}
}

func TestDiscordMissingVariableFailsBeforeDelivery(t *testing.T) {
	recorder := &webhookRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	discord := NewDiscord(config.DiscordConfig{
		WebhookURL: server.URL,
		Content:    "{missing}",
	}, server.Client())

	err := discord.Send(context.Background(), map[string]string{"title": "Hello"})
	if err == nil {
		t.Fatal("Expected render error")
	}

	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("Expected RenderError, got %T", err)
	}
	if len(recorder.captured(t)) != 0 {
		t.Error("No webhook call must be made when rendering fails")
	}
}

func TestDiscordDeliveryErrorOnRejectedStatus(t *testing.T) {
	recorder := &webhookRecorder{status: http.StatusInternalServerError}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	discord := NewDiscord(config.DiscordConfig{
		WebhookURL: server.URL,
		Content:    "{title}",
	}, server.Client())

	err := discord.Send(context.Background(), map[string]string{"title": "Hello"})
	if err == nil {
		t.Fatal("Expected delivery error")
	}

	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("Expected DeliveryError, got %T", err)
	}
	if deliveryErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", deliveryErr.StatusCode)
	}
}

func TestDiscordOverrideRedirectsWebhook(t *testing.T) {
	recorder := &webhookRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	discord := NewDiscord(config.DiscordConfig{
		WebhookURL: server.URL + "/base",
		Content:    "{title}",
		Overrides: []config.DiscordOverride{{
			Regex:      "urgent",
			Field:      "title",
			WebhookURL: server.URL + "/alerts",
		}},
	}, server.Client())

	if err := discord.Send(context.Background(), map[string]string{"title": "urgent fix"}); err != nil {
		t.Fatal(err)
	}

	requests := recorder.captured(t)
	if len(requests) != 1 {
		t.Fatalf("Expected 1 webhook call, got %d", len(requests))
	}
	if requests[0].Path != "/alerts" {
		t.Errorf("Expected delivery to /alerts, got %s", requests[0].Path)
	}
}

func TestDiscordOverrideReplacesContent(t *testing.T) {
	recorder := &webhookRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	discord := NewDiscord(config.DiscordConfig{
		WebhookURL: server.URL,
		Content:    "New post: {title}",
		Overrides: []config.DiscordOverride{{
			Regex:   "urgent",
			Field:   "title",
			Content: "@here {title}",
		}},
	}, server.Client())

	if err := discord.Send(context.Background(), map[string]string{"title": "urgent fix"}); err != nil {
		t.Fatal(err)
	}

	requests := recorder.captured(t)
	if requests[0].Payload["content"] != "@here urgent fix" {
		t.Errorf("Expected overridden content, got %v", requests[0].Payload["content"])
	}
}

func TestDiscordOverrideFirstMatchWins(t *testing.T) {
	recorder := &webhookRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	discord := NewDiscord(config.DiscordConfig{
		WebhookURL: server.URL + "/base",
		Content:    "{title}",
		Overrides: []config.DiscordOverride{
			{Regex: "fix", Field: "title", WebhookURL: server.URL + "/first"},
			{Regex: "urgent", Field: "title", WebhookURL: server.URL + "/second"},
		},
	}, server.Client())

	if err := discord.Send(context.Background(), map[string]string{"title": "urgent fix"}); err != nil {
		t.Fatal(err)
	}

	requests := recorder.captured(t)
	if requests[0].Path != "/first" {
		t.Errorf("Expected first matching override to win, got %s", requests[0].Path)
	}
}

func TestDiscordOverrideNoMatchKeepsBase(t *testing.T) {
	recorder := &webhookRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	discord := NewDiscord(config.DiscordConfig{
		WebhookURL: server.URL + "/base",
		Content:    "{title}",
		Overrides: []config.DiscordOverride{{
			Regex:      "urgent",
			Field:      "title",
			WebhookURL: server.URL + "/alerts",
		}},
	}, server.Client())

	if err := discord.Send(context.Background(), map[string]string{"title": "routine update"}); err != nil {
		t.Fatal(err)
	}

	requests := recorder.captured(t)
	if requests[0].Path != "/base" {
		t.Errorf("Expected delivery to /base, got %s", requests[0].Path)
	}
}

func TestDiscordOmitsEmptyContent(t *testing.T) {
	recorder := &webhookRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	discord := NewDiscord(config.DiscordConfig{
		WebhookURL: server.URL,
		Embeds:     []config.DiscordEmbed{{Title: "{title}"}},
	}, server.Client())

	if err := discord.Send(context.Background(), map[string]string{"title": "Hello"}); err != nil {
		t.Fatal(err)
	}

	requests := recorder.captured(t)
	if _, ok := requests[0].Payload["content"]; ok {
		t.Error("Expected content key to be omitted when no content template is configured")
	}
}

func TestNewUnknownReceiverType(t *testing.T) {
	_, err := New(config.ReceiverConfig{Type: "pager"}, http.DefaultClient)
	if err == nil {
		t.Error("Expected error for unknown receiver type")
	}
}
