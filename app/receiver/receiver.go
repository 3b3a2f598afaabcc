// Package receiver turns a canonical feed item into a receiver-specific
// payload and delivers it. Receiver kinds are a closed set; adding a kind
// means adding a variant here, not modifying the dispatch loop.
package receiver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/feedhook/feedhook/app/config"
)

// Receiver delivers one notification built from an item's variable map.
type Receiver interface {
	Send(ctx context.Context, vars map[string]string) error
}

// New builds the receiver variant selected by the configuration.
func New(receiverConfig config.ReceiverConfig, httpClient *http.Client) (Receiver, error) {
	switch receiverConfig.Type {
	case config.ReceiverTypeDiscord:
		return NewDiscord(receiverConfig.Discord, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown receiver type: %q", receiverConfig.Type)
	}
}
