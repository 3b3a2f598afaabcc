package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/feedhook/feedhook/app/config"
	"github.com/feedhook/feedhook/app/database"
	"github.com/feedhook/feedhook/app/receiver"
)

// ItemStore persists canonical items and reports which were newly inserted.
// Implemented by database.ItemRepository.
type ItemStore interface {
	InsertAndSelectNew(ctx context.Context, items []database.FeedItem) (map[string]bool, error)
}

// Processor runs one feed's poll cycle: fetch, sort, deduplicate, notify.
// The first unrecovered error aborts the remaining steps for that tick;
// a failed cycle is simply retried on the next scheduled tick.
type Processor struct {
	normalizer *Normalizer
	itemStore  ItemStore
	httpClient *http.Client
}

// NewProcessor creates a feed processor
func NewProcessor(normalizer *Normalizer, itemStore ItemStore, httpClient *http.Client) *Processor {
	return &Processor{
		normalizer: normalizer,
		itemStore:  itemStore,
		httpClient: httpClient,
	}
}

// Run executes one poll cycle for the feed
func (p *Processor) Run(ctx context.Context, feedConfig *config.FeedConfig) error {
	items, err := p.normalizer.Run(ctx, feedConfig)
	if err != nil {
		return err
	}

	slog.Debug("Fetched feed", "feed", feedConfig.ID, "items", len(items))

	// Notifications go out in ascending published order. Stable so that
	// entries sharing a timestamp keep their document order.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.Before(items[j].PublishedAt)
	})

	batch := make([]database.FeedItem, 0, len(items))
	for _, item := range items {
		batch = append(batch, database.FeedItem{
			FeedID:      item.FeedID,
			ExternalID:  item.ExternalID,
			PublishedAt: item.PublishedAt,
			Variables:   item.Variables,
		})
	}

	newIDs, err := p.itemStore.InsertAndSelectNew(ctx, batch)
	if err != nil {
		return err
	}

	if len(newIDs) == 0 {
		slog.Debug("No new items", "feed", feedConfig.ID)
		return nil
	}

	receivers := make([]receiver.Receiver, 0, len(feedConfig.Receivers))
	for _, receiverConfig := range feedConfig.Receivers {
		r, err := receiver.New(receiverConfig, p.httpClient)
		if err != nil {
			return err
		}
		receivers = append(receivers, r)
	}

	notified := 0
	for _, item := range items {
		if !newIDs[item.ExternalID] {
			continue
		}

		slog.Debug("Sending notifications for new item",
			"feed", feedConfig.ID, "item", item.ExternalID)

		for _, r := range receivers {
			if err := r.Send(ctx, item.Variables); err != nil {
				return fmt.Errorf("failed to notify for item %s: %w", item.ExternalID, err)
			}
		}
		notified++
	}

	slog.Info("Feed processed",
		"feed", feedConfig.ID, "total", len(items), "new", notified)

	return nil
}
