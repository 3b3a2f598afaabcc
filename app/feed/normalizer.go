package feed

import (
	"bytes"
	"cmp"
	"context"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"

	"github.com/feedhook/feedhook/app/config"
)

// pubDateFormat is the human-readable form of the pub_date variable
const pubDateFormat = "2-Jan-2006 15:04 MST"

// Normalizer fetches a feed document over HTTP and reduces each entry to a
// canonical Item. The format-specific gofeed parsers are used instead of the
// universal one because the variable map needs RSS comments, raw namespaced
// extensions and the Atom updated instant.
type Normalizer struct {
	httpClient *http.Client
	userAgent  string // process-wide default, may be empty
}

// NewNormalizer creates a normalizer sharing the given HTTP client
func NewNormalizer(httpClient *http.Client, userAgent string) *Normalizer {
	return &Normalizer{
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

// Run fetches and parses one feed, returning its entries as canonical items.
// Entries with no resolvable link are dropped; nothing else filters items.
func (n *Normalizer) Run(ctx context.Context, feedConfig *config.FeedConfig) ([]Item, error) {
	data, err := n.fetch(ctx, feedConfig)
	if err != nil {
		return nil, err
	}

	if feedConfig.Atom {
		slog.Debug("Parsing feed as Atom", "feed", feedConfig.ID)
		return n.parseAtom(feedConfig, data)
	}

	slog.Debug("Parsing feed as RSS", "feed", feedConfig.ID)
	return n.parseRSS(feedConfig, data)
}

func (n *Normalizer) fetch(ctx context.Context, feedConfig *config.FeedConfig) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedConfig.URL, nil)
	if err != nil {
		return nil, &FetchError{URL: feedConfig.URL, Err: err}
	}

	if userAgent := cmp.Or(feedConfig.UserAgent, n.userAgent); userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: feedConfig.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: feedConfig.URL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: feedConfig.URL, Err: err}
	}

	return data, nil
}

func (n *Normalizer) parseRSS(feedConfig *config.FeedConfig, data []byte) ([]Item, error) {
	parsed, err := (&rss.Parser{}).Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{FeedID: feedConfig.ID, Err: err}
	}

	guidRe := feedConfig.CompileGUIDRegex()

	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry.Link == "" {
			continue
		}

		rawID := entry.Link
		if entry.GUID != nil && entry.GUID.Value != "" {
			rawID = entry.GUID.Value
		}

		var published time.Time
		if entry.PubDateParsed != nil {
			published = *entry.PubDateParsed
		}

		items = append(items, Item{
			FeedID:      feedConfig.ID,
			ExternalID:  extractID(rawID, guidRe),
			PublishedAt: published,
			Variables:   rssVariables(entry),
		})
	}

	return items, nil
}

func (n *Normalizer) parseAtom(feedConfig *config.FeedConfig, data []byte) ([]Item, error) {
	// Some feeds prefix every element with atom: and ship an XML declaration
	// with a standalone attribute the parser rejects; strip both before
	// parsing. Parser-compatibility workaround, not a general XML transform.
	content := string(data)
	content = strings.ReplaceAll(content, "<atom:", "<")
	content = strings.ReplaceAll(content, "</atom:", "</")
	content = strings.ReplaceAll(content,
		`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`, "")

	parsed, err := (&atom.Parser{}).Parse(strings.NewReader(content))
	if err != nil {
		return nil, &ParseError{FeedID: feedConfig.ID, Err: err}
	}

	guidRe := feedConfig.CompileGUIDRegex()

	items := make([]Item, 0, len(parsed.Entries))
	for _, entry := range parsed.Entries {
		if len(entry.Links) == 0 {
			continue
		}

		var published time.Time
		if entry.UpdatedParsed != nil {
			published = *entry.UpdatedParsed
		}

		items = append(items, Item{
			FeedID:      feedConfig.ID,
			ExternalID:  extractID(entry.ID, guidRe),
			PublishedAt: published,
			Variables:   atomVariables(entry),
		})
	}

	return items, nil
}

// extractID applies the configured extraction regex to the raw entry id.
// The leftmost match replaces the id; no match keeps the raw id unchanged.
// A mismatch is a soft-failure path, never an error.
func extractID(rawID string, re *regexp.Regexp) string {
	if re == nil {
		return rawID
	}
	if match := re.FindString(rawID); match != "" {
		return match
	}
	return rawID
}

func rssVariables(entry *rss.Item) map[string]string {
	vars := make(map[string]string)

	if entry.Title != "" {
		vars["title"] = entry.Title
	}
	if entry.Description != "" {
		vars["description"] = entry.Description
	}
	if entry.Link != "" {
		vars["link"] = entry.Link
	}
	if entry.Author != "" {
		vars["author"] = entry.Author
	}
	if entry.Comments != "" {
		vars["comments"] = entry.Comments
	}
	if entry.PubDateParsed != nil {
		vars["pub_date"] = entry.PubDateParsed.UTC().Format(pubDateFormat)
	}

	categories := make([]string, 0, len(entry.Categories))
	for _, category := range entry.Categories {
		categories = append(categories, category.Value)
	}
	vars["categories"] = strings.Join(categories, ", ")

	// Namespaced extension elements contribute attribute-keyed and
	// value-keyed entries, e.g. media_thumbnail_url and dc_creator.
	for prefix, elements := range entry.Extensions {
		for _, extensions := range elements {
			for _, extension := range extensions {
				key := prefix + "_" + extension.Name
				for attr, value := range extension.Attrs {
					vars[key+"_"+attr] = value
				}
				if extension.Value != "" {
					vars[key] = extension.Value
				}
			}
		}
	}

	return vars
}

func atomVariables(entry *atom.Entry) map[string]string {
	vars := make(map[string]string)

	vars["title"] = entry.Title

	if entry.Summary != "" {
		vars["description"] = entry.Summary
	}
	if len(entry.Links) > 0 {
		vars["link"] = entry.Links[0].Href
	}
	if len(entry.Authors) > 0 && entry.Authors[0].Name != "" {
		vars["author"] = entry.Authors[0].Name
	}

	var updated time.Time
	if entry.UpdatedParsed != nil {
		updated = *entry.UpdatedParsed
	}
	vars["pub_date"] = updated.UTC().Format(pubDateFormat)

	categories := make([]string, 0, len(entry.Categories))
	for _, category := range entry.Categories {
		categories = append(categories, category.Term)
	}
	vars["categories"] = strings.Join(categories, ", ")

	// Atom extension elements are not extracted

	return vars
}
