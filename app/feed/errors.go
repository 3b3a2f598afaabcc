package feed

import "fmt"

// FetchError indicates the feed document could not be retrieved, either
// because of a transport failure or a non-200 response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("unexpected status code %d fetching %s", e.StatusCode, e.URL)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError indicates the fetched document is not a well-formed feed
type ParseError struct {
	FeedID string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse feed %s: %v", e.FeedID, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
