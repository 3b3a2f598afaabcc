package config

import (
	"regexp"
	"time"
)

// GetInterval returns the poll interval as time.Duration
func (f *FeedConfig) GetInterval() time.Duration {
	return time.Duration(f.Interval) * time.Second
}

// CompileGUIDRegex returns the compiled id extraction regex, or nil when
// none is configured. The pattern is validated at load time.
func (f *FeedConfig) CompileGUIDRegex() *regexp.Regexp {
	if f.GUIDRegex == "" {
		return nil
	}
	re, err := regexp.Compile(f.GUIDRegex)
	if err != nil {
		return nil
	}
	return re
}
