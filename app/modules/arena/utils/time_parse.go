package arenautil

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// TimeParser turns builder input such as "tomorrow at 8pm", "in 2 hours" or
// "2026-05-01 18:00" into an absolute time.
type TimeParser interface {
	ParseTime(input string) (time.Time, error)
}

type timeParser struct {
	clock Clock
	w     *when.Parser
}

// NewTimeParser returns a parser resolving relative input against clock.
func NewTimeParser(clock Clock) TimeParser {
	if clock == nil {
		clock = RealClock{}
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &timeParser{clock: clock, w: w}
}

var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02 at 15:04",
	"2006-01-02T15:04",
}

func (p *timeParser) ParseTime(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, input); err == nil {
			return t.UTC(), nil
		}
	}

	now := p.clock.Now()
	if d, err := time.ParseDuration(strings.TrimPrefix(strings.ToLower(input), "in ")); err == nil {
		return now.Add(d), nil
	}

	r, err := p.w.Parse(strings.ToLower(input), now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %q: %w", input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("invalid date/time format: %s", input)
	}
	return r.Time.UTC(), nil
}

// ParseDuration accepts Go durations ("90m", "1h30m") plus a bare number of
// minutes. "none", "off" and "0" give zero.
func ParseDuration(input string) (time.Duration, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	switch input {
	case "", "none", "off", "0":
		return 0, nil
	}
	if d, err := time.ParseDuration(input); err == nil {
		return d, nil
	}
	var minutes int
	if _, err := fmt.Sscanf(input, "%d", &minutes); err == nil && fmt.Sprint(minutes) == input {
		return time.Duration(minutes) * time.Minute, nil
	}
	return 0, fmt.Errorf("invalid duration: %s", input)
}
