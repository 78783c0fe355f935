package arenabuilder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	arenautil "github.com/Black-And-White-Club/arena-engine/app/modules/arena/utils"
	"github.com/shopspring/decimal"
)

// usageError is a malformed command. Its message is shown as is.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, a ...any) error {
	return &usageError{msg: fmt.Sprintf(format, a...)}
}

func isUsage(err error) bool {
	var u *usageError
	return errors.As(err, &u)
}

type token struct {
	text  string
	start int
}

// args are the words after "<noun> <verb>". Double quotes group words, so
// names may contain spaces.
type args struct {
	raw  string
	toks []token
}

func tokenize(line string) args {
	a := args{raw: line}
	var (
		cur    strings.Builder
		start  = -1
		quoted bool
		flush  = func() {
			if start >= 0 {
				a.toks = append(a.toks, token{text: cur.String(), start: start})
			}
			cur.Reset()
			start = -1
		}
	)
	for i, r := range line {
		switch {
		case r == '"':
			if start < 0 {
				start = i
			}
			quoted = !quoted
		case !quoted && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			if start < 0 {
				start = i
			}
			cur.WriteRune(r)
		}
	}
	flush()
	return a
}

// shift drops the first n words.
func (a args) shift(n int) args {
	if n >= len(a.toks) {
		return args{}
	}
	return args{raw: a.raw, toks: a.toks[n:]}
}

func (a args) Len() int { return len(a.toks) }

func (a args) At(i int) string {
	if i < 0 || i >= len(a.toks) {
		return ""
	}
	return a.toks[i].text
}

// Rest returns the unparsed text from word i on, keeping its spacing.
func (a args) Rest(i int) string {
	if i >= len(a.toks) {
		return ""
	}
	return strings.TrimSpace(a.raw[a.toks[i].start:])
}

// Words joins the words from i on with single spaces.
func (a args) Words(i int) string {
	if i >= len(a.toks) {
		return ""
	}
	out := make([]string, 0, len(a.toks)-i)
	for _, t := range a.toks[i:] {
		out = append(out, t.text)
	}
	return strings.Join(out, " ")
}

func (a args) need(n int, usage string) error {
	if len(a.toks) < n {
		return usagef("Usage: %s", usage)
	}
	return nil
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef("%q is not a valid %s id.", s, what)
	}
	return id, nil
}

// parseIndex converts a 1-based side number to its 0-based index.
func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, usagef("%q is not a valid side number.", s)
	}
	return n - 1, nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "yes", "true", "1":
		return true, nil
	case "off", "no", "false", "0":
		return false, nil
	}
	return false, usagef("Expected on or off, got %q.", s)
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, usagef("%q is not a valid amount.", s)
	}
	return d, nil
}

func parseDuration(s string) (time.Duration, error) {
	d, err := arenautil.ParseDuration(s)
	if err != nil {
		return 0, usagef("%q is not a valid duration.", s)
	}
	return d, nil
}

// parseOptionalFloat reads "none" as nil.
func parseOptionalFloat(s string) (*float64, error) {
	if isNone(s) {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, usagef("%q is not a number.", s)
	}
	return &f, nil
}

func isNone(s string) bool {
	switch strings.ToLower(s) {
	case "none", "off", "clear", "-":
		return true
	}
	return false
}
