// Package transcript shortens voice transcripts for log fields.
package transcript

import (
	"strings"
	"unicode/utf8"
)

// Options bounds the size of an excerpt.
type Options struct {
	MaxWords int
	MaxBytes int
}

// Excerpt is a log-safe view of a transcript plus counts for telemetry.
type Excerpt struct {
	Text      string
	Words     int
	Truncated bool
}

var defaultOptions = Options{
	MaxWords: 24,
	MaxBytes: 256,
}

// Excerpter produces deterministic excerpts of transcripts.
type Excerpter struct {
	opts Options
}

func NewExcerpter(opts Options) *Excerpter {
	cfg := defaultOptions
	if opts.MaxWords > 0 {
		cfg.MaxWords = opts.MaxWords
	}
	if opts.MaxBytes > 0 {
		cfg.MaxBytes = opts.MaxBytes
	}
	return &Excerpter{opts: cfg}
}

// Excerpt collapses whitespace, then trims to the word and byte budgets.
// It never changes what the classifier sees; it only shapes log output.
func (e *Excerpter) Excerpt(text string) Excerpt {
	words := strings.Fields(text)
	if len(words) == 0 {
		return Excerpt{}
	}

	out := Excerpt{Words: len(words)}
	if len(words) > e.opts.MaxWords {
		words = words[:e.opts.MaxWords]
		out.Truncated = true
	}

	s := strings.Join(words, " ")
	if len(s) > e.opts.MaxBytes {
		s = cutUTF8(s, e.opts.MaxBytes)
		out.Truncated = true
	}
	if out.Truncated {
		s += " ..."
	}

	out.Text = s
	return out
}

func cutUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return strings.TrimSpace(s)
}
