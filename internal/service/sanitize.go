package service

import "regexp"

// thinkSpan matches one reasoning block, possibly spanning lines.
var thinkSpan = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Sanitize removes every <think>...</think> block the model emitted before
// its answer. Removal repeats until no block is left, so a block formed by
// an earlier removal goes too and Sanitize(Sanitize(s)) == Sanitize(s).
// Text outside the blocks is left as is.
func Sanitize(raw string) string {
	for {
		out := thinkSpan.ReplaceAllString(raw, "")
		if out == raw {
			return out
		}
		raw = out
	}
}
