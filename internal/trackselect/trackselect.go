// Package trackselect implements the shared "none|ask|numeric" track
// selection protocol used by both the MPD and HLS halves of ManifestParser
// (spec.md §4.4).
package trackselect

import "strconv"

// Choice is one configured track selection value: the literal strings
// "none"/"ask", or a decimal number (height in px for video, kbps for audio).
type Choice string

const (
	None Choice = "none"
	Ask  Choice = "ask"
)

// Prompter asks the user to pick among labeled candidates and returns the
// chosen index. Left as a caller-supplied hook: interactive prompting is a
// CLI concern outside this core (spec.md §1).
type Prompter func(labels []string) (int, error)

// Numeric reports whether c is a plain number rather than "none"/"ask".
func (c Choice) Numeric() (int, bool) {
	n, err := strconv.Atoi(string(c))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Resolve implements spec.md §4.4's selection protocol generically over any
// candidate slice: "none" selects nothing, "ask" delegates to prompt,
// numeric does an exact match against key(candidate), falling back to the
// first candidate (fallbackToFirst) on a miss — used for HLS/MPD audio
// tracks but not required for video.
func Resolve[T any](choice Choice, candidates []T, key func(T) int, labels func([]T) []string, prompt Prompter, fallbackToFirst bool) (*T, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if choice == None {
		return nil, nil
	}
	if choice == Ask {
		if prompt == nil {
			return &candidates[0], nil
		}
		idx, err := prompt(labels(candidates))
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(candidates) {
			return &candidates[0], nil
		}
		return &candidates[idx], nil
	}
	if n, ok := choice.Numeric(); ok {
		for i := range candidates {
			if key(candidates[i]) == n {
				return &candidates[i], nil
			}
		}
		if fallbackToFirst {
			return &candidates[0], nil
		}
		return nil, nil
	}
	return &candidates[0], nil
}
