package acquire

import "strings"

// Some drivers emit the text layer of 180°-rotated scans inverted at both the
// character and the line level. We detect that by counting known keywords in
// reversed form versus normal form.

// shortLine is the threshold below which adjacent lines are coalesced after
// un-reversing, to reconstitute sentences the driver fragmented.
const shortLine = 30

// minReversedHits is the minimum reversed-keyword score before the normalizer
// touches the text at all.
const minReversedHits = 2

// IsReversed reports whether the text looks character/line inverted, judged
// against the given keyword list.
func IsReversed(text string, keywords []string) bool {
	var reversed, normal int
	for _, kw := range keywords {
		if strings.Contains(text, reverseRunes(kw)) {
			reversed++
		}
		if strings.Contains(text, kw) {
			normal++
		}
	}
	return reversed > normal && reversed >= minReversedHits
}

// Unreverse undoes the inversion: each line's runes are reversed, line order
// is reversed, and runs of adjacent short lines are merged.
func Unreverse(text string) string {
	lines := strings.Split(text, "\n")
	flipped := make([]string, len(lines))
	for i, line := range lines {
		flipped[len(lines)-1-i] = reverseRunes(line)
	}

	var collapsed []string
	var current string
	flush := func() {
		if current != "" {
			collapsed = append(collapsed, current)
			current = ""
		}
	}
	for _, line := range flipped {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			flush()
			continue
		}
		if len(stripped) < shortLine {
			if current != "" {
				current += " " + stripped
			} else {
				current = stripped
			}
			continue
		}
		flush()
		collapsed = append(collapsed, stripped)
	}
	flush()

	return strings.Join(collapsed, "\n")
}

func reverseRunes(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
