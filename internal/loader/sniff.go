package loader

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// DefaultDelimiter is used when sniffing fails, as in most European exports
	DefaultDelimiter = ';'

	sniffSampleSize = 2048
)

var errNoDelimiter = errors.New("could not determine delimiter")

// Candidates in preference order for ties
var sniffCandidates = []rune{',', '\t', ';', '|'}

// decodeText converts an export to UTF-8. A byte order mark selects UTF-8 or UTF-16,
// anything else that is not valid UTF-8 is read as Windows-1252.
func decodeText(data []byte) string {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err == nil && utf8.Valid(decoded) {
		return string(decoded)
	}

	decoded, _, err = transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}

// SniffDelimiter picks the candidate whose per-line count is the most consistent
// across the sample. Quoted text is ignored. When truncated is set the last line
// of the sample is assumed incomplete and left out.
func SniffDelimiter(sample string, truncated bool) (rune, error) {
	lines := strings.Split(strings.ReplaceAll(sample, "\r\n", "\n"), "\n")
	if truncated && len(lines) > 1 {
		lines = lines[:len(lines)-1]
	}

	var nonEmpty []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			nonEmpty = append(nonEmpty, line)
		}
	}
	if len(nonEmpty) == 0 {
		return 0, errNoDelimiter
	}

	best := rune(0)
	bestScore := 0.0
	for _, cand := range sniffCandidates {
		freq := make(map[int]int)
		for _, line := range nonEmpty {
			freq[countUnquoted(line, cand)]++
		}

		mode, modeCount := 0, 0
		for count, n := range freq {
			if n > modeCount || (n == modeCount && count > mode) {
				mode, modeCount = count, n
			}
		}
		if mode == 0 {
			continue
		}

		score := float64(modeCount) / float64(len(nonEmpty))
		if score > bestScore {
			best, bestScore = cand, score
		}
	}

	if best == 0 {
		return 0, errNoDelimiter
	}
	return best, nil
}

func countUnquoted(line string, delim rune) int {
	n := 0
	quoted := false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == delim && !quoted:
			n++
		}
	}
	return n
}
