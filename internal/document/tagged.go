package document

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var tagRe = regexp.MustCompile(`(?m)^[ \t]*\[#(\d+)\]`)

// FormatTagged renders blocks in the tagged exchange form understood by
// prompt-based backends:
//
//	[#12]
//	first line
//	second line
func FormatTagged(blocks []Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, fmt.Sprintf("[#%d]\n%s", b.Seq, b.Text()))
	}
	return strings.Join(parts, "\n\n")
}

// ParseBackendResponse extracts tagged blocks from a backend reply.
//
// Each tag owns the text up to the next tag. Lines are trimmed and empty lines
// and code fences are dropped. Text before the first tag is discarded. When an
// index appears more than once the first occurrence wins.
func ParseBackendResponse(response string) map[int][]string {
	text := normalize([]byte(response))
	matches := tagRe.FindAllStringSubmatchIndex(text, -1)

	ret := make(map[int][]string, len(matches))
	for i, m := range matches {
		index, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || index <= 0 {
			continue
		}
		if _, seen := ret[index]; seen {
			continue
		}

		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		lines := make([]string, 0)
		for _, line := range strings.Split(text[m[1]:end], "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "```") {
				continue
			}
			lines = append(lines, line)
		}
		ret[index] = lines
	}

	return ret
}
