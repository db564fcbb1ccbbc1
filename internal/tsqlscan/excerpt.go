package tsqlscan

import "strings"

// excerptRadius is how many bytes of context to keep on each side of a
// match before snapping to line boundaries.
const excerptRadius = 160

// excerpt returns a short slice of src around [pos, end), expanded by
// excerptRadius and snapped to line boundaries so reviewers see whole
// statements.
func excerpt(src string, pos, end int) string {
	if src == "" {
		return ""
	}
	if pos < 0 {
		pos = 0
	}
	if end < pos {
		end = pos
	}
	if end > len(src) {
		end = len(src)
	}
	start := pos - excerptRadius
	if start < 0 {
		start = 0
	}
	stop := end + excerptRadius
	if stop > len(src) {
		stop = len(src)
	}
	if i := strings.LastIndexByte(src[:start], '\n'); i >= 0 {
		start = i + 1
	} else {
		start = 0
	}
	if i := strings.IndexByte(src[stop:], '\n'); i >= 0 {
		stop += i
	} else {
		stop = len(src)
	}
	return strings.TrimSpace(src[start:stop])
}
