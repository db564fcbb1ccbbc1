package lineage

import (
	"regexp"
	"strings"

	"dota/internal/domain"
)

// Question is a lineage question extracted from free text.
type Question struct {
	Column string
	Table  string
}

// Recognized phrasings. Parsing is fixed-phrase, not NLP: anything that
// does not match one of these shapes is rejected.
var questionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bhow\s+is\s+(?:the\s+)?(?:column\s+)?([\w.\[\]#]+)\s+populated\b(?:\s+in\s+(?:the\s+)?(?:table\s+)?([\w.\[\]#]+))?`),
	regexp.MustCompile(`(?i)\bwhere\s+does\s+(?:the\s+)?(?:column\s+)?([\w.\[\]#]+)\s+(?:come\s+from|get\s+populated)\b(?:\s+in\s+(?:the\s+)?(?:table\s+)?([\w.\[\]#]+))?`),
	regexp.MustCompile(`(?i)\bwhat\s+(?:writes|populates|sets)\s+(?:the\s+)?(?:column\s+)?([\w.\[\]#]+)\b(?:\s+in\s+(?:the\s+)?(?:table\s+)?([\w.\[\]#]+))?`),
}

// ParseQuestion extracts (column, optional table) from a supported
// question phrasing. A dotted column such as "Employees.Salary" splits
// into table and column.
func ParseQuestion(prompt string) (Question, error) {
	text := strings.TrimSpace(prompt)
	if text == "" {
		return Question{}, domain.ErrValidation("question text is required")
	}
	for _, re := range questionPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		q := Question{Column: cleanIdent(m[1]), Table: cleanIdent(m[2])}
		if q.Table == "" {
			if dot := strings.LastIndex(q.Column, "."); dot > 0 {
				q.Table = q.Column[:dot]
				q.Column = q.Column[dot+1:]
			}
		}
		if q.Column != "" {
			return q, nil
		}
	}
	return Question{}, domain.ErrValidation("unrecognized question; try \"how is <column> populated in <table>\"")
}

// cleanIdent strips bracket quoting and trailing punctuation from an
// extracted identifier.
func cleanIdent(s string) string {
	s = strings.Trim(s, "?.!,")
	s = strings.ReplaceAll(s, "[", "")
	s = strings.ReplaceAll(s, "]", "")
	return strings.TrimSpace(s)
}
