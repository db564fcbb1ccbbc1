// Package resolve ranks candidate tables for a column lookup. Ranking
// is a pure function of the candidate set, the default schema, and the
// optional hint text, so identical inputs always produce identical
// output.
package resolve

import (
	"sort"
	"strings"

	"dota/internal/domain"
)

// Ranking is the outcome of disambiguating a multi-table column match.
type Ranking struct {
	Chosen domain.TableCandidate
	// Alternatives holds the remaining candidates in rank order.
	Alternatives []domain.TableCandidate
	// Ambiguous is set when the winner and at least one alternative are
	// exactly tied on every criterion.
	Ambiguous bool
}

// Rank orders candidates by, in strict priority: writer count
// descending, trigger presence, schema preference (defaultSchema first,
// then alphabetical), hint token overlap, and row count descending.
// An empty candidate set yields a zero Ranking.
func Rank(candidates []domain.TableCandidate, defaultSchema, hint string) Ranking {
	if len(candidates) == 0 {
		return Ranking{}
	}

	ranked := make([]domain.TableCandidate, len(candidates))
	copy(ranked, candidates)

	hintTokens := tokenize(hint)
	sort.SliceStable(ranked, func(i, j int) bool {
		return compare(ranked[i], ranked[j], defaultSchema, hintTokens) < 0
	})

	r := Ranking{Chosen: ranked[0], Alternatives: ranked[1:]}
	if len(ranked) > 1 && compare(ranked[0], ranked[1], defaultSchema, hintTokens) == 0 {
		r.Ambiguous = true
	}
	return r
}

// compare returns a negative value when a ranks before b, zero when the
// two are exactly tied on all five criteria.
func compare(a, b domain.TableCandidate, defaultSchema string, hintTokens map[string]struct{}) int {
	if a.WriterCount != b.WriterCount {
		if a.WriterCount > b.WriterCount {
			return -1
		}
		return 1
	}
	if a.HasTrigger != b.HasTrigger {
		if a.HasTrigger {
			return -1
		}
		return 1
	}
	if c := compareSchema(a.Table.Schema, b.Table.Schema, defaultSchema); c != 0 {
		return c
	}
	ao, bo := overlap(a.Table, hintTokens), overlap(b.Table, hintTokens)
	if ao != bo {
		if ao > bo {
			return -1
		}
		return 1
	}
	if a.RowCount != b.RowCount {
		if a.RowCount > b.RowCount {
			return -1
		}
		return 1
	}
	return 0
}

func compareSchema(a, b, defaultSchema string) int {
	al, bl := strings.ToLower(a), strings.ToLower(b)
	def := strings.ToLower(defaultSchema)
	if al == bl {
		return 0
	}
	if al == def {
		return -1
	}
	if bl == def {
		return 1
	}
	if al < bl {
		return -1
	}
	return 1
}

// overlap counts hint tokens appearing in the candidate's qualified name.
func overlap(ref domain.TableRef, hintTokens map[string]struct{}) int {
	if len(hintTokens) == 0 {
		return 0
	}
	n := 0
	for tok := range tokenize(ref.Qualified()) {
		if _, ok := hintTokens[tok]; ok {
			n++
		}
	}
	return n
}

// tokenize lowercases and splits on every non-alphanumeric rune.
func tokenize(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}
