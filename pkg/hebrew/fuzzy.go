// Package hebrew implements the Hebrew-aware language utilities: the
// fuzzy matcher, the date/time parser, and the recurrence
// generator/expander, grounded on the bot's own fuzzy-match and
// recurrence helpers (botengine/tools/only-clients/reminder_tool.go,
// pkg/timeutils/timeutils.go) but generalized to the full rule set
// this repository's NLU and domain services require.
package hebrew

import (
	"sort"
	"strings"
)

var hebrewStopWords = map[string]bool{
	"את": true, "עם": true, "של": true, "ב": true, "ל": true,
	"מ": true, "ה": true, "ו": true, "ביום": true, "לשעה": true,
}

var englishStopWords = map[string]bool{
	"the": true, "a": true, "with": true, "for": true, "to": true,
	"in": true, "on": true,
}

var hebrewPrefixes = []string{"ל", "ב", "ה", "ו", "מ", "כ", "ש"}

// Match is one scored candidate returned by the fuzzy matcher.
type Match struct {
	Candidate string
	Index     int
	Score     float64
}

// Normalize lowercases, strips Hebrew geresh/gershayim and ASCII
// punctuation, and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '״', '׳', '"', '\'', '.', ',', '!', '?', ':', ';', '-', '_':
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// tokenize splits on whitespace, drops tokens shorter than 2
// characters and stop words, and strips a single leading Hebrew
// prefix letter from each remaining token.
func tokenize(normalized string) []string {
	fields := strings.Fields(normalized)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if hebrewStopWords[f] || englishStopWords[f] {
			continue
		}
		out = append(out, stripHebrewPrefix(f))
	}
	return out
}

func stripHebrewPrefix(token string) string {
	runes := []rune(token)
	if len(runes) < 3 {
		return token
	}
	first := string(runes[0])
	for _, p := range hebrewPrefixes {
		if first == p {
			return string(runes[1:])
		}
	}
	return token
}

func jaccard(a, b []string) float64 {
	setA := map[string]bool{}
	for _, t := range a {
		setA[t] = true
	}
	setB := map[string]bool{}
	for _, t := range b {
		setB[t] = true
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA)
	for t := range setB {
		if !setA[t] {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Score returns the similarity score in [0,1] between query and
// candidate per spec.md's exact scoring rules (exact=1.0,
// substring=0.9, Jaccard≥0.5 -> 0.7+0.2*Jaccard, else 0).
func Score(query, candidate string) float64 {
	nq := Normalize(query)
	nc := Normalize(candidate)
	if nq == "" || nc == "" {
		return 0
	}
	if nq == nc {
		return 1.0
	}
	if strings.Contains(nc, nq) || strings.Contains(nq, nc) {
		return 0.9
	}
	j := jaccard(tokenize(nq), tokenize(nc))
	if j >= 0.5 {
		return 0.7 + 0.2*j
	}
	return 0
}

// Rank scores every candidate against query and returns matches
// sorted by score descending, ties broken by original order.
func Rank(query string, candidates []string) []Match {
	matches := make([]Match, len(candidates))
	for i, c := range candidates {
		matches[i] = Match{Candidate: c, Index: i, Score: Score(query, c)}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// BestMatch applies the threshold/lead-margin disambiguation rule:
// among candidates scoring >= threshold, if the top score leads the
// runner-up by >= 0.15 it is returned alone; otherwise all
// above-threshold candidates are returned for disambiguation.
func BestMatch(query string, candidates []string, threshold float64) (unique *Match, ambiguous []Match) {
	ranked := Rank(query, candidates)
	above := make([]Match, 0, len(ranked))
	for _, m := range ranked {
		if m.Score >= threshold {
			above = append(above, m)
		}
	}
	if len(above) == 0 {
		return nil, nil
	}
	if len(above) == 1 {
		return &above[0], nil
	}
	if above[0].Score-above[1].Score >= 0.15 {
		return &above[0], nil
	}
	return nil, above
}
