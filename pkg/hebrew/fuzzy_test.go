package hebrew

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreExactMatch(t *testing.T) {
	assert.Equal(t, 1.0, Score("פגישה", "פגישה"))
}

func TestScoreSubstring(t *testing.T) {
	assert.Equal(t, 0.9, Score("פגישה", "פגישה עם דני"))
}

func TestScoreNoMatch(t *testing.T) {
	assert.Equal(t, 0.0, Score("קניות", "פגישה עם דני"))
}

func TestScoreIsDeterministic(t *testing.T) {
	a := Score("פגישה עם דני", "פגישה")
	b := Score("פגישה עם דני", "פגישה")
	assert.Equal(t, a, b)
}

func TestBestMatchUniqueWhenMarginLarge(t *testing.T) {
	unique, ambiguous := BestMatch("פגישה עם דני", []string{"פגישה עם דני", "קניות"}, 0.5)
	assert.NotNil(t, unique)
	assert.Nil(t, ambiguous)
}

func TestBestMatchAmbiguousWhenTied(t *testing.T) {
	unique, ambiguous := BestMatch("פגישה", []string{"פגישה", "פגישה"}, 0.5)
	assert.Nil(t, unique)
	assert.Len(t, ambiguous, 2)
}
