package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(matches []Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Name)
	}
	return out
}

func TestRank_AbbreviationMatchesOnlyOneName(t *testing.T) {
	m := New()
	matches := m.Rank("ytb", []string{"YouTube", "Yahoo"})

	require.Len(t, matches, 1)
	assert.Equal(t, "YouTube", matches[0].Name)
	assert.Equal(t, 0, matches[0].Index)
	assert.False(t, matches[0].Exact)
}

func TestRank_TiesBreakByInsertionOrder(t *testing.T) {
	m := New()

	matches := m.Rank("y", []string{"YouTube", "Yahoo"})
	require.Equal(t, []string{"YouTube", "Yahoo"}, names(matches))
	assert.Equal(t, matches[0].Score, matches[1].Score)

	matches = m.Rank("y", []string{"Yahoo", "YouTube"})
	require.Equal(t, []string{"Yahoo", "YouTube"}, names(matches))
}

func TestRank_OrderedByDescendingScore(t *testing.T) {
	m := New()
	// A contiguous prefix hit outranks letters scattered through the name.
	matches := m.Rank("mail", []string{"my-aws-iam-login", "Gmail", "Mailbox"})

	require.NotEmpty(t, matches)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestRank_ExactMatchShortCircuits(t *testing.T) {
	m := New()
	matches := m.Rank("Git", []string{"GitHub", "Git", "GitLab", "git"})

	require.Len(t, matches, 1)
	assert.Equal(t, "Git", matches[0].Name)
	assert.Equal(t, 1, matches[0].Index)
	assert.True(t, matches[0].Exact)
}

func TestRank_ExactMatchIsCaseSensitive(t *testing.T) {
	m := New()
	matches := m.Rank("youtube", []string{"YouTube", "YouTube Music"})

	require.Equal(t, []string{"YouTube", "YouTube Music"}, names(matches))
	for _, match := range matches {
		assert.False(t, match.Exact)
	}
}

func TestRank_NoMatch(t *testing.T) {
	m := New()
	assert.Empty(t, m.Rank("zzz", []string{"YouTube", "Yahoo"}))
	assert.Empty(t, m.Rank("ytb", nil))
}

func TestRank_EmptyQuery(t *testing.T) {
	m := New()
	assert.Empty(t, m.Rank("", []string{"YouTube"}))
}

func TestRank_Deterministic(t *testing.T) {
	m := New()
	input := []string{"Amazon", "AWS console", "azure", "Apple ID", "aws-prod", "Airbnb"}

	first := m.Rank("a", input)
	require.NotEmpty(t, first)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, m.Rank("a", input))
	}
}

func TestRank_FoldsAccents(t *testing.T) {
	m := New()
	matches := m.Rank("cafe", []string{"Café de Flore", "Bank"})

	require.Len(t, matches, 1)
	assert.Equal(t, "Café de Flore", matches[0].Name)
}

func TestRank_ThresholdExcludesWeakMatches(t *testing.T) {
	strict := New(WithMinScorePerRune(1000))
	assert.Empty(t, strict.Rank("y", []string{"YouTube", "Yahoo"}))

	lenient := New(WithMinScorePerRune(0))
	assert.Len(t, lenient.Rank("y", []string{"YouTube", "Yahoo"}), 2)
}

func TestRank_ExactMatchIgnoresThreshold(t *testing.T) {
	strict := New(WithMinScorePerRune(1000))
	matches := strict.Rank("Yahoo", []string{"YouTube", "Yahoo"})

	require.Len(t, matches, 1)
	assert.Equal(t, "Yahoo", matches[0].Name)
}

func TestThreshold(t *testing.T) {
	assert.Equal(t, 3*DefaultMinScorePerRune, New().Threshold("ytb"))
	assert.Equal(t, 4*5, New(WithMinScorePerRune(5)).Threshold("café"))
	assert.Equal(t, 2, New(WithMinScorePerRune(-3)).Threshold("ab"))
}

func TestScore(t *testing.T) {
	m := New()
	assert.Positive(t, m.Score("ytb", "YouTube"))
	assert.Zero(t, m.Score("ytb", "Yahoo"))
	assert.Zero(t, m.Score("", "Yahoo"))
}
