package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreRound(t *testing.T) {
	assert := assert.New(t)

	bribes := map[string]map[string]*Bribe{
		"a": {
			"b": {Content: "gold"},
			"c": {Content: "silver"},
		},
		"b": {
			"c": {Content: "ad-libbed", IsSystemGenerated: true},
		},
	}
	votes := map[string]SubmissionRef{
		"b": {SubmitterID: "a", TargetID: "b"},
		"c": {SubmitterID: "a", TargetID: "c"},
		"d": {SubmitterID: "b", TargetID: "c"},
	}

	roundScores := scoreRound(votes, bribes)

	// Two full points for a's hand-written bribes, half a point for b's
	// system-generated one.
	assert.Equal(2.0, roundScores["a"])
	assert.Equal(0.5, roundScores["b"])
	assert.NotContains(roundScores, "c")
}

func TestScoreRoundSkipsMissingSubmissions(t *testing.T) {
	votes := map[string]SubmissionRef{
		"b": {SubmitterID: "gone", TargetID: "b"},
	}
	roundScores := scoreRound(votes, map[string]map[string]*Bribe{})
	assert.Empty(t, roundScores)
}

func TestScoreboardEntriesOrderAndTies(t *testing.T) {
	assert := assert.New(t)

	order := []string{"p1", "p2", "p3", "p4", "p5"}
	players := map[string]*Player{
		"p1": {ID: "p1", Name: "Ana"},
		"p2": {ID: "p2", Name: "Ben"},
		"p3": {ID: "p3", Name: "Cleo"},
		"p4": {ID: "p4", Name: "Dev"},
		"p5": {ID: "p5", Name: "Esa"},
	}
	scores := map[string]float64{"p1": 8, "p2": 6, "p3": 6, "p4": 3, "p5": 1}

	entries := scoreboardEntries(order, players, scores, nil, "p1")

	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.PlayerID
	}
	// p2 and p3 are tied; join order breaks the tie.
	assert.Equal([]string{"p1", "p2", "p3", "p4", "p5"}, got)
	assert.True(entries[0].IsHost)

	assignPodium(entries)
	assert.Equal(1, entries[0].PodiumPosition)
	assert.Equal(2, entries[1].PodiumPosition)
	assert.Equal(3, entries[2].PodiumPosition)
	assert.Zero(entries[3].PodiumPosition)
	assert.Zero(entries[4].PodiumPosition)
}

func TestScoreboardEntriesTieKeepsJoinOrder(t *testing.T) {
	order := []string{"late", "early"}
	players := map[string]*Player{
		"late":  {ID: "late", Name: "Late"},
		"early": {ID: "early", Name: "Early"},
	}
	scores := map[string]float64{"late": 2, "early": 2}

	entries := scoreboardEntries(order, players, scores, nil, "late")
	assert.Equal(t, "late", entries[0].PlayerID)
	assert.Equal(t, "early", entries[1].PlayerID)
}

func TestScoreboardEntriesRoundScore(t *testing.T) {
	order := []string{"a", "b"}
	players := map[string]*Player{
		"a": {ID: "a", Name: "A"},
		"b": {ID: "b", Name: "B"},
	}
	entries := scoreboardEntries(order, players,
		map[string]float64{"a": 3.5, "b": 1},
		map[string]float64{"a": 1.5},
		"a")

	assert.Equal(t, 1.5, entries[0].RoundScore)
	assert.Equal(t, 3.5, entries[0].TotalScore)
	assert.Zero(t, entries[1].RoundScore)
}
