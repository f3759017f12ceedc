package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playerIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%02d", i)
	}
	return ids
}

func freshHistory(ids []string) map[string]map[string]bool {
	h := make(map[string]map[string]bool, len(ids))
	for _, id := range ids {
		h[id] = make(map[string]bool)
	}
	return h
}

func assertBalanced(t *testing.T, ids []string, pairings map[string][]string) {
	t.Helper()
	assert := assert.New(t)

	received := make(map[string]int)
	for _, id := range ids {
		targets := pairings[id]
		assert.Len(targets, 2, "player %s should have exactly 2 targets", id)
		assert.NotEqual(targets[0], targets[1], "player %s has duplicate targets", id)
		for _, target := range targets {
			assert.NotEqual(id, target, "player %s targets itself", id)
			received[target]++
		}
	}
	for _, id := range ids {
		assert.Equal(2, received[id], "player %s should receive exactly 2 bribes", id)
	}
}

func TestGeneratePairingsTooFewPlayers(t *testing.T) {
	for n := 0; n < 3; n++ {
		ids := playerIDs(n)
		_, err := GeneratePairings(ids, freshHistory(ids))
		assert.ErrorIs(t, err, ErrNotEnoughPlayers, "n=%d", n)
	}
}

func TestGeneratePairingsBalancedForAllSmallRosters(t *testing.T) {
	for n := 3; n <= 8; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			ids := playerIDs(n)
			pairings, err := GeneratePairings(ids, freshHistory(ids))
			require.NoError(t, err)
			assertBalanced(t, ids, pairings)
		})
	}
}

func TestGeneratePairingsThreePlayers(t *testing.T) {
	assert := assert.New(t)

	ids := []string{"alice", "bob", "carol"}
	pairings, err := GeneratePairings(ids, freshHistory(ids))
	require.NoError(t, err)

	// With three players the only valid assignment is everyone targeting the
	// other two.
	assert.ElementsMatch([]string{"bob", "carol"}, pairings["alice"])
	assert.ElementsMatch([]string{"alice", "carol"}, pairings["bob"])
	assert.ElementsMatch([]string{"alice", "bob"}, pairings["carol"])
}

func TestGeneratePairingsStaysBalancedAcrossRounds(t *testing.T) {
	for n := 3; n <= 8; n++ {
		ids := playerIDs(n)
		history := freshHistory(ids)
		for round := 1; round <= 10; round++ {
			pairings, err := GeneratePairings(ids, history)
			require.NoError(t, err, "n=%d round=%d", n, round)
			assertBalanced(t, ids, pairings)
		}
	}
}

func TestGeneratePairingsNovelty(t *testing.T) {
	assert := assert.New(t)

	// With five players everyone has four possible targets, so two rounds
	// must cover all of them before any repeat.
	ids := playerIDs(5)
	history := freshHistory(ids)

	first, err := GeneratePairings(ids, history)
	require.NoError(t, err)
	second, err := GeneratePairings(ids, history)
	require.NoError(t, err)

	for _, id := range ids {
		seen := make(map[string]bool)
		for _, target := range append(append([]string(nil), first[id]...), second[id]...) {
			assert.False(seen[target], "player %s was re-assigned %s before exhausting the roster", id, target)
			seen[target] = true
		}
	}
}

func TestGeneratePairingsHistoryResetsWhenExhausted(t *testing.T) {
	ids := playerIDs(3)
	history := freshHistory(ids)

	// Each round uses both available targets, so the history resets every
	// round and pairing keeps succeeding indefinitely.
	for round := 0; round < 5; round++ {
		pairings, err := GeneratePairings(ids, history)
		require.NoError(t, err)
		assertBalanced(t, ids, pairings)
	}
}

func TestGeneratePairingsUpdatesHistory(t *testing.T) {
	assert := assert.New(t)

	ids := playerIDs(6)
	history := freshHistory(ids)
	pairings, err := GeneratePairings(ids, history)
	require.NoError(t, err)

	for _, id := range ids {
		for _, target := range pairings[id] {
			assert.True(history[id][target], "history should record %s -> %s", id, target)
		}
	}
}

func TestRingPairings(t *testing.T) {
	for n := 3; n <= 8; n++ {
		ids := playerIDs(n)
		assertBalanced(t, ids, ringPairings(ids))
	}
}

func TestGeneratePairingsDoesNotTouchInactiveHistory(t *testing.T) {
	ids := playerIDs(4)
	history := freshHistory(ids)
	history["ghost"] = map[string]bool{"p00": true}

	_, err := GeneratePairings(ids, history)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"p00": true}, history["ghost"])
}
