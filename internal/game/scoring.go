package game

import (
	"sort"
)

const (
	votePoints     = 1.0
	fallbackPoints = 0.5 // system-generated bribes earn their author half
)

// scoreRound tallies one round's votes into per-author points. Votes whose
// referenced submission no longer exists (author kicked mid-round) score
// nothing.
func scoreRound(votes map[string]SubmissionRef, bribes map[string]map[string]*Bribe) map[string]float64 {
	roundScores := make(map[string]float64)
	for _, ref := range votes {
		bribe := lookupBribe(bribes, ref)
		if bribe == nil {
			continue
		}
		if bribe.IsSystemGenerated {
			roundScores[ref.SubmitterID] += fallbackPoints
		} else {
			roundScores[ref.SubmitterID] += votePoints
		}
	}
	return roundScores
}

func lookupBribe(bribes map[string]map[string]*Bribe, ref SubmissionRef) *Bribe {
	if byTarget, ok := bribes[ref.SubmitterID]; ok {
		return byTarget[ref.TargetID]
	}
	return nil
}

// scoreboardEntries builds a scoreboard in descending score order. order is
// the roster's join order; the sort is stable, so tied players keep it.
func scoreboardEntries(order []string, players map[string]*Player, scores, roundScores map[string]float64, hostID string) []ScoreboardEntry {
	entries := make([]ScoreboardEntry, 0, len(order))
	for _, id := range order {
		p, ok := players[id]
		if !ok {
			continue
		}
		entries = append(entries, ScoreboardEntry{
			PlayerID:   id,
			Name:       p.Name,
			RoundScore: roundScores[id],
			TotalScore: scores[id],
			IsHost:     id == hostID,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalScore > entries[j].TotalScore
	})
	return entries
}

// assignPodium marks the top three entries with podium positions 1-3.
func assignPodium(entries []ScoreboardEntry) {
	for i := range entries {
		if i >= 3 {
			break
		}
		entries[i].PodiumPosition = i + 1
	}
}
