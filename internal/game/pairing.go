package game

import (
	"sort"
)

// GeneratePairings assigns every active player exactly two bribe targets such
// that every active player also receives exactly two bribes and nobody
// targets themselves. Targets a player has bribed in earlier rounds are
// avoided while enough fresh candidates remain; once a player's options are
// exhausted their history resets. history is updated in place to reflect the
// assignment actually returned.
//
// The greedy pass and its repair pass can paint themselves into a corner for
// small rosters, so any result that fails validation is discarded for the
// ring construction, which is always balanced. Imbalance is never returned.
func GeneratePairings(active []string, history map[string]map[string]bool) (map[string][]string, error) {
	n := len(active)
	if n < 3 {
		return nil, ErrNotEnoughPlayers
	}

	ids := append([]string(nil), active...)
	sort.Strings(ids)

	hist := copyHistory(ids, history)
	pairings := greedyPairings(ids, hist)

	ok := balancePairings(pairings, ids, hist)
	if ok {
		ok = resolveSelfTargets(pairings, ids, hist)
	}
	if !ok || !validPairings(pairings, ids) {
		pairings = ringPairings(ids)
		hist = copyHistory(ids, history)
		for id, targets := range pairings {
			for _, t := range targets {
				hist[id][t] = true
			}
		}
	}

	for _, id := range ids {
		history[id] = hist[id]
	}
	return pairings, nil
}

func copyHistory(ids []string, history map[string]map[string]bool) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = make(map[string]bool, len(history[id]))
		for t := range history[id] {
			out[id][t] = true
		}
	}
	return out
}

// greedyPairings gives each player, in sorted order, the two valid candidates
// that have received the fewest bribes so far.
func greedyPairings(ids []string, hist map[string]map[string]bool) map[string][]string {
	received := make(map[string]int, len(ids))
	pairings := make(map[string][]string, len(ids))

	for _, id := range ids {
		candidates := make([]string, 0, len(ids)-1)
		for _, c := range ids {
			if c != id && !hist[id][c] {
				candidates = append(candidates, c)
			}
		}

		// Not enough novel targets left: start this player's history over.
		if len(candidates) < 2 {
			hist[id] = make(map[string]bool)
			candidates = candidates[:0]
			for _, c := range ids {
				if c != id {
					candidates = append(candidates, c)
				}
			}
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			return received[candidates[i]] < received[candidates[j]]
		})

		targets := append([]string(nil), candidates[:2]...)
		for _, t := range targets {
			received[t]++
			hist[id][t] = true
		}
		pairings[id] = targets
	}
	return pairings
}

// balancePairings redirects single target slots from over-targeted players to
// under-targeted ones until every player receives exactly two bribes. Each
// successful redirection strictly shrinks the imbalance, so the loop
// terminates. Returns false if no legal redirection exists before balance is
// reached.
func balancePairings(pairings map[string][]string, ids []string, hist map[string]map[string]bool) bool {
	received := receivedCounts(pairings, ids)

	for i := 0; i <= len(ids)*len(ids); i++ {
		donor, recipient := "", ""
		for _, id := range ids {
			if donor == "" && received[id] > 2 {
				donor = id
			}
			if recipient == "" && received[id] < 2 {
				recipient = id
			}
		}
		if donor == "" && recipient == "" {
			return true
		}

		redirected := false
		for _, assignor := range ids {
			if assignor == recipient {
				continue
			}
			targets := pairings[assignor]
			if indexOf(targets, donor) < 0 || indexOf(targets, recipient) >= 0 {
				continue
			}
			targets[indexOf(targets, donor)] = recipient
			received[donor]--
			received[recipient]++
			delete(hist[assignor], donor)
			hist[assignor][recipient] = true
			redirected = true
			break
		}
		if !redirected {
			return false
		}
	}
	return false
}

// resolveSelfTargets swaps away any self-assignment via another player's
// target list. Returns false if a self-target cannot be swapped safely.
func resolveSelfTargets(pairings map[string][]string, ids []string, hist map[string]map[string]bool) bool {
	for _, id := range ids {
		targets := pairings[id]
		if indexOf(targets, id) < 0 {
			continue
		}

		fixed := false
		for _, other := range ids {
			if other == id || indexOf(pairings[other], id) >= 0 {
				continue
			}
			for i, t := range pairings[other] {
				if t == other || indexOf(targets, t) >= 0 {
					continue
				}
				targets[indexOf(targets, id)] = t
				pairings[other][i] = id
				delete(hist[other], t)
				hist[other][id] = true
				hist[id][t] = true
				fixed = true
				break
			}
			if fixed {
				break
			}
		}
		if !fixed {
			return false
		}
	}
	return true
}

// ringPairings arranges players in sorted order and has each target the next
// two around the ring. Always 2-regular and free of self-targets; for three
// players it degenerates to "everyone targets the other two".
func ringPairings(ids []string) map[string][]string {
	n := len(ids)
	pairings := make(map[string][]string, n)
	for i, id := range ids {
		pairings[id] = []string{ids[(i+1)%n], ids[(i+2)%n]}
	}
	return pairings
}

func validPairings(pairings map[string][]string, ids []string) bool {
	received := receivedCounts(pairings, ids)
	for _, id := range ids {
		targets := pairings[id]
		if len(targets) != 2 || targets[0] == targets[1] {
			return false
		}
		for _, t := range targets {
			if t == id {
				return false
			}
		}
		if received[id] != 2 {
			return false
		}
	}
	return true
}

func receivedCounts(pairings map[string][]string, ids []string) map[string]int {
	received := make(map[string]int, len(ids))
	for _, id := range ids {
		received[id] = 0
	}
	for _, targets := range pairings {
		for _, t := range targets {
			received[t]++
		}
	}
	return received
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
