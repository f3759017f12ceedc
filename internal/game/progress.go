package game

import "fmt"

// Progress messages mirror what players see on the waiting screen: names once
// two or fewer stragglers remain, a counter otherwise.

func progressMessage(completed, total int, pendingNames []string, doneMsg, verb string) string {
	switch {
	case completed == total:
		return doneMsg
	case len(pendingNames) == 1:
		return fmt.Sprintf("Waiting for %s", pendingNames[0])
	case len(pendingNames) == 2:
		return fmt.Sprintf("Waiting for %s and %s", pendingNames[0], pendingNames[1])
	default:
		return fmt.Sprintf("%d/%d players %s", completed, total, verb)
	}
}

func submissionProgressMessage(completed, total int, pendingNames []string) string {
	return progressMessage(completed, total, pendingNames, "All players finished! Moving to voting...", "finished")
}

func votingProgressMessage(completed, total int, pendingNames []string) string {
	return progressMessage(completed, total, pendingNames, "All votes submitted! Calculating results...", "voted")
}
