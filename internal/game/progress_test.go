package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressMessages(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("0/5 players finished",
		submissionProgressMessage(0, 5, []string{"A", "B", "C", "D", "E"}))
	assert.Equal("Waiting for Dana and Eli",
		submissionProgressMessage(3, 5, []string{"Dana", "Eli"}))
	assert.Equal("Waiting for Eli",
		submissionProgressMessage(4, 5, []string{"Eli"}))
	assert.Equal("All players finished! Moving to voting...",
		submissionProgressMessage(5, 5, nil))

	assert.Equal("1/4 players voted",
		votingProgressMessage(1, 4, []string{"B", "C", "D"}))
	assert.Equal("All votes submitted! Calculating results...",
		votingProgressMessage(4, 4, nil))
}
