package game

import (
	"math/rand"
	"os"
	"strings"
)

// PromptSource supplies the candidate prompts a round can use.
type PromptSource interface {
	Prompts() []string
}

// FallbackSource produces system-generated bribes substituted for players who
// miss the submission deadline. These are worth half points when voted for.
type FallbackSource interface {
	RandomBribe() Bribe
}

type StaticPrompts []string

func (p StaticPrompts) Prompts() []string { return p }

// DefaultPrompts is the built-in prompt list used when no prompt file is
// configured.
func DefaultPrompts() StaticPrompts {
	return StaticPrompts{
		"A funny haiku",
		"Your favorite meme",
		"A gif that describes your mood",
		"Something that would make them laugh",
		"A random fact",
		"A terrible dad joke",
		"An inspirational quote",
		"A picture of something cute",
	}
}

// LoadPromptFile reads one prompt per non-empty line.
func LoadPromptFile(path string) (StaticPrompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var prompts StaticPrompts
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			prompts = append(prompts, line)
		}
	}
	return prompts, nil
}

type randomBribes struct{}

// NewFallbackSource returns the default fallback generator.
func NewFallbackSource() FallbackSource { return randomBribes{} }

var fallbackPhrases = []string{
	"A heartfelt IOU for one (1) favor",
	"Half a sandwich, slightly squished",
	"An interpretive dance, performed on request",
	"Exclusive rights to the good chair",
	"A coupon for unlimited high fives",
	"One sincere compliment, redeemable anytime",
	"The last slice of pizza, no questions asked",
	"A handmade crown of paperclips",
}

func (randomBribes) RandomBribe() Bribe {
	return Bribe{
		Content:           fallbackPhrases[rand.Intn(len(fallbackPhrases))],
		ContentType:       "text",
		IsSystemGenerated: true,
	}
}

func randomPrompt(src PromptSource) string {
	prompts := src.Prompts()
	if len(prompts) == 0 {
		prompts = DefaultPrompts()
	}
	return prompts[rand.Intn(len(prompts))]
}
