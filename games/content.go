/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Seednode/gamenight/session"
)

// WordSource supplies categorised word lists: charade words for Quiz and
// secret keywords for Liar.
type WordSource interface {
	Categories() []string
	Words(category string) ([]string, error)
}

// Wordlist is an in-memory WordSource.
type Wordlist map[string][]string

func (w Wordlist) Categories() []string {
	return slices.Sorted(maps.Keys(w))
}

func (w Wordlist) Words(category string) ([]string, error) {
	words, ok := w[strings.ToLower(strings.TrimSpace(category))]
	if !ok || len(words) == 0 {
		return nil, fmt.Errorf("%w: unknown category %q", session.ErrBadRequest, category)
	}

	return slices.Clone(words), nil
}

var QuizWords = Wordlist{
	"animals": {"giraffe", "penguin", "kangaroo", "octopus", "flamingo", "chameleon", "hedgehog", "walrus"},
	"movies":  {"titanic", "jaws", "frozen", "inception", "rocky", "alien", "grease", "psycho"},
	"jobs":    {"firefighter", "dentist", "pilot", "chef", "magician", "lifeguard", "plumber", "astronaut"},
	"sports":  {"fencing", "surfing", "curling", "bowling", "archery", "rowing", "skiing", "boxing"},
}

var LiarWords = Wordlist{
	"animals": {"lion", "elephant", "rabbit", "shark", "owl", "tiger", "horse", "dolphin"},
	"food":    {"pizza", "kimchi", "sushi", "pancake", "burrito", "dumpling", "curry", "bagel"},
	"places":  {"library", "airport", "hospital", "beach", "museum", "prison", "casino", "bakery"},
	"objects": {"umbrella", "toothbrush", "ladder", "mirror", "candle", "backpack", "scissors", "pillow"},
}

// Verdict is the outcome of a Truth answer.
type Verdict struct {
	Stress  float64 `json:"stress"`
	Lie     bool    `json:"lie"`
	Samples int     `json:"samples"`
}

// Scorer turns the stress samples reported while a player answered into a
// verdict.
type Scorer interface {
	Verdict(answerer string, samples []float64) Verdict
}

const DefaultLieThreshold = 55

// StressThreshold calls an answer a lie when the mean stress level reaches
// Threshold.
type StressThreshold struct {
	Threshold float64
}

func (s StressThreshold) Verdict(_ string, samples []float64) Verdict {
	if len(samples) == 0 {
		return Verdict{}
	}

	var sum float64
	for _, v := range samples {
		sum += v
	}
	mean := sum / float64(len(samples))

	threshold := s.Threshold
	if threshold <= 0 {
		threshold = DefaultLieThreshold
	}

	return Verdict{Stress: mean, Lie: mean >= threshold, Samples: len(samples)}
}
