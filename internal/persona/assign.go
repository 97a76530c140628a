package persona

import (
	"math"
	"math/rand/v2"
)

// Weights maps a persona to either an absolute count or a proportion of the
// population. A table whose weights are all at most 1 and sum to 1 is read as
// proportions; anything else is read as counts.
type Weights map[Persona]float64

// EvenWeights splits n users evenly across the taxonomy. The remainder is left
// for Expand to pad with Default.
func EvenWeights(n int) Weights {
	w := make(Weights, len(All))
	per := n / len(All)
	for _, p := range All {
		w[p] = float64(per)
	}
	return w
}

// Counts resolves the weights into absolute counts for a population of n.
func (w Weights) Counts(n int) map[Persona]int {
	proportional := len(w) > 0
	var sum float64
	for _, v := range w {
		sum += v
		if v > 1 {
			proportional = false
		}
	}
	if math.Abs(sum-1) > 1e-6 {
		proportional = false
	}

	counts := make(map[Persona]int, len(All))
	for _, p := range All {
		v := w[p]
		if v <= 0 {
			continue
		}
		if proportional {
			counts[p] = int(math.Floor(v * float64(n)))
		} else {
			counts[p] = int(math.Round(v))
		}
	}
	return counts
}

// Expand builds the unshuffled label sequence: each persona repeated by its
// count in taxonomy order, then padded with Default up to n. The result may be
// longer than n when the configured counts exceed it.
func Expand(n int, w Weights) []Persona {
	counts := w.Counts(n)
	labels := make([]Persona, 0, n)
	for _, p := range All {
		for i := 0; i < counts[p]; i++ {
			labels = append(labels, p)
		}
	}
	for len(labels) < n {
		labels = append(labels, Default)
	}
	return labels
}

// Assign returns n persona labels matching the weights, in random order.
// When the configured counts exceed n the shuffled sequence is truncated.
func Assign(rng *rand.Rand, n int, w Weights) []Persona {
	if n <= 0 {
		return nil
	}
	labels := Expand(n, w)
	rng.Shuffle(len(labels), func(i, j int) {
		labels[i], labels[j] = labels[j], labels[i]
	})
	return labels[:n]
}

// Tally counts labels per persona.
func Tally(labels []Persona) map[Persona]int {
	out := make(map[Persona]int, len(All))
	for _, p := range labels {
		out[p]++
	}
	return out
}
