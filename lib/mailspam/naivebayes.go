package mailspam

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
)

// naiveBayes is a multinomial naive bayes estimator over tf-idf features.
// learned parameters are exported from a fitted model: per-class log prior and per-class feature log probabilities.
type naiveBayes struct {
	Classes        []int       `json:"classes"`
	ClassLogPrior  []float64   `json:"class_log_prior"`
	FeatureLogProb [][]float64 `json:"feature_log_prob"`
}

// loadNaiveBayes reads naive bayes parameters from json
func loadNaiveBayes(r io.Reader) (*naiveBayes, error) {
	nb := naiveBayes{}
	if err := json.NewDecoder(r).Decode(&nb); err != nil {
		return nil, fmt.Errorf("can't decode naive bayes model, %w", err)
	}
	if len(nb.Classes) < 2 {
		return nil, fmt.Errorf("naive bayes needs at least 2 classes, got %d", len(nb.Classes))
	}
	if len(nb.ClassLogPrior) != len(nb.Classes) || len(nb.FeatureLogProb) != len(nb.Classes) {
		return nil, fmt.Errorf("naive bayes shape mismatch, classes:%d, priors:%d, features:%d",
			len(nb.Classes), len(nb.ClassLogPrior), len(nb.FeatureLogProb))
	}
	for i := 1; i < len(nb.FeatureLogProb); i++ {
		if len(nb.FeatureLogProb[i]) != len(nb.FeatureLogProb[0]) {
			return nil, fmt.Errorf("naive bayes feature size mismatch for class %d", nb.Classes[i])
		}
	}
	return &nb, nil
}

// Predict returns true if the most probable class is spam (1) with the probability of spam class
func (nb *naiveBayes) Predict(x Features) (spam bool, prob float64) {
	jll := make([]float64, len(nb.Classes))
	for c := range nb.Classes {
		jll[c] = nb.ClassLogPrior[c]
		for idx, val := range x {
			if idx < 0 || idx >= len(nb.FeatureLogProb[c]) {
				continue
			}
			jll[c] += val * nb.FeatureLogProb[c][idx]
		}
	}

	probs := softmax(jll)
	best := 0
	for c := range probs {
		if probs[c] > probs[best] {
			best = c
		}
	}

	for c, class := range nb.Classes {
		if class == 1 {
			prob = probs[c]
		}
	}
	return nb.Classes[best] == 1, prob
}

// softmax converts log probabilities to normalized probabilities,
// shifted by max value to avoid overflow on large log-likelihoods
func softmax(logProbs []float64) []float64 {
	maxLog := math.Inf(-1)
	for _, lp := range logProbs {
		maxLog = math.Max(maxLog, lp)
	}

	sum := 0.0
	probs := make([]float64, len(logProbs))
	for i, lp := range logProbs {
		probs[i] = math.Exp(lp - maxLog)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
