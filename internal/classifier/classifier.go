// Package classifier wraps the trained emotion model: it loads the
// exported artifact at startup and turns raw text into a label, a
// confidence score, and a full probability distribution.
//
// The artifact is a JSON export of the trained text pipeline (a
// bag-of-words vectorizer feeding a linear model): canonical class
// order, token vocabulary, one coefficient row per class, and the
// intercepts. The model itself is an opaque dependency; this package
// only evaluates it.
package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
)

// ErrUnavailable is returned when the model artifact could not be
// loaded. Prediction is disabled for the life of the process; the rest
// of the application keeps running.
var ErrUnavailable = errors.New("classifier unavailable")

// tokenPattern matches the vectorizer's token rule: runs of two or more
// word characters.
var tokenPattern = regexp.MustCompile(`\w\w+`)

// modelFile is the on-disk artifact layout.
type modelFile struct {
	Classes    []string       `json:"classes"`
	Vocabulary map[string]int `json:"vocabulary"`
	// Coefficients holds one row per class, indexed by vocabulary position.
	Coefficients [][]float64 `json:"coefficients"`
	Intercepts   []float64   `json:"intercepts"`
}

// ClassProbability is one entry of the probability distribution. The
// distribution preserves the classifier's canonical class order, so the
// argmax of the distribution and the predicted label always agree.
type ClassProbability struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Prediction is the result of classifying one text input.
type Prediction struct {
	Label        string             `json:"label"`
	Confidence   float64            `json:"confidence"`
	Distribution []ClassProbability `json:"distribution"`
}

// Classifier evaluates the loaded model.
type Classifier struct {
	model modelFile
}

// Load reads and validates the model artifact. A load failure is fatal
// to prediction only: callers should disable the predictive view and
// keep serving everything else.
func Load(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read artifact: %v", ErrUnavailable, err)
	}

	var m modelFile
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parse artifact: %v", ErrUnavailable, err)
	}

	if err := validateModel(m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &Classifier{model: m}, nil
}

func validateModel(m modelFile) error {
	if len(m.Classes) < 2 {
		return fmt.Errorf("artifact has %d classes, need at least 2", len(m.Classes))
	}
	if len(m.Coefficients) != len(m.Classes) {
		return fmt.Errorf("artifact has %d coefficient rows for %d classes", len(m.Coefficients), len(m.Classes))
	}
	if len(m.Intercepts) != len(m.Classes) {
		return fmt.Errorf("artifact has %d intercepts for %d classes", len(m.Intercepts), len(m.Classes))
	}
	features := len(m.Coefficients[0])
	for i, row := range m.Coefficients {
		if len(row) != features {
			return fmt.Errorf("coefficient row %d has %d features, expected %d", i, len(row), features)
		}
	}
	for token, idx := range m.Vocabulary {
		if idx < 0 || idx >= features {
			return fmt.Errorf("vocabulary entry %q maps to index %d, outside %d features", token, idx, features)
		}
	}
	return nil
}

// Classes returns the canonical class ordering of the model.
func (c *Classifier) Classes() []string {
	out := make([]string, len(c.model.Classes))
	copy(out, c.model.Classes)
	return out
}

// Classify scores text against every class and returns the best label,
// its confidence (the maximum probability), and the full distribution
// in canonical class order.
func (c *Classifier) Classify(text string) Prediction {
	counts := c.featurize(text)

	scores := make([]float64, len(c.model.Classes))
	for i := range c.model.Classes {
		score := c.model.Intercepts[i]
		row := c.model.Coefficients[i]
		for idx, n := range counts {
			score += row[idx] * n
		}
		scores[i] = score
	}

	probs := softmax(scores)

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	dist := make([]ClassProbability, len(probs))
	for i, p := range probs {
		dist[i] = ClassProbability{Label: c.model.Classes[i], Probability: p}
	}

	return Prediction{
		Label:        c.model.Classes[best],
		Confidence:   probs[best],
		Distribution: dist,
	}
}

// featurize maps text to sparse token counts keyed by vocabulary index.
// Tokens outside the vocabulary are ignored.
func (c *Classifier) featurize(text string) map[int]float64 {
	counts := make(map[int]float64)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if idx, ok := c.model.Vocabulary[token]; ok {
			counts[idx]++
		}
	}
	return counts
}

// softmax converts raw scores to a probability distribution. Scores are
// shifted by their maximum for numerical stability.
func softmax(scores []float64) []float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(s - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
