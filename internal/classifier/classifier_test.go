package classifier

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeArtifact writes a model artifact to a temp file and returns its path.
func writeArtifact(t *testing.T, m modelFile) string {
	t.Helper()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

// testModel is a small three-class model where each class has one
// strongly weighted token.
func testModel() modelFile {
	return modelFile{
		Classes: []string{"anger", "happy", "sadness"},
		Vocabulary: map[string]int{
			"furious": 0,
			"happy":   1,
			"crying":  2,
			"today":   3,
		},
		Coefficients: [][]float64{
			{4.0, -1.0, -1.0, 0.1},
			{-1.0, 4.0, -1.0, 0.1},
			{-1.0, -1.0, 4.0, 0.1},
		},
		Intercepts: []float64{0.0, 0.2, 0.1},
	}
}

func loadTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	clf, err := Load(writeArtifact(t, testModel()))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return clf
}

func TestLoadMissingArtifact(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestLoadRejectsMismatchedShapes(t *testing.T) {
	m := testModel()
	m.Intercepts = []float64{0.0} // 1 intercept for 3 classes

	_, err := Load(writeArtifact(t, m))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable for bad shapes, got %v", err)
	}
}

func TestLoadRejectsVocabularyOutOfRange(t *testing.T) {
	m := testModel()
	m.Vocabulary["overflow"] = 99

	_, err := Load(writeArtifact(t, m))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable for out-of-range vocabulary, got %v", err)
	}
}

func TestClassifyHappyText(t *testing.T) {
	clf := loadTestClassifier(t)

	pred := clf.Classify("I am so happy today")
	if pred.Label != "happy" {
		t.Errorf("Expected label happy, got %q", pred.Label)
	}
	if pred.Confidence <= 1.0/3.0 {
		t.Errorf("Expected confidence above uniform, got %f", pred.Confidence)
	}
}

func TestClassifyLabelIsArgmax(t *testing.T) {
	clf := loadTestClassifier(t)

	for _, text := range []string{
		"I am furious about this",
		"happy happy happy",
		"crying all day today",
		"nothing in vocabulary here",
		"",
	} {
		pred := clf.Classify(text)

		best := pred.Distribution[0]
		for _, cp := range pred.Distribution[1:] {
			if cp.Probability > best.Probability {
				best = cp
			}
		}
		if pred.Label != best.Label {
			t.Errorf("Classify(%q): label %q is not the argmax %q", text, pred.Label, best.Label)
		}
		if pred.Confidence != best.Probability {
			t.Errorf("Classify(%q): confidence %f != max probability %f", text, pred.Confidence, best.Probability)
		}
	}
}

func TestClassifyDistributionSumsToOne(t *testing.T) {
	clf := loadTestClassifier(t)

	pred := clf.Classify("happy and crying and furious today")
	var sum float64
	for _, cp := range pred.Distribution {
		if cp.Probability < 0 || cp.Probability > 1 {
			t.Errorf("Probability for %q out of range: %f", cp.Label, cp.Probability)
		}
		sum += cp.Probability
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("Expected distribution to sum to 1, got %f", sum)
	}
}

func TestClassifyPreservesClassOrder(t *testing.T) {
	clf := loadTestClassifier(t)

	pred := clf.Classify("whatever")
	classes := clf.Classes()
	if len(pred.Distribution) != len(classes) {
		t.Fatalf("Expected %d entries, got %d", len(classes), len(pred.Distribution))
	}
	for i, cp := range pred.Distribution {
		if cp.Label != classes[i] {
			t.Errorf("Distribution[%d] = %q, expected canonical class %q", i, cp.Label, classes[i])
		}
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	clf := loadTestClassifier(t)

	lower := clf.Classify("happy today")
	upper := clf.Classify("HAPPY TODAY")
	if lower.Label != upper.Label || lower.Confidence != upper.Confidence {
		t.Errorf("Case changed the prediction: %+v vs %+v", lower, upper)
	}
}

func TestEmojiFor(t *testing.T) {
	emoji, err := EmojiFor("happy")
	if err != nil {
		t.Fatalf("EmojiFor(happy) failed: %v", err)
	}
	if emoji != "🤗" {
		t.Errorf("Expected 🤗, got %q", emoji)
	}
}

func TestEmojiForUnknownLabel(t *testing.T) {
	_, err := EmojiFor("melancholy")
	if !errors.Is(err, ErrUnknownLabel) {
		t.Errorf("Expected ErrUnknownLabel, got %v", err)
	}
}
