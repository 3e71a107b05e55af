package categorizer

import (
	"errors"
	"math"
	"strings"

	"github.com/jbrukh/bayesian"

	"github.com/Mortuwu/Accounts-easing/internal/parser"
	"github.com/Mortuwu/Accounts-easing/pkg/money"
)

// ErrInsufficientClasses is returned when the training set covers fewer than
// two categories; a one-class model cannot discriminate anything.
var ErrInsufficientClasses = errors.New("training set needs at least two categories")

// Sample is one labeled description used to train the model tier. Amount is
// optional and in major units.
type Sample struct {
	Description string
	Direction   parser.Direction
	Amount      float64
	Category    string
}

// Model is the learned classification tier: a TF-IDF naive Bayes text
// classifier over description terms plus direction and amount-bucket tokens.
type Model struct {
	classifier *bayesian.Classifier
	classes    []bayesian.Class
}

// TrainModel builds a Model from labeled samples. Categories keep their
// first-seen order, which only affects internal indexing, not predictions.
func TrainModel(samples []Sample) (*Model, error) {
	var classes []bayesian.Class
	seen := map[string]bool{}
	for _, s := range samples {
		if s.Category == "" || seen[s.Category] {
			continue
		}
		seen[s.Category] = true
		classes = append(classes, bayesian.Class(s.Category))
	}
	if len(classes) < 2 {
		return nil, ErrInsufficientClasses
	}

	classifier := bayesian.NewClassifierTfIdf(classes...)
	for _, s := range samples {
		if s.Category == "" {
			continue
		}
		terms := featureTerms(s.Description, s.Direction, s.Amount)
		if len(terms) == 0 {
			continue
		}
		classifier.Learn(terms, bayesian.Class(s.Category))
	}
	classifier.ConvertTermsFreqToTfIdf()

	return &Model{classifier: classifier, classes: classes}, nil
}

// Predict scores a transaction and returns the best category with a softmax
// confidence in 0..1.
func (m *Model) Predict(description string, direction parser.Direction, amount *money.Money) (string, float64) {
	var major float64
	if amount != nil {
		major = amount.Abs().ToFloat64()
	}
	terms := featureTerms(description, direction, major)
	if len(terms) == 0 {
		return "", 0
	}

	scores, best, _ := m.classifier.LogScores(terms)

	// Log scores are unnormalized; softmax turns them into a probability
	// for the winning class.
	maxScore := scores[best]
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - maxScore)
	}
	confidence := 1.0 / sum

	return string(m.classes[best]), confidence
}

// featureTerms tokenizes a description for the model: lowercase words with
// digits and one-letter fragments dropped, plus a direction token and a
// coarse amount bucket.
func featureTerms(description string, direction parser.Direction, amountMajor float64) []string {
	normalized := strings.ToLower(normalizeText(description))

	var terms []string
	for _, tok := range strings.Fields(normalized) {
		if len(tok) < 2 || isDigits(tok) {
			continue
		}
		terms = append(terms, tok)
	}
	if len(terms) == 0 {
		return nil
	}

	if direction != "" {
		terms = append(terms, "dir:"+string(direction))
	}
	switch {
	case amountMajor <= 0:
	case amountMajor < 500:
		terms = append(terms, "amt:small")
	case amountMajor < 5000:
		terms = append(terms, "amt:medium")
	default:
		terms = append(terms, "amt:large")
	}

	return terms
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
