// Package categorizer assigns a spending category to each parsed
// transaction through a strict tier ladder: exact phrase rules, then keyword
// rules, then a learned model, and finally Uncategorized when nothing is
// confident enough. A higher tier always wins regardless of lower-tier
// confidence.
package categorizer

import (
	"log/slog"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/Mortuwu/Accounts-easing/internal/extractor"
	"github.com/Mortuwu/Accounts-easing/internal/parser"
)

// CategoryUncategorized is the fallback category for transactions no tier
// could place.
const CategoryUncategorized = "Uncategorized"

// Method identifies which tier produced a classification.
type Method string

const (
	MethodExactRule    Method = "exact-rule"
	MethodKeywordRule  Method = "keyword-rule"
	MethodLearnedModel Method = "learned-model"
	MethodUnclassified Method = "unclassified"
)

// Tier confidences are fixed: rules are trusted absolutely, keywords
// strongly, and the model speaks for itself.
const (
	exactConfidence   = 1.0
	keywordConfidence = 0.8
)

// Rule is one declared category with its exact phrases and keywords.
// Declaration order is the keyword tie-break: earlier rules win.
type Rule struct {
	Category string
	Phrases  []string
	Keywords []string
}

// Classified is a transaction with its assigned category.
type Classified struct {
	parser.RawTransaction
	Category   string
	Method     Method
	Confidence float64
}

// phraseEntry is a normalized exact phrase, kept in declaration order for
// the OCR fuzzy assist.
type phraseEntry struct {
	phrase   string
	category string
}

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	rules         []Rule
	exact         map[string]string
	phrases       []phraseEntry
	engine        *keywordEngine
	model         *Model
	minConfidence float64
	logger        *slog.Logger
}

// Option customises a Classifier.
type Option func(*Classifier)

// WithMinConfidence sets the floor below which model predictions are
// downgraded to Uncategorized.
func WithMinConfidence(min float64) Option {
	return func(c *Classifier) { c.minConfidence = min }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) { c.logger = logger }
}

// New builds a Classifier over an ordered rule list and an optional learned
// model (nil disables the model tier).
func New(rules []Rule, model *Model, opts ...Option) *Classifier {
	c := &Classifier{
		rules:         rules,
		exact:         make(map[string]string),
		engine:        newKeywordEngine(rules),
		model:         model,
		minConfidence: 0.5,
		logger:        slog.Default(),
	}

	for _, rule := range rules {
		for _, phrase := range rule.Phrases {
			normalized := normalizeText(phrase)
			if normalized == "" {
				continue
			}
			// First declaration wins on duplicate phrases.
			if _, exists := c.exact[normalized]; !exists {
				c.exact[normalized] = rule.Category
			}
			c.phrases = append(c.phrases, phraseEntry{phrase: normalized, category: rule.Category})
		}
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify assigns a category to one transaction.
func (c *Classifier) Classify(tx parser.RawTransaction) Classified {
	out := Classified{
		RawTransaction: tx,
		Category:       CategoryUncategorized,
		Method:         MethodUnclassified,
		Confidence:     0,
	}

	normalized := normalizeText(tx.Description)

	if category, ok := c.exactMatch(normalized, tx.Source); ok {
		out.Category = category
		out.Method = MethodExactRule
		out.Confidence = exactConfidence
		return out
	}

	if category, ok := c.engine.Match(normalized); ok {
		out.Category = category
		out.Method = MethodKeywordRule
		out.Confidence = keywordConfidence
		return out
	}

	if c.model != nil {
		category, confidence := c.model.Predict(tx.Description, tx.Direction, tx.Amount)
		if category != "" && confidence >= c.minConfidence {
			out.Category = category
			out.Method = MethodLearnedModel
			out.Confidence = confidence
			return out
		}
		c.logger.Debug("model prediction below threshold",
			slog.String("description", tx.Description),
			slog.String("category", category),
			slog.Float64("confidence", confidence))
	}

	return out
}

// ClassifyBatch classifies transactions in order.
func (c *Classifier) ClassifyBatch(txs []parser.RawTransaction) []Classified {
	out := make([]Classified, 0, len(txs))
	for _, tx := range txs {
		out = append(out, c.Classify(tx))
	}
	return out
}

// exactMatch looks the normalized description up in the phrase table. OCR
// text additionally tolerates a single misread character: a phrase within
// Levenshtein distance 1 still counts as exact, earliest declaration first.
func (c *Classifier) exactMatch(normalized string, source extractor.Source) (string, bool) {
	if normalized == "" {
		return "", false
	}
	if category, ok := c.exact[normalized]; ok {
		return category, true
	}

	if source != extractor.SourceOCR {
		return "", false
	}
	for _, entry := range c.phrases {
		if fuzzy.LevenshteinDistance(normalized, entry.phrase) <= 1 {
			return entry.category, true
		}
	}
	return "", false
}
