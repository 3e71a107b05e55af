// Package pipeline drives one document through extraction, parsing,
// classification and entry generation. Only extraction can fail a run;
// everything downstream degrades into diagnostics so a partly readable
// passbook still yields entries.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Mortuwu/Accounts-easing/internal/categorizer"
	"github.com/Mortuwu/Accounts-easing/internal/extractor"
	"github.com/Mortuwu/Accounts-easing/internal/journal"
	"github.com/Mortuwu/Accounts-easing/internal/parser"
)

// State of a conversion run.
type State string

const (
	StateExtracting  State = "extracting"
	StateParsing     State = "parsing"
	StateClassifying State = "classifying"
	StateGenerating  State = "generating"
	StateDone        State = "done"
	// StateFailed is reachable only from extraction.
	StateFailed State = "failed"
)

// Stage interfaces, satisfied by the concrete implementations in their
// packages and by stubs in tests.
type (
	TextExtractor interface {
		Extract(ctx context.Context, data []byte) ([]extractor.TextBlock, error)
	}
	LineParser interface {
		Parse(blocks []extractor.TextBlock) *parser.Result
	}
	Classifier interface {
		ClassifyBatch(txs []parser.RawTransaction) []categorizer.Classified
	}
	EntryGenerator interface {
		Generate(txs []categorizer.Classified) *journal.Result
	}
)

// Warning is a stage observation with its source reference.
type Warning struct {
	Stage   string
	Kind    string
	Page    int
	Line    int
	Message string
}

// Diagnostics summarizes what happened to the document on its way through.
type Diagnostics struct {
	Pages        int
	DigitalPages int
	OCRPages     int
	FailedPages  int
	LinesSeen    int
	LinesParsed  int
	LinesSkipped int
	Classified   int
	Unclassified int
	Entries      int
	Suspense     int
	Warnings     []Warning
	Duration     time.Duration
}

// Result of one conversion run.
type Result struct {
	RunID        uuid.UUID
	State        State
	Entries      []journal.Entry
	Transactions []categorizer.Classified
	Diagnostics  Diagnostics
}

// Pipeline wires the four stages. Accepts interfaces so callers can swap
// any stage; safe for concurrent use when the stages are.
type Pipeline struct {
	extractor  TextExtractor
	parser     LineParser
	classifier Classifier
	generator  EntryGenerator
	logger     *slog.Logger
}

// New assembles a Pipeline.
func New(ex TextExtractor, p LineParser, c Classifier, g EntryGenerator, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor:  ex,
		parser:     p,
		classifier: c,
		generator:  g,
		logger:     logger,
	}
}

// Convert runs one document through all stages. The returned error is
// non-nil only for a fatal extraction failure or context cancellation; an
// empty or unreadable-but-openable document completes with StateDone and
// zero entries.
func (p *Pipeline) Convert(ctx context.Context, data []byte) (*Result, error) {
	start := time.Now()
	result := &Result{
		RunID: uuid.New(),
		State: StateExtracting,
	}
	logger := p.logger.With(slog.String("run_id", result.RunID.String()))

	logger.Info("extracting document text", slog.Int("bytes", len(data)))
	blocks, err := p.extractor.Extract(ctx, data)
	if err != nil {
		result.State = StateFailed
		result.Diagnostics.Duration = time.Since(start)
		logger.Error("extraction failed", slog.Any("error", err))
		return result, err
	}
	for _, b := range blocks {
		result.Diagnostics.Pages++
		switch {
		case b.Failed:
			result.Diagnostics.FailedPages++
		case b.Source == extractor.SourceOCR:
			result.Diagnostics.OCRPages++
		default:
			result.Diagnostics.DigitalPages++
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result.State = StateParsing
	logger.Info("parsing transaction lines", slog.Int("pages", result.Diagnostics.Pages))
	parsed := p.parser.Parse(blocks)
	result.Diagnostics.LinesSeen = parsed.LinesSeen
	result.Diagnostics.LinesParsed = parsed.LinesParsed
	result.Diagnostics.LinesSkipped = parsed.LinesSkipped
	for _, w := range parsed.Warnings {
		result.Diagnostics.Warnings = append(result.Diagnostics.Warnings, Warning{
			Stage:   "parser",
			Kind:    w.Kind,
			Page:    w.Page,
			Line:    w.Line,
			Message: w.Message,
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result.State = StateClassifying
	logger.Info("classifying transactions", slog.Int("transactions", len(parsed.Transactions)))
	result.Transactions = p.classifier.ClassifyBatch(parsed.Transactions)
	for _, tx := range result.Transactions {
		if tx.Method == categorizer.MethodUnclassified {
			result.Diagnostics.Unclassified++
		} else {
			result.Diagnostics.Classified++
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result.State = StateGenerating
	generated := p.generator.Generate(result.Transactions)
	result.Entries = generated.Entries
	result.Diagnostics.Entries = len(generated.Entries)
	result.Diagnostics.Suspense = generated.Suspense
	for _, me := range generated.MappingErrors {
		result.Diagnostics.Warnings = append(result.Diagnostics.Warnings, Warning{
			Stage:   "journal",
			Kind:    "mapping_error",
			Page:    me.Page,
			Line:    me.Line,
			Message: me.Error(),
		})
	}

	if err := journal.Validate(result.Entries); err != nil {
		// Generation guarantees balance; reaching this means a bug, not
		// bad input. Surface it loudly but keep the run's output.
		logger.Error("generated entries failed validation", slog.Any("error", err))
	}

	result.State = StateDone
	result.Diagnostics.Duration = time.Since(start)
	logger.Info("conversion complete",
		slog.Int("entries", result.Diagnostics.Entries),
		slog.Int("suspense", result.Diagnostics.Suspense),
		slog.Int("warnings", len(result.Diagnostics.Warnings)),
		slog.Duration("duration", result.Diagnostics.Duration))

	return result, nil
}
