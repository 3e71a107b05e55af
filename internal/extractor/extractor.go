// Package extractor turns passbook/statement PDF bytes into per-page text
// blocks. Pages with a usable digital text layer are read directly; scanned
// pages fall back to OCR. Per-page failures never abort the document.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// Source identifies how a page's text was obtained.
type Source string

const (
	SourceDigital Source = "digital"
	SourceOCR     Source = "ocr"
)

// TextBlock is the extracted text of a single page. Blocks are returned in
// page order, one per input page. Failed pages carry Failed=true, empty text
// and zero confidence.
type TextBlock struct {
	Page       int
	Text       string
	Source     Source
	Confidence float64
	Failed     bool
}

// ExtractionError is fatal: the document itself could not be opened. Per-page
// problems are reported through failed blocks instead.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Config controls text-layer acceptance and the OCR fallback.
type Config struct {
	// MinTextChars is the minimum usable text-layer length before a page is
	// handed to OCR.
	MinTextChars int
	DPI          int
	Timeout      time.Duration
	Workers      int
	Language     string
}

// DefaultConfig mirrors the settings that work well for Indian bank
// passbooks: 300 DPI renders and a 60s per-page OCR budget.
func DefaultConfig() Config {
	return Config{
		MinTextChars: 100,
		DPI:          300,
		Timeout:      60 * time.Second,
		Workers:      2,
		Language:     "eng",
	}
}

// Extractor reads statement PDFs. Safe for concurrent use.
type Extractor struct {
	cfg      Config
	renderer Renderer
	engine   OCREngine
	logger   *slog.Logger
}

// Option customises an Extractor.
type Option func(*Extractor)

// WithRenderer replaces the pdftoppm page rasterizer.
func WithRenderer(r Renderer) Option {
	return func(e *Extractor) { e.renderer = r }
}

// WithOCREngine replaces the tesseract recognizer.
func WithOCREngine(engine OCREngine) Option {
	return func(e *Extractor) { e.engine = engine }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// New builds an Extractor with pdftoppm/tesseract defaults.
func New(cfg Config, opts ...Option) *Extractor {
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 100
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}

	e := &Extractor{
		cfg:      cfg,
		renderer: &pdftoppmRenderer{},
		engine:   &tesseractEngine{language: cfg.Language},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns one TextBlock per page, in page order. It returns a
// *ExtractionError only when the document cannot be opened at all; scanned,
// garbled or unrecognizable pages degrade into OCR or failed blocks.
func (e *Extractor) Extract(ctx context.Context, data []byte) ([]TextBlock, error) {
	reader, err := openReader(data)
	if err != nil {
		return nil, &ExtractionError{Reason: "cannot open document", Err: err}
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, &ExtractionError{Reason: "document has no pages"}
	}

	blocks := make([]TextBlock, numPages)
	var ocrPages []int

	for i := 1; i <= numPages; i++ {
		text := e.pageText(reader, i)
		if len(strings.TrimSpace(text)) >= e.cfg.MinTextChars && isReadableText(text) {
			blocks[i-1] = TextBlock{
				Page:       i,
				Text:       text,
				Source:     SourceDigital,
				Confidence: 1.0,
			}
			continue
		}
		ocrPages = append(ocrPages, i)
	}

	if len(ocrPages) > 0 {
		e.logger.Info("falling back to OCR",
			slog.Int("pages", len(ocrPages)),
			slog.Int("total_pages", numPages))
		e.runOCR(ctx, data, ocrPages, blocks)
	}

	return blocks, nil
}

// openReader opens the PDF, converting library panics on malformed input
// into errors.
func openReader(data []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			reader = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// pageText pulls the page's text layer, grouping glyphs into rows by Y
// coordinate and ordering columns by X. A wide horizontal gap becomes a
// double-space column separator, which the parser relies on.
func (e *Extractor) pageText(reader *pdf.Reader, pageNum int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("text layer unreadable",
				slog.Int("page", pageNum), slog.Any("cause", r))
			text = ""
		}
	}()

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}

	content := page.Content()
	if len(content.Text) == 0 {
		return ""
	}

	const rowTolerance = 2.0
	rows := make(map[int][]pdf.Text)
	var keys []int
	for _, t := range content.Text {
		key := int(t.Y / rowTolerance)
		if _, ok := rows[key]; !ok {
			keys = append(keys, key)
		}
		rows[key] = append(rows[key], t)
	}

	// PDF origin is bottom-left, so higher Y comes first on the page.
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))

	var sb strings.Builder
	for _, key := range keys {
		row := rows[key]
		sort.Slice(row, func(i, j int) bool { return row[i].X < row[j].X })

		const columnGap = 15.0
		var prevEnd float64
		for i, t := range row {
			if i > 0 {
				if t.X-prevEnd > columnGap {
					sb.WriteString("  ")
				} else if t.X > prevEnd {
					sb.WriteString(" ")
				}
			}
			sb.WriteString(t.S)
			prevEnd = t.X + t.W
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// isReadableText rejects text layers that decode into glyph soup, which
// scanned PDFs with broken font maps often produce.
func isReadableText(text string) bool {
	if text == "" {
		return false
	}

	var total, readable, letters int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if r == unicode.ReplacementChar {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			readable++
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if total == 0 {
		return false
	}

	return float64(readable)/float64(total) > 0.6 && letters > 0
}

// runOCR rasterizes and recognizes the queued pages on a bounded worker
// pool, writing results into blocks by page index so output stays in page
// order regardless of completion order.
func (e *Extractor) runOCR(ctx context.Context, data []byte, pages []int, blocks []TextBlock) {
	tmpDir, err := os.MkdirTemp("", "passbook-ocr-*")
	if err != nil {
		e.logger.Error("cannot create OCR workspace", slog.Any("error", err))
		for _, p := range pages {
			blocks[p-1] = failedBlock(p)
		}
		return
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "document.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		e.logger.Error("cannot stage document for OCR", slog.Any("error", err))
		for _, p := range pages {
			blocks[p-1] = failedBlock(p)
		}
		return
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pageNum := range jobs {
				blocks[pageNum-1] = e.ocrPage(ctx, pdfPath, tmpDir, pageNum)
			}
		}()
	}
	for _, p := range pages {
		jobs <- p
	}
	close(jobs)
	wg.Wait()
}

// ocrPage renders and recognizes one page under the per-page deadline.
func (e *Extractor) ocrPage(ctx context.Context, pdfPath, workDir string, pageNum int) TextBlock {
	pageCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	imagePath, err := e.renderer.Render(pageCtx, pdfPath, pageNum, e.cfg.DPI, workDir)
	if err != nil {
		e.logger.Warn("page render failed",
			slog.Int("page", pageNum), slog.Any("error", err))
		return failedBlock(pageNum)
	}

	text, confidence, err := e.engine.Recognize(pageCtx, imagePath)
	if err != nil {
		e.logger.Warn("ocr failed",
			slog.Int("page", pageNum), slog.Any("error", err))
		return failedBlock(pageNum)
	}

	return TextBlock{
		Page:       pageNum,
		Text:       text,
		Source:     SourceOCR,
		Confidence: confidence,
	}
}

func failedBlock(pageNum int) TextBlock {
	return TextBlock{Page: pageNum, Source: SourceOCR, Failed: true}
}
