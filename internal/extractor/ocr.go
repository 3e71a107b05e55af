package extractor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Renderer rasterizes a single PDF page into an image file.
type Renderer interface {
	Render(ctx context.Context, pdfPath string, page int, dpi int, workDir string) (imagePath string, err error)
}

// OCREngine recognizes text in a page image, returning the text and a
// 0..1 confidence.
type OCREngine interface {
	Recognize(ctx context.Context, imagePath string) (text string, confidence float64, err error)
}

// pdftoppmRenderer shells out to poppler's pdftoppm.
type pdftoppmRenderer struct{}

func (r *pdftoppmRenderer) Render(ctx context.Context, pdfPath string, page int, dpi int, workDir string) (string, error) {
	bin, err := exec.LookPath("pdftoppm")
	if err != nil {
		return "", fmt.Errorf("pdftoppm not installed: %w", err)
	}

	prefix := filepath.Join(workDir, fmt.Sprintf("page-%d", page))
	cmd := exec.CommandContext(ctx, bin,
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-r", strconv.Itoa(dpi),
		"-png",
		pdfPath,
		prefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm page %d: %w: %s", page, err, strings.TrimSpace(string(out)))
	}

	// pdftoppm pads the page number in the output name depending on the
	// document's page count, so glob for it.
	matches, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm produced no image for page %d", page)
	}
	return matches[0], nil
}

// tesseractEngine shells out to tesseract with TSV output so per-word
// confidences are available.
type tesseractEngine struct {
	language string
}

func (t *tesseractEngine) Recognize(ctx context.Context, imagePath string) (string, float64, error) {
	bin, err := exec.LookPath("tesseract")
	if err != nil {
		return "", 0, fmt.Errorf("tesseract not installed: %w", err)
	}

	outBase := strings.TrimSuffix(imagePath, filepath.Ext(imagePath))
	cmd := exec.CommandContext(ctx, bin,
		imagePath,
		outBase,
		"-l", t.language,
		"--psm", "4",
		"tsv",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", 0, fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(string(out)))
	}

	data, err := os.ReadFile(outBase + ".tsv")
	if err != nil {
		return "", 0, fmt.Errorf("read tesseract output: %w", err)
	}

	text, confidence := parseTSV(string(data))
	return text, confidence, nil
}

// parseTSV reassembles line text from tesseract's word-level TSV rows and
// averages word confidences into a 0..1 block confidence.
func parseTSV(tsv string) (string, float64) {
	var (
		sb        strings.Builder
		lineWords []string
		prevLine  = ""
		confSum   float64
		confCount int
	)

	flush := func() {
		if len(lineWords) > 0 {
			sb.WriteString(strings.Join(lineWords, " "))
			sb.WriteString("\n")
			lineWords = lineWords[:0]
		}
	}

	for i, row := range strings.Split(tsv, "\n") {
		if i == 0 || strings.TrimSpace(row) == "" {
			continue // header
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 {
			continue
		}
		// level 5 rows are words; cols: level, page, block, par, line,
		// word, left, top, width, height, conf, text
		if cols[0] != "5" {
			continue
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}

		lineKey := strings.Join(cols[1:5], "/")
		if lineKey != prevLine {
			flush()
			prevLine = lineKey
		}
		lineWords = append(lineWords, word)

		if conf, err := strconv.ParseFloat(cols[10], 64); err == nil && conf >= 0 {
			confSum += conf
			confCount++
		}
	}
	flush()

	if confCount == 0 {
		return sb.String(), 0
	}
	return sb.String(), confSum / float64(confCount) / 100.0
}
