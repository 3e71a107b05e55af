// Command accounts-easing converts bank passbook and statement PDFs into
// balanced double-entry journal entries, exported as an Excel workbook or
// CSV files.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Mortuwu/Accounts-easing/internal/categorizer"
	"github.com/Mortuwu/Accounts-easing/internal/export"
	"github.com/Mortuwu/Accounts-easing/internal/extractor"
	"github.com/Mortuwu/Accounts-easing/internal/journal"
	"github.com/Mortuwu/Accounts-easing/internal/parser"
	"github.com/Mortuwu/Accounts-easing/internal/pipeline"
	"github.com/Mortuwu/Accounts-easing/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "accounts-easing",
		Short:         "Turn bank passbook PDFs into double-entry journal entries",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newConvertCmd())
	return root
}

type convertOptions struct {
	input      string
	outDir     string
	format     string
	rulesPath  string
	accounts   string
	training   string
	currency   string
	ocrWorkers int
	verbose    bool
}

func newConvertCmd() *cobra.Command {
	opts := &convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert one statement PDF to journal entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConvert(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "statement PDF to convert")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", ".", "output directory")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "xlsx", "output format: xlsx or csv")
	cmd.Flags().StringVar(&opts.rulesPath, "rules", "", "category rules YAML (built-in rules when omitted)")
	cmd.Flags().StringVar(&opts.accounts, "accounts", "", "account mapping YAML (built-in mapping when omitted)")
	cmd.Flags().StringVar(&opts.training, "training", "", "training samples YAML for the learned model")
	cmd.Flags().StringVar(&opts.currency, "currency", "", "ISO-4217 currency code (default from environment)")
	cmd.Flags().IntVar(&opts.ocrWorkers, "ocr-workers", 0, "parallel OCR workers (default from environment)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runConvert(cmd *cobra.Command, opts *convertOptions) error {
	cfg := config.Load()
	if opts.currency != "" {
		cfg.Currency = opts.currency
	}
	if opts.ocrWorkers > 0 {
		cfg.OCR.Workers = opts.ocrWorkers
	}
	if opts.format != "xlsx" && opts.format != "csv" {
		return fmt.Errorf("unknown format %q, want xlsx or csv", opts.format)
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	data, err := os.ReadFile(opts.input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	pipe, err := buildPipeline(cfg, opts, logger)
	if err != nil {
		return err
	}

	result, err := pipe.Convert(cmd.Context(), data)
	if err != nil {
		return err
	}

	if err := writeOutputs(result, opts); err != nil {
		return err
	}

	printSummary(result)
	return nil
}

func buildPipeline(cfg *config.Config, opts *convertOptions, logger *slog.Logger) (*pipeline.Pipeline, error) {
	rulesSpec := config.DefaultRules()
	if opts.rulesPath != "" {
		var err error
		rulesSpec, err = config.LoadRules(opts.rulesPath)
		if err != nil {
			return nil, err
		}
	}
	rules := make([]categorizer.Rule, 0, len(rulesSpec))
	for _, r := range rulesSpec {
		rules = append(rules, categorizer.Rule{
			Category: r.Name,
			Phrases:  r.Phrases,
			Keywords: r.Keywords,
		})
	}

	accountsSpec := config.DefaultAccountMap()
	if opts.accounts != "" {
		var err error
		accountsSpec, err = config.LoadAccountMap(opts.accounts)
		if err != nil {
			return nil, err
		}
	}
	if accountsSpec.Bank == "" {
		accountsSpec.Bank = cfg.Accounts.Bank
	}
	if accountsSpec.Suspense == "" {
		accountsSpec.Suspense = cfg.Accounts.Suspense
	}

	var model *categorizer.Model
	if opts.training != "" {
		samples, err := config.LoadTrainingSamples(opts.training)
		if err != nil {
			return nil, err
		}
		converted := make([]categorizer.Sample, 0, len(samples))
		for _, s := range samples {
			converted = append(converted, categorizer.Sample{
				Description: s.Description,
				Direction:   parser.Direction(s.Direction),
				Amount:      s.Amount,
				Category:    s.Category,
			})
		}
		model, err = categorizer.TrainModel(converted)
		if errors.Is(err, categorizer.ErrInsufficientClasses) {
			logger.Warn("training set too small, model tier disabled")
		} else if err != nil {
			return nil, err
		}
	}

	ex := extractor.New(extractor.Config{
		MinTextChars: cfg.OCR.MinTextChars,
		DPI:          cfg.OCR.DPI,
		Timeout:      cfg.OCR.Timeout,
		Workers:      cfg.OCR.Workers,
		Language:     cfg.OCR.Language,
	}, extractor.WithLogger(logger))

	p := parser.New(parser.Config{
		Currency:         cfg.Currency,
		BalanceTolerance: cfg.Parser.BalanceTolerance,
	}, logger)

	c := categorizer.New(rules, model,
		categorizer.WithMinConfidence(cfg.Classify.MinConfidence),
		categorizer.WithLogger(logger))

	g := journal.New(journal.AccountMap{
		Bank:       accountsSpec.Bank,
		Suspense:   accountsSpec.Suspense,
		Categories: accountsSpec.Categories,
	}, logger)

	return pipeline.New(ex, p, c, g, logger), nil
}

func writeOutputs(result *pipeline.Result, opts *convertOptions) error {
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(opts.input), filepath.Ext(opts.input))

	write := func(name string, fn func(f *os.File) error) error {
		path := filepath.Join(opts.outDir, name)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		if err := fn(f); err != nil {
			return err
		}
		fmt.Println("wrote", path)
		return nil
	}

	if opts.format == "xlsx" {
		return write(base+".xlsx", func(f *os.File) error {
			return export.WriteWorkbook(result, f)
		})
	}

	if err := write(base+"-transactions.csv", func(f *os.File) error {
		return export.WriteTransactionsCSV(result, f)
	}); err != nil {
		return err
	}
	return write(base+"-entries.csv", func(f *os.File) error {
		return export.WriteEntriesCSV(result, f)
	})
}

func printSummary(result *pipeline.Result) {
	d := result.Diagnostics
	fmt.Println()
	color.New(color.Bold).Println("Conversion summary")
	fmt.Printf("  pages:        %d (%d digital, %d ocr, %d failed)\n",
		d.Pages, d.DigitalPages, d.OCRPages, d.FailedPages)
	fmt.Printf("  lines parsed: %d of %d\n", d.LinesParsed, d.LinesSeen)
	color.Green("  entries:      %d", d.Entries)
	if d.Suspense > 0 {
		color.Yellow("  suspense:     %d (review these against the account mapping)", d.Suspense)
	}
	if len(d.Warnings) > 0 {
		color.Yellow("  warnings:     %d", len(d.Warnings))
		for _, w := range d.Warnings {
			fmt.Printf("    [%s] page %d line %d: %s\n", w.Kind, w.Page, w.Line, w.Message)
		}
	}
}
