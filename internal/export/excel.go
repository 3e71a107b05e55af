// Package export writes conversion results out as Excel workbooks and CSV
// files for review in a spreadsheet or import into accounting software.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/Mortuwu/Accounts-easing/internal/journal"
	"github.com/Mortuwu/Accounts-easing/internal/parser"
	"github.com/Mortuwu/Accounts-easing/internal/pipeline"
	"github.com/Mortuwu/Accounts-easing/pkg/money"
)

const (
	sheetTransactions = "Transactions"
	sheetJournal      = "Journal Entries"
	sheetSummary      = "Summary"
)

const dateLayout = "02/01/2006"

// WriteWorkbook renders the three-sheet review workbook to w.
func WriteWorkbook(result *pipeline.Result, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeTransactionsSheet(f, result, headerStyle); err != nil {
		return err
	}
	if err := writeJournalSheet(f, result, headerStyle); err != nil {
		return err
	}
	if err := writeSummarySheet(f, result, headerStyle); err != nil {
		return err
	}

	// Drop the default sheet so Transactions opens first.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTransactionsSheet(f *excelize.File, result *pipeline.Result, headerStyle int) error {
	if err := setupSheet(f, sheetTransactions, headerStyle,
		[]string{"Date", "Description", "Direction", "Amount", "Balance", "Category", "Method", "Confidence", "Page", "Source"}); err != nil {
		return err
	}

	for i, tx := range result.Transactions {
		row := i + 2
		balance := ""
		if tx.Balance != nil {
			balance = tx.Balance.String()
		}
		cells := []interface{}{
			tx.Date.Format(dateLayout),
			tx.Description,
			string(tx.Direction),
			tx.Amount.ToFloat64(),
			balance,
			tx.Category,
			string(tx.Method),
			tx.Confidence,
			tx.Page,
			string(tx.Source),
		}
		if err := setRow(f, sheetTransactions, row, cells); err != nil {
			return err
		}
	}
	return nil
}

func writeJournalSheet(f *excelize.File, result *pipeline.Result, headerStyle int) error {
	if err := setupSheet(f, sheetJournal, headerStyle,
		[]string{"Entry", "Date", "Narration", "Account", "Debit", "Credit", "Category"}); err != nil {
		return err
	}

	row := 2
	for _, entry := range result.Entries {
		for _, posting := range entry.Postings {
			var debit, credit interface{}
			if posting.Side == journal.SideDebit {
				debit = posting.Amount.ToFloat64()
			} else {
				credit = posting.Amount.ToFloat64()
			}
			cells := []interface{}{
				entry.ID.String(),
				entry.Date.Format(dateLayout),
				entry.Narration,
				posting.Account,
				debit,
				credit,
				entry.Category,
			}
			if err := setRow(f, sheetJournal, row, cells); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, result *pipeline.Result, headerStyle int) error {
	if err := setupSheet(f, sheetSummary, headerStyle,
		[]string{"Category", "Money Out", "Money In", "Transactions"}); err != nil {
		return err
	}

	type bucket struct {
		out, in *money.Money
		count   int
	}
	currency := money.DefaultCurrency
	buckets := map[string]*bucket{}
	for _, tx := range result.Transactions {
		currency = tx.Amount.Currency()
		b, ok := buckets[tx.Category]
		if !ok {
			b = &bucket{out: money.Zero(currency), in: money.Zero(currency)}
			buckets[tx.Category] = b
		}
		b.count++
		var err error
		if tx.Direction == parser.DirectionDebit {
			b.out, err = b.out.Add(tx.Amount)
		} else {
			b.in, err = b.in.Add(tx.Amount)
		}
		if err != nil {
			return fmt.Errorf("summarize category %q: %w", tx.Category, err)
		}
	}

	categories := make([]string, 0, len(buckets))
	for c := range buckets {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	row := 2
	for _, c := range categories {
		b := buckets[c]
		if err := setRow(f, sheetSummary, row, []interface{}{
			c, b.out.ToFloat64(), b.in.ToFloat64(), b.count,
		}); err != nil {
			return err
		}
		row++
	}

	// Run diagnostics below the category table.
	d := result.Diagnostics
	row++
	stats := [][]interface{}{
		{"Pages", d.Pages},
		{"Pages via OCR", d.OCRPages},
		{"Failed pages", d.FailedPages},
		{"Lines parsed", d.LinesParsed},
		{"Entries", d.Entries},
		{"Suspense entries", d.Suspense},
		{"Warnings", len(d.Warnings)},
	}
	for _, s := range stats {
		if err := setRow(f, sheetSummary, row, s); err != nil {
			return err
		}
		row++
	}
	return nil
}

func setupSheet(f *excelize.File, name string, headerStyle int, headers []string) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %q: %w", name, err)
	}
	if err := setRow(f, name, 1, toInterfaces(headers)); err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header of %q: %w", name, err)
	}

	if err := f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header of %q: %w", name, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d of %q: %w", row, sheet, err)
	}
	return nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
