package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mortuwu/Accounts-easing/internal/extractor"
	"github.com/Mortuwu/Accounts-easing/pkg/money"
)

// datePat matches the date shapes Indian banks print: 01/02/2024, 1-2-24,
// 2024-02-01, 01 Feb 2024.
const datePat = `\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}-\d{2}-\d{2}|\d{1,2}[- ][A-Za-z]{3}[- ]\d{2,4}`

// amountPat requires a decimal point so cheque and reference numbers are
// not mistaken for amounts.
const amountPat = `[+-]?[\d,]+\.\d{1,2}`

var (
	// Family 1: single amount with an explicit CR/DR marker, optional
	// trailing balance.
	markerLineRe = regexp.MustCompile(
		`^(` + datePat + `)\s+(.+?)\s+([+-]?[\d,]+(?:\.\d{1,2})?)\s*(CR|DR|Cr|Dr)\.?\s*([+-]?[\d,]+(?:\.\d{1,2})?)?\s*$`)

	// Families 2 and 3: date, narration, then one to three trailing amount
	// columns (withdrawal/deposit/balance in some arrangement).
	columnLineRe = regexp.MustCompile(
		`^(` + datePat + `)\s+(.+?)\s+(` + amountPat + `(?:\s+` + amountPat + `){0,2})\s*$`)

	amountTokenRe = regexp.MustCompile(amountPat)
	dateTokenRe   = regexp.MustCompile(datePat)

	openingBalanceRe = regexp.MustCompile(
		`(?i)(?:OPENING BALANCE|BALANCE B/F|BALANCE BROUGHT FORWARD|B/F)\D*?([+-]?[\d,]+\.\d{1,2})`)
)

// lineFields is the raw capture of one matched transaction line, before
// date/amount validation.
type lineFields struct {
	date        string
	description string
	amount      string
	balance     string
	// explicit is set when the line itself states the direction: a CR/DR
	// marker, a populated withdrawal/deposit column, or a signed amount.
	explicit Direction
	// ambiguous marks a two-column line with both columns populated.
	ambiguous bool
}

// layoutFamily tags the column arrangement a page's bank layout uses.
type layoutFamily int

const (
	familyUnknown layoutFamily = iota
	familyMarker
	familyColumns
	familyBalance
)

// familySampleSize bounds how many candidate lines per page vote on the
// layout family.
const familySampleSize = 10

// detectFamily samples a page's candidate transaction lines and takes a
// majority vote on the layout family. Pages without a strict majority stay
// familyUnknown, and per-line matching falls back to trying the families in
// declared order.
func detectFamily(lines []string, source extractor.Source) layoutFamily {
	votes := map[layoutFamily]int{}
	sampled := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isSummaryLine(trimmed) {
			continue
		}
		f := lineFamily(trimmed, source)
		if f == familyUnknown {
			continue
		}
		votes[f]++
		sampled++
		if sampled >= familySampleSize {
			break
		}
	}

	best, bestVotes := familyUnknown, 0
	for _, f := range []layoutFamily{familyMarker, familyColumns, familyBalance} {
		if votes[f] > bestVotes {
			best, bestVotes = f, votes[f]
		}
	}
	if bestVotes*2 > sampled {
		return best
	}
	return familyUnknown
}

// lineFamily reports which layout family a single line votes for. Lines with
// one trailing amount fit any family and abstain.
func lineFamily(line string, source extractor.Source) layoutFamily {
	candidate := line
	if !markerLineRe.MatchString(candidate) &&
		(source == extractor.SourceOCR || strings.ContainsAny(candidate, confusableGlyphs)) {
		candidate = correctConfusables(candidate)
	}
	if markerLineRe.MatchString(candidate) {
		return familyMarker
	}

	m := columnLineRe.FindStringSubmatch(candidate)
	if m == nil {
		return familyUnknown
	}
	amounts := strings.Fields(m[3])
	switch len(amounts) {
	case 3:
		return familyColumns
	case 2:
		first, second := columnValue(amounts[0]), columnValue(amounts[1])
		if first.IsZero() != second.IsZero() {
			return familyColumns
		}
		return familyBalance
	default:
		return familyUnknown
	}
}

// matchLine tries the layout families against a line, retrying once with
// the OCR digit-confusion table when the raw line does not match. The
// second return reports whether the match needed correction.
func matchLine(line string, source extractor.Source, family layoutFamily) (*lineFields, bool) {
	if fields := matchFamilies(line, family); fields != nil {
		return fields, false
	}

	if source != extractor.SourceOCR && !strings.ContainsAny(line, confusableGlyphs) {
		return nil, false
	}
	candidate := correctConfusables(line)
	if candidate == line {
		return nil, false
	}
	if fields := matchFamilies(candidate, family); fields != nil {
		return fields, true
	}
	return nil, false
}

func matchFamilies(line string, family layoutFamily) *lineFields {
	if m := markerLineRe.FindStringSubmatch(line); m != nil {
		fields := &lineFields{
			date:        m[1],
			description: m[2],
			amount:      m[3],
			balance:     m[5],
		}
		switch strings.ToUpper(m[4]) {
		case "DR":
			fields.explicit = DirectionDebit
		case "CR":
			fields.explicit = DirectionCredit
		}
		return fields
	}

	m := columnLineRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}

	fields := &lineFields{date: m[1], description: m[2]}
	amounts := strings.Fields(m[3])

	switch len(amounts) {
	case 1:
		// Single amount: a sign is the only explicit signal.
		fields.amount = amounts[0]
		fields.explicit = signDirection(amounts[0])

	case 2:
		// Either withdrawal/deposit columns (one printed as zero) or a
		// single amount beside the running balance.
		first, second := columnValue(amounts[0]), columnValue(amounts[1])
		switch {
		case first.IsZero() && !second.IsZero():
			fields.amount = amounts[1]
			fields.explicit = DirectionCredit
		case second.IsZero() && !first.IsZero():
			fields.amount = amounts[0]
			fields.explicit = DirectionDebit
		case family == familyColumns:
			// On a two-column page both values populated means the
			// columns cannot be told apart, not amount-plus-balance.
			fields.amount = amounts[0]
			fields.ambiguous = true
		default:
			fields.amount = amounts[0]
			fields.balance = amounts[1]
			fields.explicit = signDirection(amounts[0])
		}

	case 3:
		// Withdrawal, deposit, balance.
		fields.balance = amounts[2]
		first, second := columnValue(amounts[0]), columnValue(amounts[1])
		switch {
		case first.IsZero() && !second.IsZero():
			fields.amount = amounts[1]
			fields.explicit = DirectionCredit
		case second.IsZero() && !first.IsZero():
			fields.amount = amounts[0]
			fields.explicit = DirectionDebit
		default:
			fields.amount = amounts[0]
			fields.ambiguous = true
		}
	}

	return fields
}

// signDirection reads an explicit leading sign: negative means money out.
func signDirection(amount string) Direction {
	switch {
	case strings.HasPrefix(amount, "-"):
		return DirectionDebit
	case strings.HasPrefix(amount, "+"):
		return DirectionCredit
	default:
		return ""
	}
}

func columnValue(amount string) decimal.Decimal {
	cleaned := strings.ReplaceAll(strings.TrimLeft(amount, "+-"), ",", "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// confusableGlyphs are letters OCR commonly reads in place of digits.
const confusableGlyphs = "OoIl|ZSGBq"

var confusableTable = map[rune]rune{
	'O': '0', 'o': '0',
	'I': '1', 'l': '1', '|': '1',
	'Z': '2',
	'S': '5',
	'G': '6',
	'B': '8',
	'q': '9',
}

// correctConfusables rewrites tokens that look numeric apart from confused
// glyphs. A token is only touched when it already contains a digit, slash
// or decimal point, and only kept when the substitution yields a valid date
// or amount shape, so words like "OIL" survive.
func correctConfusables(line string) string {
	tokens := strings.Fields(line)
	changed := false

	for i, token := range tokens {
		if !strings.ContainsAny(token, "0123456789/.") {
			continue
		}
		substituted := strings.Map(func(r rune) rune {
			if repl, ok := confusableTable[r]; ok {
				return repl
			}
			return r
		}, token)
		if substituted == token {
			continue
		}
		if !fullMatch(dateTokenRe, substituted) && !fullMatch(amountTokenRe, substituted) {
			continue
		}
		tokens[i] = substituted
		changed = true
	}

	if !changed {
		return line
	}
	return strings.Join(tokens, " ")
}

func fullMatch(re *regexp.Regexp, s string) bool {
	loc := re.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

func hasDateToken(line string) bool   { return dateTokenRe.MatchString(line) }
func hasAmountToken(line string) bool { return amountTokenRe.MatchString(line) }

// dateFormats in priority order. Indian statements are day-first.
var dateFormats = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02/01/06",
	"2/1/06",
	"2006-01-02",
	"02 Jan 2006",
	"2 Jan 2006",
	"02-Jan-2006",
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, format := range dateFormats {
		if t, err := time.Parse(format, value); err == nil {
			if t.Year() < 1990 || t.Year() > 2100 {
				continue
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// summaryMarkers identify non-transaction lines that would otherwise look
// close enough to a transaction to produce noise.
var summaryMarkers = []string{
	"OPENING BALANCE",
	"CLOSING BALANCE",
	"BALANCE B/F",
	"BALANCE C/F",
	"BROUGHT FORWARD",
	"CARRIED FORWARD",
	"TOTAL",
	"STATEMENT",
	"PARTICULARS",
	"NARRATION",
	"ACCOUNT NO",
	"ACCOUNT NUMBER",
	"IFSC",
	"BRANCH",
	"PAGE ",
}

func isSummaryLine(line string) bool {
	upper := strings.ToUpper(line)
	for _, marker := range summaryMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// matchOpeningBalance seeds the running balance from a "balance brought
// forward" line so balance-delta inference can classify the first
// transaction.
func matchOpeningBalance(line, currency string) (*money.Money, bool) {
	m := openingBalanceRe.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	bal, err := money.NewFromString(m[1], currency)
	if err != nil {
		return nil, false
	}
	return bal, true
}

// direction keyword fallback, used when a line has neither an explicit
// signal nor a reconcilable balance.
var (
	creditKeywords = []string{
		"DEPOSIT", "SALARY", "INTEREST", "REFUND", "RECEIVED",
		"TRANSFER FROM", "NEFT CR", "BY CASH", "DIVIDEND",
	}
	debitKeywords = []string{
		"WITHDRAWAL", "ATM", "POS ", "PURCHASE", "PAID", "PAYMENT",
		"DEBIT", "CHARGE", "FEE", "EMI", "BILL", "TRANSFER TO", "CHQ",
	}
)

func inferFromKeywords(description string) Direction {
	upper := strings.ToUpper(description)
	for _, kw := range creditKeywords {
		if strings.Contains(upper, kw) {
			return DirectionCredit
		}
	}
	for _, kw := range debitKeywords {
		if strings.Contains(upper, kw) {
			return DirectionDebit
		}
	}
	// Most passbook lines are spends.
	return DirectionDebit
}
