package command

import (
	"regexp"
	"strings"

	"github.com/boddenberg/ledger-bot-go/internal/domain"

	"github.com/shopspring/decimal"
)

const amountPattern = `(\d+(?:\.\d+)?)`

var (
	// <category> <description> <amount>
	explicitForm = regexp.MustCompile(`^(\S+)\s+(.+?)\s+` + amountPattern + `$`)
	// <description> <amount>
	implicitForm = regexp.MustCompile(`^(\S+)\s+` + amountPattern + `$`)
)

type fallbackForm struct {
	re          *regexp.Regexp
	amountFirst bool
}

// Tried in order after the two primary forms.
var fallbackForms = []fallbackForm{
	{re: regexp.MustCompile(`^(.+?)\s+` + amountPattern + `\s*(.*)$`)}, // desc amount [category]
	{re: regexp.MustCompile(`^` + amountPattern + `\s+(.+?)$`), amountFirst: true},
	{re: regexp.MustCompile(`^(.+?)` + amountPattern + `$`)},
	{re: regexp.MustCompile(`^` + amountPattern + `(.+?)$`), amountFirst: true},
}

// ParseRecordText parses a fragment describing one expense. The category is
// never looked up by keyword: it is the explicit leading token, the
// optional trailing token, or the description itself.
func ParseRecordText(text string) (domain.Entry, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Entry{}, false
	}

	if m := explicitForm.FindStringSubmatch(text); m != nil {
		if e, ok := newEntry(m[3], strings.TrimSpace(m[2]), m[1]); ok {
			return e, true
		}
	}

	if m := implicitForm.FindStringSubmatch(text); m != nil {
		if e, ok := newEntry(m[2], m[1], m[1]); ok {
			return e, true
		}
	}

	for _, f := range fallbackForms {
		m := f.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		var amount, desc, extra string
		if f.amountFirst {
			amount, desc = m[1], m[2]
		} else {
			desc, amount = m[1], m[2]
			if len(m) > 3 {
				extra = m[3]
			}
		}
		desc = strings.TrimSpace(desc)
		cat := strings.TrimSpace(extra)
		if cat == "" {
			cat = desc
		}
		if e, ok := newEntry(amount, desc, cat); ok {
			return e, true
		}
	}

	return domain.Entry{}, false
}

func newEntry(amount, desc, cat string) (domain.Entry, bool) {
	if desc == "" || cat == "" {
		return domain.Entry{}, false
	}
	a, ok := parseAmount(amount)
	if !ok {
		return domain.Entry{}, false
	}
	return domain.Entry{Amount: a, Category: cat, Description: desc}, true
}

var amountOnly = regexp.MustCompile(`^` + amountPattern + `$`)

// parseAmount accepts a bare integer or an integer with a fraction.
func parseAmount(s string) (decimal.Decimal, bool) {
	if !amountOnly.MatchString(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
