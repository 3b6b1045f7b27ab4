package command

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/boddenberg/ledger-bot-go/internal/category"
	"github.com/boddenberg/ledger-bot-go/internal/period"
)

// Rule is one entry of the ordered dispatch table. Match reports whether
// the rule claims the text; a claimed text is final even when the returned
// command is Unknown (a prefix matched but its argument did not parse).
type Rule struct {
	Name  string
	Match func(text string) (Command, bool)
}

// Parser interprets chat messages against an ordered rule table.
type Parser struct {
	categories *category.Resolver
	rules      []Rule
}

// Keyword sets. Latin keywords compare case-insensitively.
var (
	helpWords       = []string{"help", "?", "？", "帮助"}
	detailWords     = []string{"detail", "details", "明细", "详情", "记录"}
	statsWords      = []string{"statistics", "stats", "统计"}
	exportWords     = []string{"export", "导出"}
	backfillWords   = []string{"backfill", "补记", "补录"}
	editWords       = []string{"edit", "修改", "改"}
	deleteWords     = []string{"delete", "删除", "删"}
	recycleWords    = []string{"recycle-bin", "recycle bin", "bin", "回收站"}
	restoreWords    = []string{"restore", "恢复"}
	oweWords        = []string{"owe", "欠款"}
	repayWords      = []string{"repay", "还钱"}
	debtsWords      = []string{"debts", "外债"}
	categoryQueries = []string{"category", "stats", "分类", "统计"}
)

var (
	editArgs  = regexp.MustCompile(`^(\d+)\s+(.+)$`)
	oweArgs   = regexp.MustCompile(`^(\S+)\s+` + amountPattern + `\s*(.*)$`)
	repayArgs = regexp.MustCompile(`^(\S+)\s+` + amountPattern + `$`)
	scopeDay  = regexp.MustCompile(`^\d{2}-\d{2}$`)
)

// New builds a parser. The resolver supplies the category vocabulary for
// exact-name queries.
func New(categories *category.Resolver) *Parser {
	p := &Parser{categories: categories}
	p.rules = []Rule{
		{Name: "period", Match: p.matchPeriod},
		{Name: "detail", Match: p.matchDetail},
		{Name: "help", Match: p.matchHelp},
		{Name: "statistics", Match: p.matchStatistics},
		{Name: "export", Match: p.matchExport},
		{Name: "backfill", Match: p.matchBackfill},
		{Name: "edit", Match: p.matchEdit},
		{Name: "delete", Match: p.matchDelete},
		{Name: "recycle_bin", Match: p.matchRecycleBin},
		{Name: "restore", Match: p.matchRestore},
		{Name: "debt_add", Match: p.matchOwe},
		{Name: "debt_repay", Match: p.matchRepay},
		{Name: "debts", Match: p.matchDebts},
		{Name: "category_prefix", Match: p.matchCategoryPrefix},
		{Name: "category_name", Match: p.matchCategoryName},
		{Name: "record", Match: p.matchRecord},
	}
	return p
}

// RuleNames returns the rule table in priority order.
func (p *Parser) RuleNames() []string {
	names := make([]string, len(p.rules))
	for i, r := range p.rules {
		names[i] = r.Name
	}
	return names
}

// Parse interprets text. It never fails; unmatched text yields Unknown.
func (p *Parser) Parse(text string) Command {
	text = strings.TrimSpace(text)
	if text == "" {
		return Unknown{}
	}
	for _, r := range p.rules {
		if cmd, ok := r.Match(text); ok {
			return cmd
		}
	}
	return Unknown{}
}

// --- group 1: exact keywords ---

func (p *Parser) matchPeriod(text string) (Command, bool) {
	if per, ok := period.Parse(text); ok {
		return Query{Period: per}, true
	}
	return nil, false
}

func (p *Parser) matchDetail(text string) (Command, bool) {
	rest, ok := cutKeyword(text, detailWords)
	if !ok {
		return nil, false
	}
	if rest == "" {
		return Detail{}, true
	}
	if _, ok := period.Parse(rest); ok || period.IsMonthDay(rest) {
		return Detail{Scope: rest}, true
	}
	return nil, false
}

func (p *Parser) matchHelp(text string) (Command, bool) {
	if equalsAny(text, helpWords) {
		return Help{}, true
	}
	return nil, false
}

func (p *Parser) matchStatistics(text string) (Command, bool) {
	if equalsAny(text, statsWords) {
		return Query{Period: period.Last7}, true
	}
	return nil, false
}

// --- group 2: structural prefixes ---

func (p *Parser) matchExport(text string) (Command, bool) {
	rest, ok := cutKeyword(text, exportWords)
	if !ok {
		return nil, false
	}
	if rest == "" {
		return Export{Period: period.ThisMonth}, true
	}
	if per, ok := period.Parse(rest); ok {
		return Export{Period: per}, true
	}
	return Unknown{}, true
}

func (p *Parser) matchBackfill(text string) (Command, bool) {
	rest, ok := cutKeyword(text, backfillWords)
	if !ok {
		return nil, false
	}

	var token, recordText string
	if per, after, ok := period.SplitPrefix(rest); ok {
		token, recordText = string(per), after
	} else {
		token, recordText, _ = strings.Cut(rest, " ")
	}

	entry, ok := ParseRecordText(recordText)
	if token == "" || !ok {
		return Unknown{}, true
	}
	return Backfill{DateToken: token, Entry: entry}, true
}

func (p *Parser) matchEdit(text string) (Command, bool) {
	rest, ok := cutKeyword(text, editWords)
	if !ok {
		return nil, false
	}
	m := editArgs.FindStringSubmatch(rest)
	if m == nil {
		return Unknown{}, true
	}
	index, err := strconv.Atoi(m[1])
	if err != nil {
		return Unknown{}, true
	}
	entry, ok := ParseRecordText(m[2])
	if !ok {
		return Unknown{}, true
	}
	return Edit{Index: index, Entry: entry}, true
}

func (p *Parser) matchDelete(text string) (Command, bool) {
	rest, ok := cutKeyword(text, deleteWords)
	if !ok {
		return nil, false
	}

	scope := ""
	if per, after, ok := period.SplitPrefix(rest); ok {
		scope, rest = string(per), after
	} else if first, after, _ := strings.Cut(rest, " "); scopeDay.MatchString(first) && strings.TrimSpace(after) != "" {
		// "1-3" alone is an index range; a day scope is always MM-DD and
		// followed by the index list.
		scope, rest = first, strings.TrimSpace(after)
	}

	indices, ok := ParseIndexList(rest)
	if !ok {
		return Unknown{}, true
	}
	return Delete{Scope: scope, Indices: indices}, true
}

func (p *Parser) matchRecycleBin(text string) (Command, bool) {
	if equalsAny(text, recycleWords) {
		return RecycleBin{}, true
	}
	return nil, false
}

func (p *Parser) matchRestore(text string) (Command, bool) {
	rest, ok := cutKeyword(text, restoreWords)
	if !ok {
		return nil, false
	}
	index, ok := parseIndex(rest)
	if !ok {
		return Unknown{}, true
	}
	return Restore{Index: index}, true
}

func (p *Parser) matchOwe(text string) (Command, bool) {
	rest, ok := cutKeyword(text, oweWords)
	if !ok {
		return nil, false
	}
	m := oweArgs.FindStringSubmatch(rest)
	if m == nil {
		return Unknown{}, true
	}
	amount, ok := parseAmount(m[2])
	if !ok {
		return Unknown{}, true
	}
	return DebtAdd{Name: m[1], Amount: amount, Note: strings.TrimSpace(m[3])}, true
}

func (p *Parser) matchRepay(text string) (Command, bool) {
	rest, ok := cutKeyword(text, repayWords)
	if !ok {
		return nil, false
	}
	m := repayArgs.FindStringSubmatch(rest)
	if m == nil {
		return Unknown{}, true
	}
	amount, ok := parseAmount(m[2])
	if !ok {
		return Unknown{}, true
	}
	return DebtRepay{Name: m[1], Amount: amount}, true
}

func (p *Parser) matchDebts(text string) (Command, bool) {
	rest, ok := cutKeyword(text, debtsWords)
	if !ok {
		return nil, false
	}
	if rest == "" {
		return DebtList{}, true
	}
	if strings.ContainsAny(rest, " \t") {
		return Unknown{}, true
	}
	return DebtQuery{Name: rest}, true
}

// --- group 3: category-prefixed query ---

func (p *Parser) matchCategoryPrefix(text string) (Command, bool) {
	rest, ok := cutKeyword(text, categoryQueries)
	if !ok || rest == "" {
		return nil, false
	}
	if per, ok := period.Parse(rest); ok {
		return Query{Period: per}, true
	}
	return CategoryQuery{Name: rest}, true
}

// --- group 4: bare category name ---

func (p *Parser) matchCategoryName(text string) (Command, bool) {
	if p.categories != nil && p.categories.IsCategory(text) {
		return CategoryQuery{Name: text}, true
	}
	return nil, false
}

// --- group 5: record text ---

func (p *Parser) matchRecord(text string) (Command, bool) {
	entry, ok := ParseRecordText(text)
	if !ok {
		return Unknown{}, true
	}
	return AddRecord{Entry: entry}, true
}

// cutKeyword reports whether text is one of keywords, alone or followed by
// whitespace, and returns the trimmed remainder.
func cutKeyword(text string, keywords []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if lower == kw {
			return "", true
		}
		if !strings.HasPrefix(lower, kw) {
			continue
		}
		rest := text[len(kw):]
		if trimmed := strings.TrimLeft(rest, " \t"); len(trimmed) < len(rest) {
			return strings.TrimSpace(trimmed), true
		}
	}
	return "", false
}

func equalsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if lower == w {
			return true
		}
	}
	return false
}
