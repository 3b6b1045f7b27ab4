// Package category maps free text to a fixed set of expense categories by
// keyword lookup.
//
// Record creation does not use it: a typed expense is self-categorizing
// (category = description). The resolver serves queries that need a coarse
// estimate, e.g. "Food" matching records filed as "coffee".
package category

import "strings"

// Other is returned when no keyword matches.
const Other = "Other"

// Rule binds a category to the keywords that select it.
type Rule struct {
	Category string
	Keywords []string
}

// Table is an ordered, immutable keyword table. The first rule with a
// matching keyword wins.
type Table struct {
	rules []Rule
}

// NewTable copies rules so later mutation by the caller has no effect.
func NewTable(rules []Rule) Table {
	cp := make([]Rule, len(rules))
	for i, r := range rules {
		kws := make([]string, len(r.Keywords))
		for j, k := range r.Keywords {
			kws[j] = strings.ToLower(k)
		}
		cp[i] = Rule{Category: r.Category, Keywords: kws}
	}
	return Table{rules: cp}
}

// Categories returns the category names in priority order.
func (t Table) Categories() []string {
	out := make([]string, len(t.rules))
	for i, r := range t.rules {
		out[i] = r.Category
	}
	return out
}

// DefaultTable is the built-in vocabulary.
func DefaultTable() Table {
	return NewTable([]Rule{
		{Category: "Food", Keywords: []string{
			"breakfast", "lunch", "dinner", "meal", "takeout", "coffee", "tea", "snack", "fruit", "noodle", "hotpot", "bbq",
			"早餐", "午餐", "晚餐", "早饭", "午饭", "晚饭", "吃饭", "外卖", "饭", "餐", "奶茶", "咖啡", "饮料", "零食", "水果", "菜", "肉", "面", "粉", "火锅", "烧烤", "小吃",
		}},
		{Category: "Transport", Keywords: []string{
			"taxi", "uber", "metro", "subway", "bus", "fuel", "gas", "parking", "toll", "bike", "train", "fare",
			"打车", "滴滴", "出租车", "地铁", "公交", "公车", "油费", "加油", "停车", "高速", "过路费", "单车", "共享", "车费", "交通",
		}},
		{Category: "Shopping", Keywords: []string{
			"taobao", "jd", "amazon", "shopping", "buy", "clothes", "shoes", "bag", "supermarket", "mall",
			"淘宝", "京东", "拼多多", "购物", "买", "衣服", "鞋", "包", "日用品", "超市", "商场",
		}},
		{Category: "Entertainment", Keywords: []string{
			"movie", "game", "ktv", "karaoke", "travel", "ticket", "concert",
			"电影", "游戏", "唱歌", "旅游", "门票", "娱乐", "玩",
		}},
		{Category: "Housing", Keywords: []string{
			"rent", "water", "electricity", "power", "internet", "broadband", "property",
			"房租", "水费", "电费", "燃气", "物业", "网费", "宽带",
		}},
		{Category: "Medical", Keywords: []string{
			"hospital", "medicine", "pharmacy", "doctor", "checkup", "dentist",
			"医院", "药", "看病", "体检", "医疗",
		}},
		{Category: "Education", Keywords: []string{
			"book", "course", "class", "training", "tuition",
			"书", "课程", "培训", "学习", "教育",
		}},
	})
}

// Resolver resolves free text against a Table.
type Resolver struct {
	table Table
}

// NewResolver creates a resolver over table.
func NewResolver(table Table) *Resolver {
	return &Resolver{table: table}
}

// Resolve returns the first category whose keyword occurs in text, or Other.
func (r *Resolver) Resolve(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range r.table.rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(lower, kw) {
				return rule.Category
			}
		}
	}
	return Other
}

// IsCategory reports whether name is an exact vocabulary entry.
// Matching is case-sensitive.
func (r *Resolver) IsCategory(name string) bool {
	for _, rule := range r.table.rules {
		if rule.Category == name {
			return true
		}
	}
	return false
}

// Categories lists the vocabulary in priority order.
func (r *Resolver) Categories() []string {
	return r.table.Categories()
}
