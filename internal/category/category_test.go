package category_test

import (
	"testing"

	"github.com/boddenberg/ledger-bot-go/internal/category"

	"github.com/stretchr/testify/assert"
)

func TestResolve_FirstMatchingCategoryWins(t *testing.T) {
	r := category.NewResolver(category.DefaultTable())

	assert.Equal(t, "Food", r.Resolve("Morning COFFEE"))
	assert.Equal(t, "Transport", r.Resolve("taxi home"))
	assert.Equal(t, "Food", r.Resolve("午饭"))
	assert.Equal(t, category.Other, r.Resolve("gift for mom"))
}

func TestResolve_OrderMatters(t *testing.T) {
	table := category.NewTable([]category.Rule{
		{Category: "A", Keywords: []string{"x"}},
		{Category: "B", Keywords: []string{"xy"}},
	})
	r := category.NewResolver(table)

	assert.Equal(t, "A", r.Resolve("xy"))
}

func TestNewTable_CopiesInput(t *testing.T) {
	rules := []category.Rule{{Category: "Food", Keywords: []string{"pizza"}}}
	r := category.NewResolver(category.NewTable(rules))

	rules[0].Keywords[0] = "sushi"
	rules[0].Category = "Changed"

	assert.Equal(t, "Food", r.Resolve("pizza night"))
	assert.Equal(t, category.Other, r.Resolve("sushi"))
}

func TestIsCategory_CaseSensitive(t *testing.T) {
	r := category.NewResolver(category.DefaultTable())

	assert.True(t, r.IsCategory("Food"))
	assert.False(t, r.IsCategory("food"))
	assert.False(t, r.IsCategory(category.Other))
}
