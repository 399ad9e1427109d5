package services

import (
	"fmt"
	"sync"
	"testing"

	"DineLine/locales"
	"DineLine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchItemStrategies(t *testing.T) {
	m := testMatcher()

	tests := []struct {
		name     string
		text     string
		lang     models.Language
		wantID   string
		strategy models.MatchStrategy
	}{
		{"exact name", "Fried Rice!", models.English, "fried-rice", models.MatchExact},
		{"localized name", "炒饭", models.Mandarin, "fried-rice", models.MatchExact},
		{"alias", "spring roll", models.English, "egg-roll", models.MatchAlias},
		{"misspelling", "fryed rice", models.English, "fried-rice", models.MatchFuzzy},
		{"cantonese romanization", "chow fan", models.Cantonese, "fried-rice", models.MatchPhonetic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, ok := m.BestMatch(tt.text, tt.lang)
			require.True(t, ok)
			assert.Equal(t, tt.wantID, match.Item.ID)
			assert.Equal(t, tt.strategy, match.Strategy)
			assert.GreaterOrEqual(t, match.Confidence, 0.0)
			assert.LessOrEqual(t, match.Confidence, 1.0)
		})
	}
}

func TestMatchItemConfidences(t *testing.T) {
	m := testMatcher()

	exact, _ := m.BestMatch("fried rice", models.English)
	assert.Equal(t, 1.0, exact.Confidence)

	alias, _ := m.BestMatch("boba", models.English)
	assert.Equal(t, "bubble-tea", alias.Item.ID)
	assert.Equal(t, 0.95, alias.Confidence)

	phonetic, _ := m.BestMatch("chow fan", models.Cantonese)
	assert.Equal(t, 0.9, phonetic.Confidence)
}

func TestMatchItemNoMatch(t *testing.T) {
	m := testMatcher()
	assert.Empty(t, m.MatchItem("pepperoni pizza", models.English))
	assert.Empty(t, m.MatchItem("   ", models.English))

	empty := NewMenuRegistry(locales.Default(), testLogger()).Matcher("nobody")
	assert.Empty(t, empty.MatchItem("fried rice", models.English))
}

func TestMatchItemSortedAndDeterministic(t *testing.T) {
	m := testMatcher()
	first := m.MatchItem("fried rice", models.English)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, m.MatchItem("fried rice", models.English))
	}
	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Confidence, first[i].Confidence)
	}
}

func TestMatchItemReportsUnavailableItems(t *testing.T) {
	match, ok := testMatcher().BestMatch("lobster", models.English)
	require.True(t, ok)
	assert.Equal(t, "lobster", match.Item.ID)
	assert.False(t, match.Item.Available)
}

func TestExtractQuantity(t *testing.T) {
	m := testMatcher()

	tests := []struct {
		text string
		lang models.Language
		qty  int
		item string
	}{
		{"three fried rice", models.English, 3, "fried rice"},
		{"2 egg rolls", models.English, 2, "egg rolls"},
		{"2x egg roll", models.English, 2, "egg roll"},
		{"two orders of egg roll", models.English, 2, "egg roll"},
		{"a dozen dumplings", models.English, 12, "dumplings"},
		{"fried rice", models.English, 1, "fried rice"},
		{"wonton", models.English, 1, "wonton"},
		{"dos arroz frito", models.Spanish, 2, "arroz frito"},
		{"三份炒饭", models.Mandarin, 3, "炒饭"},
		{"十二个饺子", models.Mandarin, 12, "饺子"},
		{"兩碗雲吞", models.Cantonese, 2, "雲吞"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := m.ExtractQuantity(tt.text, tt.lang)
			assert.Equal(t, tt.qty, got.Quantity)
			assert.Equal(t, tt.item, got.ItemText)
		})
	}
}

func TestExtractQuantityKeepsNumeralsInDishNames(t *testing.T) {
	m := dishRegistry().Matcher(dishRestaurant)

	tests := []struct {
		text string
		lang models.Language
		qty  int
		item string
	}{
		{"四季豆", models.Mandarin, 1, "四季豆"},
		{"五香牛肉", models.Mandarin, 1, "五香牛肉"},
		{"三杯鸡", models.Mandarin, 1, "三杯鸡"},
		{"一品锅", models.Mandarin, 1, "一品锅"},
		{"两份四季豆", models.Mandarin, 2, "四季豆"},
		{"两份三杯鸡", models.Mandarin, 2, "三杯鸡"},
		{"我要四季豆", models.Mandarin, 1, "我要四季豆"},
		{"三炒饭", models.Mandarin, 3, "炒饭"},
		{"double espresso", models.English, 1, "double espresso"},
		{"two double espresso", models.English, 2, "double espresso"},
		{"three cup chicken", models.English, 1, "three cup chicken"},
		{"pollo mas picante", models.Spanish, 1, "pollo mas picante"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := m.ExtractQuantity(tt.text, tt.lang)
			assert.Equal(t, tt.qty, got.Quantity)
			assert.Equal(t, tt.item, got.ItemText)
		})
	}
}

func TestExtractModificationsKeepsDishNames(t *testing.T) {
	m := dishRegistry().Matcher(dishRestaurant)
	got := m.ExtractModifications("pollo mas picante", models.Spanish)
	assert.Empty(t, got.Modifications)
	assert.Equal(t, "pollo mas picante", got.ItemText)
}

func TestParseHanNumeral(t *testing.T) {
	digits := locales.Default().NumberWords(models.Mandarin)
	assert.Equal(t, 3, parseHanNumeral("三", digits))
	assert.Equal(t, 10, parseHanNumeral("十", digits))
	assert.Equal(t, 12, parseHanNumeral("十二", digits))
	assert.Equal(t, 20, parseHanNumeral("二十", digits))
	assert.Equal(t, 35, parseHanNumeral("三十五", digits))
	assert.Equal(t, 0, parseHanNumeral("炒", digits))
}

func TestExtractModifications(t *testing.T) {
	m := testMatcher()

	got := m.ExtractModifications("Fried rice no onions extra spicy", models.English)
	assert.Equal(t, []string{"no onions", "extra spicy"}, got.Modifications)
	assert.Equal(t, "Fried rice", got.ItemText)

	got = m.ExtractModifications("炒饭不要香菜少辣", models.Mandarin)
	assert.Equal(t, []string{"不要香菜", "少辣"}, got.Modifications)
	assert.Equal(t, "炒饭", got.ItemText)

	got = m.ExtractModifications("egg roll", models.English)
	assert.Empty(t, got.Modifications)
	assert.Equal(t, "egg roll", got.ItemText)
}

func TestSuggestUpsell(t *testing.T) {
	m := testMatcher()

	ids := func(items []models.MenuIndexEntry) []string {
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = it.ID
		}
		return out
	}

	assert.Equal(t, []string{"wonton-soup", "bubble-tea", "mango-pudding"}, ids(m.SuggestUpsell(nil)))
	assert.Equal(t, []string{"bubble-tea", "mango-pudding"}, ids(m.SuggestUpsell([]string{"fried-rice", "wonton-soup"})))
	assert.Empty(t, m.SuggestUpsell([]string{"wonton-soup", "bubble-tea", "mango-pudding"}))
}

func TestLoadMenuSkipsBadEntries(t *testing.T) {
	m := NewMenuRegistry(locales.Default(), testLogger()).Matcher("r1")
	m.LoadMenu([]models.MenuIndexEntry{
		{ID: "a", Name: "Fried Rice", Price: 10, Available: true},
		{ID: "a", Name: "Duplicate", Price: 11, Available: true},
		{Name: "No ID", Price: 12, Available: true},
	})
	assert.Equal(t, 1, m.Size())

	item, err := m.GetItem("a")
	require.NoError(t, err)
	assert.Equal(t, "Fried Rice", item.Name)

	_, err = m.GetItem("missing")
	assert.Error(t, err)
}

func TestAvailableItemsLimit(t *testing.T) {
	m := testMatcher()
	assert.Len(t, m.AvailableItems(0), 6)
	items := m.AvailableItems(2)
	require.Len(t, items, 2)
	assert.Equal(t, "fried-rice", items[0].ID)
	assert.Equal(t, "egg-roll", items[1].ID)
}

func TestLoadMenuWhileMatching(t *testing.T) {
	m := testMatcher()
	menu := testMenu()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if i%2 == 0 {
					m.LoadMenu(menu)
					continue
				}
				match, ok := m.BestMatch("fried rice", models.English)
				if assert.True(t, ok, fmt.Sprintf("reader %d iteration %d", i, j)) {
					assert.Equal(t, "fried-rice", match.Item.ID)
				}
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, len(menu), m.Size())
}
