package services

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode"

	"DineLine/locales"
	"DineLine/models"
	"DineLine/utils"
)

const (
	exactConfidence    = 1.0
	aliasConfidence    = 0.95
	fuzzyThreshold     = 0.65
	phoneticThreshold  = 0.70
	phoneticCeiling    = 0.90
	maxUpsellSuggested = 3
)

var upsellCategories = map[string]bool{
	"drinks":   true,
	"soups":    true,
	"desserts": true,
	"sides":    true,
}

type indexedEntry struct {
	entry    models.MenuIndexEntry
	names    []string
	aliases  []string
	variants []string
}

// menuIndex is immutable once built; reloads replace it wholesale.
type menuIndex struct {
	entries []*indexedEntry
	byID    map[string]*indexedEntry
	names   map[string][]*indexedEntry
	aliases map[string][]*indexedEntry
}

// MenuMatcher resolves spoken text to one restaurant's catalog. Matching is
// safe while LoadMenu runs: readers see either the old or the new index.
type MenuMatcher struct {
	index      atomic.Pointer[menuIndex]
	phonetics  *PhoneticTable
	catalog    *locales.Catalog
	quantities map[models.Language]quantityPattern
	logger     *slog.Logger
}

func NewMenuMatcher(catalog *locales.Catalog, phonetics *PhoneticTable, logger *slog.Logger) *MenuMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	m := &MenuMatcher{
		phonetics:  phonetics,
		catalog:    catalog,
		quantities: make(map[models.Language]quantityPattern),
		logger:     logger,
	}
	for _, lang := range models.SupportedLanguages {
		m.quantities[lang] = buildQuantityPattern(lang, catalog)
	}
	m.index.Store(&menuIndex{byID: map[string]*indexedEntry{}})
	return m
}

// LoadMenu replaces the catalog and rebuilds the search index.
func (m *MenuMatcher) LoadMenu(items []models.MenuIndexEntry) {
	idx := &menuIndex{
		byID:    make(map[string]*indexedEntry, len(items)),
		names:   make(map[string][]*indexedEntry),
		aliases: make(map[string][]*indexedEntry),
	}

	for _, item := range items {
		if item.ID == "" {
			m.logger.Warn("skipping menu item without id", slog.String("name", item.Name))
			continue
		}
		if _, dup := idx.byID[item.ID]; dup {
			m.logger.Warn("duplicate menu item id", slog.String("id", item.ID))
			continue
		}

		ie := &indexedEntry{entry: item}
		for _, n := range append([]string{item.Name}, localizedNames(item)...) {
			if norm := utils.Normalize(n); norm != "" && !contains(ie.names, norm) {
				ie.names = append(ie.names, norm)
				idx.names[norm] = append(idx.names[norm], ie)
			}
		}
		for _, a := range item.Aliases {
			if norm := utils.Normalize(a); norm != "" && !contains(ie.aliases, norm) {
				ie.aliases = append(ie.aliases, norm)
				idx.aliases[norm] = append(idx.aliases[norm], ie)
			}
		}

		variants := map[string]struct{}{}
		for _, term := range append(append([]string{}, ie.names...), ie.aliases...) {
			for _, v := range m.phonetics.ExpandAll(term) {
				variants[v] = struct{}{}
			}
		}
		for v := range variants {
			ie.variants = append(ie.variants, v)
		}
		sort.Strings(ie.variants)

		idx.entries = append(idx.entries, ie)
		idx.byID[item.ID] = ie
	}

	m.index.Store(idx)
	m.logger.Info("menu index rebuilt", slog.Int("items", len(idx.entries)))
}

// localizedNames returns the localized names in a stable language order.
func localizedNames(item models.MenuIndexEntry) []string {
	var out []string
	for _, lang := range models.SupportedLanguages {
		if n, ok := item.Names[lang]; ok {
			out = append(out, n)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Size returns the number of indexed items.
func (m *MenuMatcher) Size() int {
	return len(m.index.Load().entries)
}

// GetItem looks a catalog entry up by id.
func (m *MenuMatcher) GetItem(id string) (models.MenuIndexEntry, error) {
	ie, ok := m.index.Load().byID[id]
	if !ok {
		return models.MenuIndexEntry{}, fmt.Errorf("%w: %s", utils.ErrItemNotFound, id)
	}
	return ie.entry, nil
}

// Items returns the catalog in load order.
func (m *MenuMatcher) Items() []models.MenuIndexEntry {
	idx := m.index.Load()
	out := make([]models.MenuIndexEntry, 0, len(idx.entries))
	for _, ie := range idx.entries {
		out = append(out, ie.entry)
	}
	return out
}

// AvailableItems returns up to limit orderable items; limit <= 0 means all.
func (m *MenuMatcher) AvailableItems(limit int) []models.MenuIndexEntry {
	var out []models.MenuIndexEntry
	for _, ie := range m.index.Load().entries {
		if !ie.entry.Available {
			continue
		}
		out = append(out, ie.entry)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// MatchItem resolves text against the catalog with exact, alias, fuzzy and
// phonetic strategies, in that order. An item matched by an earlier strategy
// is not considered again. The result is sorted by confidence.
func (m *MenuMatcher) MatchItem(text string, lang models.Language) []models.MenuMatch {
	idx := m.index.Load()
	matches := []models.MenuMatch{}
	query := utils.Normalize(text)
	if query == "" || len(idx.entries) == 0 {
		return matches
	}

	seen := make(map[string]bool)
	add := func(ie *indexedEntry, conf float64, strategy models.MatchStrategy, term string) {
		seen[ie.entry.ID] = true
		matches = append(matches, models.MenuMatch{
			Item:        ie.entry,
			Confidence:  conf,
			Strategy:    strategy,
			MatchedTerm: term,
		})
	}

	for _, ie := range idx.names[query] {
		if !seen[ie.entry.ID] {
			add(ie, exactConfidence, models.MatchExact, query)
		}
	}
	for _, ie := range idx.aliases[query] {
		if !seen[ie.entry.ID] {
			add(ie, aliasConfidence, models.MatchAlias, query)
		}
	}

	for _, ie := range idx.entries {
		if seen[ie.entry.ID] {
			continue
		}
		best, bestTerm := 0.0, ""
		for _, term := range append(append([]string{}, ie.names...), ie.aliases...) {
			if s := utils.Similarity(query, term); s > best {
				best, bestTerm = s, term
			}
		}
		if best >= fuzzyThreshold && best < 1.0 {
			add(ie, best, models.MatchFuzzy, bestTerm)
		}
	}

	queryVariants := m.phonetics.Expand(query, lang)
	for _, ie := range idx.entries {
		if seen[ie.entry.ID] {
			continue
		}
		best, bestTerm := phoneticScore(queryVariants, ie.variants)
		if best >= phoneticThreshold {
			add(ie, math.Min(best, phoneticCeiling), models.MatchPhonetic, bestTerm)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	if len(matches) > 0 {
		menuMatchTotal.WithLabelValues(string(matches[0].Strategy)).Inc()
	} else {
		menuMatchTotal.WithLabelValues("none").Inc()
	}
	return matches
}

// phoneticScore compares every query variant with every catalog variant.
// Equal variants short-circuit to 1.0.
func phoneticScore(queryVariants, entryVariants []string) (float64, string) {
	best, bestTerm := 0.0, ""
	for _, qv := range queryVariants {
		for _, ev := range entryVariants {
			if qv == ev {
				return 1.0, ev
			}
			if s := utils.Similarity(qv, ev); s > best {
				best, bestTerm = s, ev
			}
		}
	}
	return best, bestTerm
}

// BestMatch returns the highest ranked match, if any.
func (m *MenuMatcher) BestMatch(text string, lang models.Language) (models.MenuMatch, bool) {
	matches := m.MatchItem(text, lang)
	if len(matches) == 0 {
		return models.MenuMatch{}, false
	}
	return matches[0], true
}

// SuggestUpsell returns up to three available complementary items not already ordered.
func (m *MenuMatcher) SuggestUpsell(currentItemIDs []string) []models.MenuIndexEntry {
	ordered := make(map[string]bool, len(currentItemIDs))
	for _, id := range currentItemIDs {
		ordered[id] = true
	}

	var out []models.MenuIndexEntry
	for _, ie := range m.index.Load().entries {
		e := ie.entry
		if !e.Available || ordered[e.ID] {
			continue
		}
		if !e.Upsell && !upsellCategories[strings.ToLower(e.Category)] {
			continue
		}
		out = append(out, e)
		if len(out) == maxUpsellSuggested {
			break
		}
	}
	return out
}

// quantityPattern finds quantity phrases. In Han patterns the second group
// is the measure word, when one was spoken.
type quantityPattern struct {
	re  *regexp.Regexp
	han bool
}

func buildQuantityPattern(lang models.Language, catalog *locales.Catalog) quantityPattern {
	words := make([]string, 0)
	var hanDigits strings.Builder
	for w := range catalog.NumberWords(lang) {
		if hasHan(w) {
			hanDigits.WriteString(w)
		} else {
			words = append(words, w)
		}
	}
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})

	counters := append([]string(nil), catalog.Counters(lang)...)
	sort.Slice(counters, func(i, j int) bool { return len(counters[i]) > len(counters[j]) })
	for i, c := range counters {
		counters[i] = regexp.QuoteMeta(c)
	}
	counterAlt := strings.Join(counters, "|")

	if hanDigits.Len() > 0 {
		p := `(\d+|[` + hanDigits.String() + `]+)\s*`
		if counterAlt != "" {
			p += `(` + counterAlt + `)?`
		}
		return quantityPattern{re: regexp.MustCompile(p), han: true}
	}

	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	alt := `\d+`
	if len(words) > 0 {
		alt = `\d+|` + strings.Join(words, "|")
	}
	p := `(?i)(?:^|\s)(` + alt + `)(?:\s*x)?`
	if counterAlt != "" {
		p += `(?:\s+(?:` + counterAlt + `))?`
	}
	p += `(?:\s|$)`
	return quantityPattern{re: regexp.MustCompile(p)}
}

// ExtractQuantity finds a spoken or written quantity in text and returns it
// with the quantity phrase removed. Quantity defaults to 1. Text that is
// already a catalog name or alias is never split, so numerals inside dish
// names ("四季豆", "double espresso") are not read as quantities.
func (m *MenuMatcher) ExtractQuantity(text string, lang models.Language) models.QuantityResult {
	s := collapseSpaces(text)
	whole := models.QuantityResult{Quantity: 1, ItemText: s}
	if m.IsCatalogName(s) {
		return whole
	}
	qp, ok := m.quantities[lang]
	if !ok {
		qp = m.quantities[models.English]
	}

	for _, loc := range qp.re.FindAllStringSubmatchIndex(s, -1) {
		token := s[loc[2]:loc[3]]
		rest := collapseSpaces(s[:loc[0]] + joiner(s) + s[loc[1]:])
		if qp.han && !m.hanQuantity(token, loc, rest) {
			continue
		}
		qty := m.parseQuantity(token, lang)
		if qty <= 0 {
			qty = 1
		}
		return models.QuantityResult{Quantity: qty, ItemText: rest}
	}
	return whole
}

// hanQuantity accepts a Han numeral only when a measure word follows it, or
// when it leads the text and what remains is a catalog name. Arabic digits
// are always quantities.
func (m *MenuMatcher) hanQuantity(token string, loc []int, rest string) bool {
	if _, err := strconv.Atoi(token); err == nil {
		return true
	}
	if len(loc) >= 6 && loc[4] >= 0 {
		return true
	}
	return loc[0] == 0 && m.IsCatalogName(rest)
}

// IsCatalogName reports whether text is exactly a catalog name or alias.
func (m *MenuMatcher) IsCatalogName(text string) bool {
	q := utils.Normalize(text)
	if q == "" {
		return false
	}
	idx := m.index.Load()
	return len(idx.names[q]) > 0 || len(idx.aliases[q]) > 0
}

func (m *MenuMatcher) parseQuantity(token string, lang models.Language) int {
	if n, err := strconv.Atoi(token); err == nil {
		return n
	}
	words := m.catalog.NumberWords(lang)
	if n, ok := words[strings.ToLower(token)]; ok {
		return n
	}
	return parseHanNumeral(token, words)
}

// parseHanNumeral handles numerals up to 99 such as 三, 十二, 二十, 兩.
func parseHanNumeral(s string, digits map[string]int) int {
	total, cur := 0, 0
	for _, r := range s {
		if r == '十' {
			if cur == 0 {
				cur = 1
			}
			total += cur * 10
			cur = 0
			continue
		}
		d, ok := digits[string(r)]
		if !ok {
			return 0
		}
		cur = d
	}
	return total + cur
}

// ExtractModifications pulls preparation requests ("no onions", "少辣") out of text.
func (m *MenuMatcher) ExtractModifications(text string, lang models.Language) models.ModificationResult {
	patterns := m.catalog.ModifierPatterns(lang)
	if patterns == nil {
		patterns = m.catalog.ModifierPatterns(models.English)
	}

	mods := []string{}
	if m.IsCatalogName(text) {
		return models.ModificationResult{Modifications: mods, ItemText: collapseSpaces(text)}
	}
	rest := text
	for _, re := range patterns {
		for _, found := range re.FindAllString(rest, -1) {
			if mod := strings.TrimSpace(found); mod != "" {
				mods = append(mods, strings.ToLower(mod))
			}
		}
		rest = re.ReplaceAllLiteralString(rest, joiner(rest))
	}
	return models.ModificationResult{Modifications: mods, ItemText: collapseSpaces(rest)}
}

// joiner is what replaces a removed phrase: nothing in Han text, a space otherwise.
func joiner(s string) string {
	if hasHan(s) {
		return ""
	}
	return " "
}

func collapseSpaces(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
