package services

import (
	"sort"
	"strings"
	"unicode"

	"DineLine/locales"
	"DineLine/models"
	"DineLine/utils"
)

// PhoneticTable expands dish names into the spellings a speech recognizer or a
// caller from another language is likely to produce.
type PhoneticTable struct {
	byLang map[models.Language][][]string
	all    [][]string
}

func NewPhoneticTable(catalog *locales.Catalog) *PhoneticTable {
	p := &PhoneticTable{byLang: make(map[models.Language][][]string)}
	for _, lang := range models.SupportedLanguages {
		for _, group := range catalog.PhoneticGroups(lang) {
			normalized := make([]string, 0, len(group))
			for _, g := range group {
				if n := utils.Normalize(g); n != "" {
					normalized = append(normalized, n)
				}
			}
			p.byLang[lang] = append(p.byLang[lang], normalized)
			p.all = append(p.all, normalized)
		}
	}
	return p
}

// Expand returns text plus its variants under lang's table. text must already be normalized.
func (p *PhoneticTable) Expand(text string, lang models.Language) []string {
	groups, ok := p.byLang[lang]
	if !ok {
		groups = p.all
	}
	return expandVariants(text, groups)
}

// ExpandAll expands text under every language's table.
func (p *PhoneticTable) ExpandAll(text string) []string {
	return expandVariants(text, p.all)
}

func expandVariants(text string, groups [][]string) []string {
	seen := map[string]struct{}{text: {}}
	for _, group := range groups {
		for _, member := range group {
			if !containsPhrase(text, member) {
				continue
			}
			for _, other := range group {
				if other == member {
					continue
				}
				seen[replacePhrase(text, member, other)] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// containsPhrase matches whole words for spaced scripts and substrings for Han.
func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	if hasHan(phrase) {
		return strings.Contains(text, phrase)
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

func replacePhrase(text, phrase, with string) string {
	if hasHan(phrase) {
		return strings.TrimSpace(strings.ReplaceAll(text, phrase, with))
	}
	padded := strings.ReplaceAll(" "+text+" ", " "+phrase+" ", " "+with+" ")
	return strings.TrimSpace(padded)
}
