package services

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"DineLine/locales"
	"DineLine/models"
	"DineLine/utils"
)

const (
	keywordConfidence  = 0.9
	entityConfidence   = 0.8
	fallbackConfidence = 0.6
	unknownConfidence  = 0.3
)

// keywordPriority decides between intents whose keywords all occur in one utterance.
var keywordPriority = []models.Intent{
	models.IntentRequestHuman,
	models.IntentReadyToPay,
	models.IntentRemoveItem,
	models.IntentAskMenu,
	models.IntentOrderItem,
	models.IntentModifyItem,
	models.IntentGreeting,
	models.IntentDeny,
	models.IntentConfirm,
}

var phonePattern = regexp.MustCompile(`\+?\d[\d\s().-]{8,}\d`)

// KeywordEngine classifies text with the locale keyword tables. It has no
// speech capability.
type KeywordEngine struct {
	catalog *locales.Catalog
	menus   MatcherProvider
	logger  *slog.Logger
}

func NewKeywordEngine(catalog *locales.Catalog, menus MatcherProvider, logger *slog.Logger) *KeywordEngine {
	return &KeywordEngine{catalog: catalog, menus: menus, logger: logger}
}

func (k *KeywordEngine) Transcribe(context.Context, []byte, models.Language) (models.Transcription, error) {
	return models.Transcription{}, utils.ErrUnsupported
}

func (k *KeywordEngine) Synthesize(context.Context, string, models.Language) ([]byte, error) {
	return nil, utils.ErrUnsupported
}

func (k *KeywordEngine) DetectLanguage(context.Context, []byte) (models.LanguageDetection, error) {
	return models.LanguageDetection{}, utils.ErrUnsupported
}

func (k *KeywordEngine) AnalyzeIntent(_ context.Context, text string, dctx models.DialogContext) (models.IntentResult, error) {
	result := models.IntentResult{Intent: models.IntentUnknown, Confidence: unknownConfidence, RawText: text}
	norm := utils.Normalize(text)
	if norm == "" {
		return result, nil
	}
	lang := dctx.Language
	if lang == "" {
		lang = models.English
	}

	result.Entities.Language = k.languageEntity(norm)
	result.Entities.Phone = extractPhone(text)
	result.Entities.PaymentMethod = k.paymentMethod(norm)

	intent, matched := k.classify(norm, lang)
	if intent == models.IntentUnknown {
		for _, other := range models.SupportedLanguages {
			if other == lang {
				continue
			}
			if intent, matched = k.classify(norm, other); intent != models.IntentUnknown {
				break
			}
		}
	}

	switch {
	case result.Entities.Language != "" && (intent == models.IntentUnknown || intent == models.IntentConfirm || intent == models.IntentGreeting):
		result.Intent, result.Confidence = models.IntentChangeLanguage, keywordConfidence
	case intent != models.IntentUnknown:
		result.Intent, result.Confidence = intent, keywordConfidence
	case result.Entities.Phone != "" || result.Entities.PaymentMethod != "":
		result.Intent, result.Confidence = models.IntentConfirm, entityConfidence
	case acceptsItems(dctx.State) && k.mentionsMenuItem(norm, dctx):
		result.Intent, result.Confidence = models.IntentOrderItem, fallbackConfidence
	default:
		return result, nil
	}

	switch result.Intent {
	case models.IntentOrderItem, models.IntentRemoveItem, models.IntentModifyItem:
		result.Entities.Items = k.itemEntities(norm, lang, matched, dctx.RestaurantID)
	}
	return result, nil
}

func acceptsItems(state models.DialogState) bool {
	switch state {
	case models.StateTakingOrder, models.StateUpselling, models.StateOrderReview, models.StateLanguageSelect:
		return true
	}
	return false
}

func (k *KeywordEngine) mentionsMenuItem(norm string, dctx models.DialogContext) bool {
	if k.menus == nil {
		return false
	}
	matcher := k.menus.Matcher(dctx.RestaurantID)
	q := matcher.ExtractQuantity(norm, dctx.Language)
	_, ok := matcher.BestMatch(q.ItemText, dctx.Language)
	return ok
}

// classify returns the highest priority intent with a keyword in norm, and
// the keywords that matched it.
func (k *KeywordEngine) classify(norm string, lang models.Language) (models.Intent, []string) {
	table := k.catalog.IntentKeywords(lang)
	for _, intent := range keywordPriority {
		var hits []string
		for _, kw := range table[intent] {
			if containsPhrase(norm, kw) {
				hits = append(hits, kw)
			}
		}
		if len(hits) > 0 {
			return intent, hits
		}
	}
	return models.IntentUnknown, nil
}

func (k *KeywordEngine) languageEntity(norm string) models.Language {
	for _, lang := range models.SupportedLanguages {
		for _, name := range k.catalog.LanguageNames()[lang] {
			if containsPhrase(norm, utils.Normalize(name)) {
				return lang
			}
		}
	}
	return ""
}

func (k *KeywordEngine) paymentMethod(norm string) string {
	methods := k.catalog.PaymentMethods()
	names := make([]string, 0, len(methods))
	for m := range methods {
		names = append(names, m)
	}
	sort.Strings(names)
	for _, m := range names {
		for _, kw := range methods[m] {
			if containsPhrase(norm, utils.Normalize(kw)) {
				return m
			}
		}
	}
	return ""
}

func extractPhone(text string) string {
	raw := phonePattern.FindString(text)
	if raw == "" {
		return ""
	}
	var b strings.Builder
	if strings.HasPrefix(raw, "+") {
		b.WriteByte('+')
	}
	digits := 0
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			digits++
		}
	}
	if digits < 10 || digits > 15 {
		return ""
	}
	return b.String()
}

// itemEntities strips intent and filler keywords from norm and splits what is
// left into one entity per named item. A separator inside a catalog name
// ("sweet and sour chicken") does not split it.
func (k *KeywordEngine) itemEntities(norm string, lang models.Language, matched []string, restaurantID string) []models.ItemEntity {
	table := k.catalog.IntentKeywords(lang)
	strip := append([]string{}, matched...)
	strip = append(strip, table[models.IntentGreeting]...)
	strip = append(strip, table[models.IntentConfirm]...)
	sort.Slice(strip, func(i, j int) bool { return len(strip[i]) > len(strip[j]) })

	rest := norm
	for _, kw := range strip {
		if containsPhrase(rest, kw) {
			rest = replacePhrase(rest, kw, " ")
		}
	}
	rest = collapseSpaces(rest)
	if rest == "" {
		return nil
	}

	var matcher *MenuMatcher
	if k.menus != nil {
		matcher = k.menus.Matcher(restaurantID)
	}
	pieces, seps := splitOnSeparators(rest, k.catalog.Separators(lang))

	var items []models.ItemEntity
	for i := 0; i < len(pieces); {
		end := i
		if matcher != nil {
			for j := len(pieces) - 1; j > i; j-- {
				if isDish(matcher, joinPieces(pieces, seps, i, j), lang) {
					end = j
					break
				}
			}
		}
		if p := strings.TrimSpace(joinPieces(pieces, seps, i, end)); p != "" {
			items = append(items, models.ItemEntity{Name: p})
		}
		i = end + 1
	}
	return items
}

// splitOnSeparators cuts s at every separator, longest separator first, and
// returns the pieces with the separators found between them.
func splitOnSeparators(s string, separators []string) ([]string, []string) {
	sorted := append([]string(nil), separators...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	var pieces, seps []string
	start := 0
	for i := 0; i < len(s); {
		cut := ""
		for _, sep := range sorted {
			if sep != "" && strings.HasPrefix(s[i:], sep) {
				cut = sep
				break
			}
		}
		if cut == "" {
			i++
			continue
		}
		pieces = append(pieces, s[start:i])
		seps = append(seps, cut)
		i += len(cut)
		start = i
	}
	return append(pieces, s[start:]), seps
}

// joinPieces rebuilds pieces[i..j] with their original separators.
func joinPieces(pieces, seps []string, i, j int) string {
	var b strings.Builder
	for n := i; n <= j; n++ {
		if n > i {
			b.WriteString(seps[n-1])
		}
		b.WriteString(pieces[n])
	}
	return b.String()
}

// isDish reports whether text, once a leading quantity is dropped, is a
// catalog name or alias.
func isDish(matcher *MenuMatcher, text string, lang models.Language) bool {
	text = strings.TrimSpace(text)
	if matcher.IsCatalogName(text) {
		return true
	}
	return matcher.IsCatalogName(matcher.ExtractQuantity(text, lang).ItemText)
}
