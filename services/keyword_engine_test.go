package services

import (
	"context"
	"testing"

	"DineLine/locales"
	"DineLine/models"
	"DineLine/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeywordEngine() *KeywordEngine {
	return NewKeywordEngine(locales.Default(), testRegistry(), testLogger())
}

func analyze(t *testing.T, k *KeywordEngine, text string, state models.DialogState, lang models.Language) models.IntentResult {
	t.Helper()
	dctx := models.NewDialogContext("call-1", testRestaurant, lang, "")
	dctx.State = state
	res, err := k.AnalyzeIntent(context.Background(), text, dctx)
	require.NoError(t, err)
	return res
}

func TestKeywordIntents(t *testing.T) {
	k := newTestKeywordEngine()

	tests := []struct {
		text   string
		lang   models.Language
		intent models.Intent
	}{
		{"Can I speak to a real person?", models.English, models.IntentRequestHuman},
		{"That's all, I'm ready to pay", models.English, models.IntentReadyToPay},
		{"Please remove the egg roll", models.English, models.IntentRemoveItem},
		{"What's on the menu?", models.English, models.IntentAskMenu},
		{"I'd like two fried rice", models.English, models.IntentOrderItem},
		{"Hello there", models.English, models.IntentGreeting},
		{"Nope", models.English, models.IntentDeny},
		{"Yes, that's correct", models.English, models.IntentConfirm},
		{"Sí, está bien", models.Spanish, models.IntentConfirm},
		{"Quiero dos arroz frito", models.Spanish, models.IntentOrderItem},
		{"我要三份炒饭", models.Mandarin, models.IntentOrderItem},
		{"埋單", models.Cantonese, models.IntentReadyToPay},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res := analyze(t, k, tt.text, models.StateTakingOrder, tt.lang)
			assert.Equal(t, tt.intent, res.Intent)
			assert.Equal(t, keywordConfidence, res.Confidence)
			assert.Equal(t, tt.text, res.RawText)
		})
	}
}

func TestKeywordIntentInAnotherLanguage(t *testing.T) {
	res := analyze(t, newTestKeywordEngine(), "quiero arroz frito", models.StateTakingOrder, models.English)
	assert.Equal(t, models.IntentOrderItem, res.Intent)
}

func TestKeywordItemEntities(t *testing.T) {
	k := newTestKeywordEngine()

	res := analyze(t, k, "Hi, I'd like two fried rice and one egg roll please", models.StateTakingOrder, models.English)
	require.Equal(t, models.IntentOrderItem, res.Intent)
	assert.Equal(t, []models.ItemEntity{{Name: "two fried rice"}, {Name: "one egg roll"}}, res.Entities.Items)

	res = analyze(t, k, "我要炒饭和春卷", models.StateTakingOrder, models.Mandarin)
	require.Equal(t, models.IntentOrderItem, res.Intent)
	assert.Equal(t, []models.ItemEntity{{Name: "炒饭"}, {Name: "春卷"}}, res.Entities.Items)
}

func TestKeywordItemEntitiesKeepDishNamesWhole(t *testing.T) {
	k := NewKeywordEngine(locales.Default(), dishRegistry(), testLogger())

	tests := []struct {
		text string
		lang models.Language
		want []models.ItemEntity
	}{
		{"I want sweet and sour chicken", models.English, []models.ItemEntity{{Name: "sweet and sour chicken"}}},
		{"I want hot and sour soup", models.English, []models.ItemEntity{{Name: "hot and sour soup"}}},
		{"I want two sweet and sour chicken and one egg roll", models.English,
			[]models.ItemEntity{{Name: "two sweet and sour chicken"}, {Name: "one egg roll"}}},
		{"I want egg roll and hot and sour soup", models.English,
			[]models.ItemEntity{{Name: "egg roll"}, {Name: "hot and sour soup"}}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			dctx := models.NewDialogContext("call-1", dishRestaurant, tt.lang, "")
			dctx.State = models.StateTakingOrder
			res, err := k.AnalyzeIntent(context.Background(), tt.text, dctx)
			require.NoError(t, err)
			assert.Equal(t, models.IntentOrderItem, res.Intent)
			assert.Equal(t, tt.want, res.Entities.Items)
		})
	}
}

func TestSplitOnSeparators(t *testing.T) {
	pieces, seps := splitOnSeparators("egg roll and hot and sour soup", []string{" and ", ", "})
	assert.Equal(t, []string{"egg roll", "hot", "sour soup"}, pieces)
	assert.Equal(t, []string{" and ", " and "}, seps)
	assert.Equal(t, "hot and sour soup", joinPieces(pieces, seps, 1, 2))
}

func TestKeywordFallsBackToMenuItems(t *testing.T) {
	k := newTestKeywordEngine()

	res := analyze(t, k, "fried rice", models.StateTakingOrder, models.English)
	assert.Equal(t, models.IntentOrderItem, res.Intent)
	assert.Equal(t, fallbackConfidence, res.Confidence)
	assert.True(t, res.Understood())

	res = analyze(t, k, "fried rice", models.StatePayment, models.English)
	assert.Equal(t, models.IntentUnknown, res.Intent)

	res = analyze(t, k, "purple elephants", models.StateTakingOrder, models.English)
	assert.Equal(t, models.IntentUnknown, res.Intent)
	assert.False(t, res.Understood())
}

func TestKeywordEntities(t *testing.T) {
	k := newTestKeywordEngine()

	res := analyze(t, k, "it's 212-555-0123", models.StateCustomerInfo, models.English)
	assert.Equal(t, models.IntentConfirm, res.Intent)
	assert.Equal(t, entityConfidence, res.Confidence)
	assert.Equal(t, "2125550123", res.Entities.Phone)

	res = analyze(t, k, "crypto wallet", models.StatePayment, models.English)
	assert.Equal(t, "crypto", res.Entities.PaymentMethod)
	assert.True(t, res.Understood())

	res = analyze(t, k, "Spanish please", models.StateLanguageSelect, models.English)
	assert.Equal(t, models.IntentChangeLanguage, res.Intent)
	assert.Equal(t, models.Spanish, res.Entities.Language)

	res = analyze(t, k, "廣東話", models.StateTakingOrder, models.English)
	assert.Equal(t, models.IntentChangeLanguage, res.Intent)
	assert.Equal(t, models.Cantonese, res.Entities.Language)
}

func TestExtractPhone(t *testing.T) {
	assert.Equal(t, "2125550123", extractPhone("call me at (212) 555-0123"))
	assert.Equal(t, "+442079460958", extractPhone("+44 20 7946 0958"))
	assert.Equal(t, "", extractPhone("table for 4"))
	assert.Equal(t, "", extractPhone("12345"))
}

func TestKeywordEngineHasNoSpeech(t *testing.T) {
	k := newTestKeywordEngine()
	_, err := k.Transcribe(context.Background(), []byte{1}, models.English)
	assert.ErrorIs(t, err, utils.ErrUnsupported)
	_, err = k.Synthesize(context.Background(), "hi", models.English)
	assert.ErrorIs(t, err, utils.ErrUnsupported)
	_, err = k.DetectLanguage(context.Background(), []byte{1})
	assert.ErrorIs(t, err, utils.ErrUnsupported)
}

func TestNewAIEngine(t *testing.T) {
	engine, err := NewAIEngine(AIConfig{}, testRegistry(), locales.Default(), testLogger())
	require.NoError(t, err)
	assert.IsType(t, &KeywordEngine{}, engine)

	_, err = NewAIEngine(AIConfig{Provider: ProviderOpenAI}, testRegistry(), locales.Default(), testLogger())
	assert.Error(t, err)

	engine, err = NewAIEngine(AIConfig{Provider: ProviderOpenAI, APIKey: "sk-test"}, testRegistry(), locales.Default(), testLogger())
	require.NoError(t, err)
	assert.IsType(t, &OpenAIEngine{}, engine)

	_, err = NewAIEngine(AIConfig{Provider: "carrier-pigeon"}, testRegistry(), locales.Default(), testLogger())
	assert.Error(t, err)
}
