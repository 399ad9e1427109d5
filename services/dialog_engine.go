package services

import (
	"log/slog"
	"strconv"

	"DineLine/locales"
	"DineLine/models"
	"DineLine/utils"
)

const menuOptionsSpoken = 5

// MatcherProvider hands out the menu matcher of a restaurant.
type MatcherProvider interface {
	Matcher(restaurantID string) *MenuMatcher
}

type DialogConfig struct {
	UpsellEnabled bool
	MaxErrors     int
	ETAMinutes    int
	Jurisdiction  string
}

// TurnResult is the outcome of one dialog turn.
type TurnResult struct {
	Response  string               `json:"response"`
	NextState models.DialogState   `json:"next_state"`
	Context   models.DialogContext `json:"context"`
}

// DialogEngine drives the conversation state machine. ProcessInput performs
// no I/O and never fails; every problem becomes a state or a prompt.
type DialogEngine struct {
	menus   MatcherProvider
	catalog *locales.Catalog
	taxes   *TaxTable
	cfg     DialogConfig
	logger  *slog.Logger
}

func NewDialogEngine(menus MatcherProvider, catalog *locales.Catalog, taxes *TaxTable, cfg DialogConfig, logger *slog.Logger) *DialogEngine {
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = models.DefaultMaxErrors
	}
	if cfg.ETAMinutes <= 0 {
		cfg.ETAMinutes = 20
	}
	return &DialogEngine{menus: menus, catalog: catalog, taxes: taxes, cfg: cfg, logger: logger}
}

// Start emits the greeting for a freshly connected call.
func (e *DialogEngine) Start(in models.DialogContext) TurnResult {
	dctx := in.Clone()
	t := e.newTurn(&dctx, models.IntentResult{Intent: models.IntentGreeting, Confidence: 1})
	response := t.greet()
	return e.finish(t, response)
}

// ProcessInput applies one classified customer utterance to the call.
func (e *DialogEngine) ProcessInput(in models.DialogContext, intent models.IntentResult) TurnResult {
	dctx := in.Clone()
	dctx.History = append(dctx.History, models.ConversationTurn{
		Speaker: models.SpeakerCustomer,
		Text:    intent.RawText,
		State:   dctx.State,
	})
	t := e.newTurn(&dctx, intent)
	return e.finish(t, t.run())
}

func (e *DialogEngine) newTurn(dctx *models.DialogContext, intent models.IntentResult) *turn {
	if dctx.MaxErrors <= 0 {
		dctx.MaxErrors = e.cfg.MaxErrors
	}
	if dctx.Language == "" {
		dctx.Language = models.English
	}
	if dctx.Metadata == nil {
		dctx.Metadata = map[string]string{}
	}
	matcher := e.menus.Matcher(dctx.RestaurantID)
	return &turn{
		e:       e,
		ctx:     dctx,
		intent:  intent,
		matcher: matcher,
		order:   NewOrderBuilderFromItems(matcher, e.catalog, dctx.Language, dctx.Items),
	}
}

func (e *DialogEngine) finish(t *turn, response string) TurnResult {
	t.ctx.Items = t.order.Items()
	t.ctx.Subtotal = t.order.GetSubtotal()
	t.ctx.History = append(t.ctx.History, models.ConversationTurn{
		Speaker: models.SpeakerAssistant,
		Text:    response,
		State:   t.ctx.State,
	})
	dialogTurnsTotal.WithLabelValues(string(t.ctx.State)).Inc()
	return TurnResult{Response: response, NextState: t.ctx.State, Context: *t.ctx}
}

// QuoteTotal is the spoken total for the order in the call context.
func (e *DialogEngine) QuoteTotal(dctx models.DialogContext) float64 {
	subtotal := int64(0)
	for _, it := range dctx.Items {
		subtotal += lineCents(it)
	}
	rate := e.taxes.Rate(e.jurisdiction(dctx))
	return utils.FromCents(subtotal + taxCents(subtotal, rate))
}

func (e *DialogEngine) jurisdiction(dctx models.DialogContext) string {
	if j := dctx.Metadata[MetaJurisdiction]; j != "" {
		return j
	}
	return e.cfg.Jurisdiction
}

// Keys the dialog reads from DialogContext.Metadata.
const (
	MetaRestaurantName = "restaurant_name"
	MetaJurisdiction   = "jurisdiction"
)

func last4(phone string) string {
	digits := make([]rune, 0, len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) <= 4 {
		return string(digits)
	}
	return string(digits[len(digits)-4:])
}

func itoa(n int) string { return strconv.Itoa(n) }

// OrderBuilder rebuilds the order of a call context.
func (e *DialogEngine) OrderBuilder(dctx models.DialogContext) *OrderBuilder {
	lang := dctx.Language
	if lang == "" {
		lang = models.English
	}
	return NewOrderBuilderFromItems(e.menus.Matcher(dctx.RestaurantID), e.catalog, lang, dctx.Items)
}
