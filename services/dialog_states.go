package services

import (
	"strings"

	"DineLine/models"
)

// turn carries the working state of one ProcessInput call.
type turn struct {
	e       *DialogEngine
	ctx     *models.DialogContext
	intent  models.IntentResult
	matcher *MenuMatcher
	order   *OrderBuilder
}

func (t *turn) text(key string) string {
	return t.e.catalog.Text(t.ctx.Language, key)
}

func (t *turn) format(key string, args map[string]string) string {
	return t.e.catalog.Format(t.ctx.Language, key, args)
}

func (t *turn) goTo(state models.DialogState) {
	t.ctx.State = state
}

func joinSpoken(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

func (t *turn) run() string {
	state := t.ctx.State
	switch state {
	case models.StateClosing:
		return t.text("goodbye")
	case models.StateTransferToHuman:
		return t.text("transfer")
	}

	if t.intent.Understood() {
		t.ctx.ErrorCount = 0
	}

	if t.intent.Intent == models.IntentRequestHuman && t.intent.Understood() {
		return t.transfer()
	}

	switched := t.switchLanguage()

	if state == models.StateErrorRecovery {
		state = t.ctx.ResumeState
		if state == "" || state.Terminal() || state == models.StateErrorRecovery {
			state = models.StateTakingOrder
		}
		t.goTo(state)
	}

	switch state {
	case models.StateGreeting:
		return t.greet()
	case models.StateLanguageSelect:
		return t.languageSelect()
	}

	if switched && t.intent.Intent == models.IntentChangeLanguage {
		return joinSpoken(t.text("language_switched"), t.reprompt())
	}

	if !t.intent.Understood() && t.needsRecovery(state) {
		return t.recover()
	}

	var response string
	switch state {
	case models.StateTakingOrder:
		response = t.takingOrder()
	case models.StateItemCustomization:
		response = t.itemCustomization()
	case models.StateUpselling:
		response = t.upselling()
	case models.StateOrderReview:
		response = t.orderReview()
	case models.StateCustomerInfo:
		response = t.customerInfo()
	case models.StatePayment:
		response = t.payment()
	case models.StateConfirmation:
		response = t.confirmation()
	default:
		t.e.logger.Warn("dialog in unknown state, resuming order taking", "call_id", t.ctx.CallID, "state", state)
		t.goTo(models.StateTakingOrder)
		response = t.text("ask_order")
	}
	if switched {
		response = joinSpoken(t.text("language_switched"), response)
	}
	return response
}

// switchLanguage honors a language entity in any state.
func (t *turn) switchLanguage() bool {
	lang := t.intent.Entities.Language
	if lang == "" || lang == t.ctx.Language {
		return false
	}
	if _, ok := models.ParseLanguage(string(lang)); !ok {
		return false
	}
	t.ctx.Language = lang
	t.order.lang = lang
	return true
}

// needsRecovery reports whether a misunderstood turn in state counts as a
// comprehension failure. Entities the state can use still count as progress.
func (t *turn) needsRecovery(state models.DialogState) bool {
	switch state {
	case models.StateConfirmation:
		return false
	case models.StateCustomerInfo:
		return t.intent.Entities.Phone == ""
	case models.StatePayment:
		return t.intent.Entities.PaymentMethod == ""
	}
	return true
}

func (t *turn) recover() string {
	if t.ctx.State != models.StateErrorRecovery {
		t.ctx.ResumeState = t.ctx.State
	}
	t.ctx.ErrorCount++
	t.e.logger.Info("dialog comprehension failure",
		"call_id", t.ctx.CallID,
		"state", t.ctx.State,
		"error_count", t.ctx.ErrorCount,
		"intent", t.intent.Intent,
		"confidence", t.intent.Confidence,
	)
	if t.ctx.ErrorCount >= t.ctx.MaxErrors {
		return t.transfer()
	}
	var response string
	if t.ctx.ErrorCount == 1 {
		response = t.text("rephrase")
	} else {
		response = t.format("offer_menu", map[string]string{"options": t.menuOptions()})
	}
	t.goTo(t.ctx.ResumeState)
	return response
}

func (t *turn) transfer() string {
	t.goTo(models.StateTransferToHuman)
	return t.text("transfer")
}

func (t *turn) menuOptions() string {
	items := t.matcher.AvailableItems(menuOptionsSpoken)
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.LocalizedName(t.ctx.Language)
	}
	return t.e.catalog.JoinList(t.ctx.Language, names)
}

func (t *turn) greet() string {
	t.goTo(models.StateLanguageSelect)
	return t.format("greeting", map[string]string{"restaurant": t.ctx.Metadata[MetaRestaurantName]})
}

func (t *turn) languageSelect() string {
	if t.intent.Intent == models.IntentOrderItem {
		t.goTo(models.StateTakingOrder)
		return t.takingOrder()
	}
	t.goTo(models.StateTakingOrder)
	return t.text("ask_order")
}

// reprompt repeats the question of the current state, used after a language switch.
func (t *turn) reprompt() string {
	switch t.ctx.State {
	case models.StateOrderReview:
		return t.reviewPrompt()
	case models.StateCustomerInfo:
		return t.customerInfoPrompt()
	case models.StatePayment:
		return t.text("payment_prompt")
	case models.StateItemCustomization:
		return t.customizationPrompt()
	case models.StateUpselling:
		return t.upsellPrompt()
	}
	return t.text("ask_order")
}

func (t *turn) takingOrder() string {
	switch t.intent.Intent {
	case models.IntentOrderItem:
		added, response := t.addItems()
		if !added {
			if t.order.IsEmpty() {
				return response
			}
			return joinSpoken(response, t.text("anything_else"))
		}
		return joinSpoken(response, t.afterAdd())
	case models.IntentRemoveItem:
		return joinSpoken(t.removeItems(), t.text("anything_else"))
	case models.IntentModifyItem:
		return t.modify()
	case models.IntentReadyToPay, models.IntentConfirm:
		if t.order.IsEmpty() {
			return t.text("order_empty")
		}
		return t.review()
	case models.IntentDeny:
		if t.order.IsEmpty() {
			return t.text("ask_order")
		}
		return t.review()
	case models.IntentAskMenu:
		return joinSpoken(t.format("menu_listing", map[string]string{"options": t.menuOptions()}), t.text("ask_order"))
	}
	if t.order.IsEmpty() {
		return t.text("ask_order")
	}
	return t.text("anything_else")
}

// modify applies spoken modifications to the most recent line, or asks for them.
func (t *turn) modify() string {
	if t.order.IsEmpty() || t.ctx.LastItemID == "" {
		return t.text("order_empty")
	}
	mods := t.requestedMods()
	if len(mods) == 0 {
		t.goTo(models.StateItemCustomization)
		return t.customizationPrompt()
	}
	return joinSpoken(t.applyMods(mods), t.afterAdd())
}

func (t *turn) customizationPrompt() string {
	return t.format("ask_customization", map[string]string{"name": t.lastItemName()})
}

func (t *turn) itemCustomization() string {
	switch t.intent.Intent {
	case models.IntentDeny, models.IntentReadyToPay:
		return t.afterAdd()
	case models.IntentOrderItem:
		t.goTo(models.StateTakingOrder)
		return t.takingOrder()
	case models.IntentRemoveItem:
		t.goTo(models.StateTakingOrder)
		return t.takingOrder()
	}
	mods := t.requestedMods()
	if len(mods) == 0 {
		return t.customizationPrompt()
	}
	return joinSpoken(t.applyMods(mods), t.afterAdd())
}

func (t *turn) requestedMods() []string {
	var mods []string
	for _, item := range t.intent.Entities.Items {
		mods = append(mods, item.Modifications...)
	}
	if len(mods) == 0 {
		mods = t.matcher.ExtractModifications(t.intent.RawText, t.ctx.Language).Modifications
	}
	return mods
}

func (t *turn) applyMods(mods []string) string {
	if err := t.order.ModifyItem(t.ctx.LastItemID, mods); err != nil {
		t.e.logger.Warn("modification target missing", "call_id", t.ctx.CallID, "item_id", t.ctx.LastItemID, "error", err)
		return t.text("order_empty")
	}
	return t.format("customization_applied", map[string]string{
		"name": t.lastItemName(),
		"mods": t.e.catalog.JoinList(t.ctx.Language, mods),
	})
}

func (t *turn) lastItemName() string {
	items := t.order.Items()
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].MenuItemID == t.ctx.LastItemID {
			return items[i].Name
		}
	}
	return ""
}

// afterAdd offers the one-time upsell when it applies, otherwise reviews.
func (t *turn) afterAdd() string {
	if t.e.cfg.UpsellEnabled && !t.ctx.UpsellOffered && !t.order.IsEmpty() {
		suggestions := t.matcher.SuggestUpsell(t.order.ItemIDs())
		if len(suggestions) > 0 {
			t.ctx.UpsellOffered = true
			t.ctx.UpsellItemIDs = t.ctx.UpsellItemIDs[:0]
			for _, s := range suggestions {
				t.ctx.UpsellItemIDs = append(t.ctx.UpsellItemIDs, s.ID)
			}
			t.goTo(models.StateUpselling)
			return t.upsellPrompt()
		}
	}
	return t.review()
}

func (t *turn) upsellPrompt() string {
	names := make([]string, 0, len(t.ctx.UpsellItemIDs))
	for _, id := range t.ctx.UpsellItemIDs {
		if entry, err := t.matcher.GetItem(id); err == nil {
			names = append(names, entry.LocalizedName(t.ctx.Language))
		}
	}
	return t.format("upsell_offer", map[string]string{"options": t.e.catalog.JoinList(t.ctx.Language, names)})
}

func (t *turn) upselling() string {
	var response string
	switch t.intent.Intent {
	case models.IntentOrderItem:
		_, response = t.addItems()
	case models.IntentConfirm:
		if len(t.intent.Entities.Items) > 0 {
			_, response = t.addItems()
		} else if len(t.ctx.UpsellItemIDs) > 0 {
			response = t.addByID(t.ctx.UpsellItemIDs[0], 1, nil)
		}
	case models.IntentRemoveItem:
		response = t.removeItems()
	case models.IntentAskMenu:
		return joinSpoken(t.format("menu_listing", map[string]string{"options": t.menuOptions()}), t.upsellPrompt())
	}
	t.ctx.UpsellItemIDs = nil
	if t.order.IsEmpty() {
		t.goTo(models.StateTakingOrder)
		return joinSpoken(response, t.text("ask_order"))
	}
	return joinSpoken(response, t.review())
}

func (t *turn) review() string {
	t.goTo(models.StateOrderReview)
	return t.reviewPrompt()
}

func (t *turn) reviewPrompt() string {
	return t.format("review", map[string]string{"summary": t.order.GetOrderSummary(t.ctx.Language)})
}

func (t *turn) orderReview() string {
	switch t.intent.Intent {
	case models.IntentConfirm, models.IntentReadyToPay:
		validation := t.order.Validate()
		if !validation.Valid {
			t.e.logger.Info("order failed validation", "call_id", t.ctx.CallID, "reasons", validation.Reasons)
			t.goTo(models.StateTakingOrder)
			return t.format("order_invalid", map[string]string{
				"reasons": t.e.catalog.JoinList(t.ctx.Language, validation.Reasons),
			})
		}
		t.ctx.OrderConfirmed = true
		t.goTo(models.StateCustomerInfo)
		return t.customerInfoPrompt()
	case models.IntentDeny:
		t.goTo(models.StateTakingOrder)
		return t.text("ask_change")
	case models.IntentOrderItem:
		_, response := t.addItems()
		return joinSpoken(response, t.review())
	case models.IntentRemoveItem:
		response := t.removeItems()
		if t.order.IsEmpty() {
			t.goTo(models.StateTakingOrder)
			return joinSpoken(response, t.text("order_empty"))
		}
		return joinSpoken(response, t.review())
	case models.IntentModifyItem:
		mods := t.requestedMods()
		if len(mods) == 0 || t.ctx.LastItemID == "" {
			t.goTo(models.StateTakingOrder)
			return t.text("ask_change")
		}
		return joinSpoken(t.applyMods(mods), t.review())
	case models.IntentAskMenu:
		return joinSpoken(t.format("menu_listing", map[string]string{"options": t.menuOptions()}), t.reviewPrompt())
	}
	return t.reviewPrompt()
}

func (t *turn) customerInfoPrompt() string {
	if t.ctx.CustomerPhone != "" {
		return t.format("customer_info_known", map[string]string{"last4": last4(t.ctx.CustomerPhone)})
	}
	return t.text("customer_info")
}

func (t *turn) customerInfo() string {
	if phone := t.intent.Entities.Phone; phone != "" {
		t.ctx.CustomerPhone = phone
		return t.startPayment()
	}
	switch t.intent.Intent {
	case models.IntentConfirm, models.IntentReadyToPay:
		if t.ctx.CustomerPhone != "" {
			return t.startPayment()
		}
	case models.IntentDeny:
		t.ctx.CustomerPhone = ""
	}
	return t.customerInfoPrompt()
}

func (t *turn) startPayment() string {
	t.ctx.PaymentInitiated = true
	t.goTo(models.StatePayment)
	return t.text("payment_prompt")
}

func (t *turn) payment() string {
	method := t.intent.Entities.PaymentMethod
	if method == "" && (t.intent.Intent == models.IntentConfirm || t.intent.Intent == models.IntentReadyToPay) {
		method = "card"
	}
	if method == "" {
		return t.text("payment_prompt")
	}
	t.ctx.PaymentMethod = method
	t.goTo(models.StateConfirmation)
	return t.format("confirmation_eta", map[string]string{
		"total": formatMoney(t.e.QuoteTotal(*t.ctx)),
		"eta":   itoa(t.e.cfg.ETAMinutes),
	})
}

func (t *turn) confirmation() string {
	t.goTo(models.StateClosing)
	return t.text("goodbye")
}

// addItems resolves every named item against the menu and adds what matched.
func (t *turn) addItems() (bool, string) {
	requests := t.intent.Entities.Items
	if len(requests) == 0 && strings.TrimSpace(t.intent.RawText) != "" {
		requests = []models.ItemEntity{{Name: t.intent.RawText}}
	}

	var added, missing, unavailable []string
	for _, req := range requests {
		qty := req.Quantity
		text := req.Name
		if qty <= 0 {
			q := t.matcher.ExtractQuantity(text, t.ctx.Language)
			qty, text = q.Quantity, q.ItemText
		}
		mods := req.Modifications
		if len(mods) == 0 {
			m := t.matcher.ExtractModifications(text, t.ctx.Language)
			mods, text = m.Modifications, m.ItemText
		}

		match, ok := t.matcher.BestMatch(text, t.ctx.Language)
		if !ok {
			t.e.logger.Warn("no menu match", "call_id", t.ctx.CallID, "restaurant_id", t.ctx.RestaurantID, "text", text)
			missing = append(missing, req.Name)
			continue
		}
		if !match.Item.Available {
			unavailable = append(unavailable, match.Item.LocalizedName(t.ctx.Language))
			continue
		}
		line, err := t.order.AddItem(match.Item.ID, qty, mods)
		if err != nil {
			t.e.logger.Warn("could not add item", "call_id", t.ctx.CallID, "item_id", match.Item.ID, "error", err)
			missing = append(missing, req.Name)
			continue
		}
		t.ctx.LastItemID = line.MenuItemID
		added = append(added, t.format("item_phrase", map[string]string{
			"qty":  itoa(qty),
			"name": line.Name,
		}))
	}

	lang := t.ctx.Language
	var parts []string
	if len(added) > 0 {
		parts = append(parts, t.format("items_added", map[string]string{"items": t.e.catalog.JoinList(lang, added)}))
	}
	if len(unavailable) > 0 {
		parts = append(parts, t.format("item_unavailable", map[string]string{"items": t.e.catalog.JoinList(lang, unavailable)}))
	}
	if len(missing) > 0 {
		parts = append(parts, t.format("item_not_found", map[string]string{"items": t.e.catalog.JoinList(lang, missing)}))
	}
	if len(parts) == 0 {
		parts = append(parts, t.text("ask_order"))
	}
	return len(added) > 0, joinSpoken(parts...)
}

func (t *turn) addByID(id string, qty int, mods []string) string {
	line, err := t.order.AddItem(id, qty, mods)
	if err != nil {
		t.e.logger.Warn("could not add upsell item", "call_id", t.ctx.CallID, "item_id", id, "error", err)
		return ""
	}
	t.ctx.LastItemID = line.MenuItemID
	return t.format("items_added", map[string]string{
		"items": t.format("item_phrase", map[string]string{"qty": itoa(qty), "name": line.Name}),
	})
}

func (t *turn) removeItems() string {
	requests := t.intent.Entities.Items
	if len(requests) == 0 && strings.TrimSpace(t.intent.RawText) != "" {
		requests = []models.ItemEntity{{Name: t.intent.RawText}}
	}

	var removed, absent []string
	for _, req := range requests {
		text := t.matcher.ExtractQuantity(req.Name, t.ctx.Language).ItemText
		match, ok := t.matcher.BestMatch(text, t.ctx.Language)
		if !ok {
			absent = append(absent, req.Name)
			continue
		}
		if err := t.order.RemoveItem(match.Item.ID); err != nil {
			absent = append(absent, match.Item.LocalizedName(t.ctx.Language))
			continue
		}
		t.ctx.LastItemID = ""
		if ids := t.order.ItemIDs(); len(ids) > 0 {
			t.ctx.LastItemID = ids[len(ids)-1]
		}
		removed = append(removed, match.Item.LocalizedName(t.ctx.Language))
	}

	lang := t.ctx.Language
	var parts []string
	if len(removed) > 0 {
		parts = append(parts, t.format("item_removed", map[string]string{"items": t.e.catalog.JoinList(lang, removed)}))
	}
	if len(absent) > 0 {
		parts = append(parts, t.format("item_not_in_order", map[string]string{"items": t.e.catalog.JoinList(lang, absent)}))
	}
	return joinSpoken(parts...)
}
