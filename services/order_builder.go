package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"DineLine/locales"
	"DineLine/models"
	"DineLine/utils"
)

// MenuLookup resolves catalog entries by id.
type MenuLookup interface {
	GetItem(id string) (models.MenuIndexEntry, error)
}

// OrderBuilder is the in-memory order of a single call. It is not safe for
// concurrent use; a call's turns are sequential.
type OrderBuilder struct {
	menu          MenuLookup
	catalog       *locales.Catalog
	lang          models.Language
	items         []models.OrderItem
	subtotalCents int64
}

func NewOrderBuilder(menu MenuLookup, catalog *locales.Catalog, lang models.Language) *OrderBuilder {
	return &OrderBuilder{menu: menu, catalog: catalog, lang: lang}
}

// NewOrderBuilderFromItems resumes an order from previously built lines.
func NewOrderBuilderFromItems(menu MenuLookup, catalog *locales.Catalog, lang models.Language, items []models.OrderItem) *OrderBuilder {
	b := NewOrderBuilder(menu, catalog, lang)
	for _, it := range items {
		b.items = append(b.items, it.Clone())
		b.subtotalCents += lineCents(it)
	}
	return b
}

func lineCents(it models.OrderItem) int64 {
	return utils.ToCents(it.UnitPrice) * int64(it.Quantity)
}

// AddItem adds qty of a catalog item. A line with the same item and the same
// modifications absorbs the quantity instead of a new line being appended.
func (b *OrderBuilder) AddItem(itemID string, qty int, mods []string) (models.OrderItem, error) {
	if qty < 1 {
		return models.OrderItem{}, fmt.Errorf("%w: got %d", utils.ErrInvalidQuantity, qty)
	}
	entry, err := b.menu.GetItem(itemID)
	if err != nil {
		return models.OrderItem{}, err
	}

	mods = cleanMods(mods)
	for i := range b.items {
		if b.items[i].MenuItemID == itemID && sameMods(b.items[i].Modifications, mods) {
			b.items[i].Quantity += qty
			b.subtotalCents += utils.ToCents(b.items[i].UnitPrice) * int64(qty)
			return b.items[i].Clone(), nil
		}
	}

	line := models.OrderItem{
		MenuItemID:    entry.ID,
		Name:          entry.LocalizedName(b.lang),
		Quantity:      qty,
		UnitPrice:     entry.Price,
		Modifications: mods,
	}
	b.items = append(b.items, line)
	b.subtotalCents += lineCents(line)
	return line.Clone(), nil
}

// RemoveItem removes the first line ordering itemID.
func (b *OrderBuilder) RemoveItem(itemID string) error {
	for i, it := range b.items {
		if it.MenuItemID != itemID {
			continue
		}
		b.subtotalCents -= lineCents(it)
		b.items = append(b.items[:i], b.items[i+1:]...)
		return nil
	}
	return fmt.Errorf("%w: %s", utils.ErrLineNotFound, itemID)
}

// ModifyItem replaces the modifications of the most recent line ordering itemID.
func (b *OrderBuilder) ModifyItem(itemID string, mods []string) error {
	for i := len(b.items) - 1; i >= 0; i-- {
		if b.items[i].MenuItemID == itemID {
			b.items[i].Modifications = cleanMods(mods)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", utils.ErrLineNotFound, itemID)
}

func cleanMods(mods []string) []string {
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// sameMods compares modification lists ignoring order and case.
func sameMods(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := make([]string, len(a))
	y := make([]string, len(b))
	for i := range a {
		x[i] = strings.ToLower(a[i])
		y[i] = strings.ToLower(b[i])
	}
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func (b *OrderBuilder) Items() []models.OrderItem {
	out := make([]models.OrderItem, len(b.items))
	for i, it := range b.items {
		out[i] = it.Clone()
	}
	return out
}

func (b *OrderBuilder) Len() int { return len(b.items) }

func (b *OrderBuilder) IsEmpty() bool { return len(b.items) == 0 }

func (b *OrderBuilder) ItemIDs() []string {
	ids := make([]string, len(b.items))
	for i, it := range b.items {
		ids[i] = it.MenuItemID
	}
	return ids
}

// GetSubtotal returns the subtotal rounded to cents.
func (b *OrderBuilder) GetSubtotal() float64 {
	return utils.FromCents(b.subtotalCents)
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(utils.RoundMoney(v), 'f', 2, 64)
}

// GetOrderSummary renders the order as spoken lines in lang.
func (b *OrderBuilder) GetOrderSummary(lang models.Language) string {
	if len(b.items) == 0 {
		return b.catalog.Text(lang, "summary_empty")
	}

	lines := []string{b.catalog.Text(lang, "summary_header")}
	for _, it := range b.items {
		line := b.catalog.Format(lang, "summary_line", map[string]string{
			"qty":   strconv.Itoa(it.Quantity),
			"name":  it.Name,
			"price": formatMoney(utils.FromCents(lineCents(it))),
		})
		if len(it.Modifications) > 0 {
			line += b.catalog.Format(lang, "summary_mods", map[string]string{
				"mods": b.catalog.JoinList(lang, it.Modifications),
			})
		}
		lines = append(lines, line)
	}
	lines = append(lines, b.catalog.Format(lang, "summary_subtotal", map[string]string{
		"subtotal": formatMoney(b.GetSubtotal()),
	}))
	return strings.Join(lines, "\n")
}

// Validate reports every reason the order cannot be submitted, in the builder's language.
func (b *OrderBuilder) Validate() models.OrderValidation {
	var reasons []string
	if len(b.items) == 0 {
		reasons = append(reasons, b.catalog.Text(b.lang, "reason_no_items"))
	}
	if b.subtotalCents <= 0 {
		reasons = append(reasons, b.catalog.Text(b.lang, "reason_non_positive_subtotal"))
	}
	for _, it := range b.items {
		if it.Quantity <= 0 {
			reasons = append(reasons, b.catalog.Format(b.lang, "reason_bad_quantity", map[string]string{"name": it.Name}))
		}
		if it.UnitPrice < 0 {
			reasons = append(reasons, b.catalog.Format(b.lang, "reason_bad_price", map[string]string{"name": it.Name}))
		}
	}
	return models.OrderValidation{Valid: len(reasons) == 0, Reasons: reasons}
}

// OrderParams carries what the builder does not compute itself.
type OrderParams struct {
	CallID        string
	RestaurantID  string
	CustomerPhone string
	Tax           float64
	ExchangeRate  float64
	CreatedAt     time.Time
}

// ToOrder snapshots the builder into a persistable order. It has no side effects.
func (b *OrderBuilder) ToOrder(p OrderParams) models.Order {
	subtotal := b.GetSubtotal()
	tax := utils.RoundMoney(p.Tax)
	total := utils.FromCents(utils.ToCents(subtotal) + utils.ToCents(tax))
	return models.Order{
		CallID:           p.CallID,
		RestaurantID:     p.RestaurantID,
		CustomerPhone:    p.CustomerPhone,
		Language:         b.lang,
		Items:            b.Items(),
		Subtotal:         subtotal,
		Tax:              tax,
		Total:            total,
		SettlementAmount: utils.RoundTo(total*p.ExchangeRate, settlementPrecision),
		ExchangeRate:     p.ExchangeRate,
		PaymentStatus:    models.PaymentPending,
		CreatedAt:        p.CreatedAt,
	}
}
