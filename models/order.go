package models

import "time"

type OrderItem struct {
	MenuItemID    string   `json:"menu_item_id" firestore:"menuItemId"`
	Name          string   `json:"name" firestore:"name"`
	Quantity      int      `json:"quantity" firestore:"quantity"`
	UnitPrice     float64  `json:"unit_price" firestore:"unitPrice"`
	Modifications []string `json:"modifications" firestore:"modifications"`
}

func (i OrderItem) Clone() OrderItem {
	i.Modifications = append([]string(nil), i.Modifications...)
	return i
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentLinked  PaymentStatus = "link_sent"
	PaymentPaid    PaymentStatus = "paid"
	PaymentExpired PaymentStatus = "expired"
)

// Order is the persistable snapshot of a finished call's order.
type Order struct {
	CallID           string        `json:"call_id"`
	RestaurantID     string        `json:"restaurant_id"`
	CustomerPhone    string        `json:"customer_phone"`
	Language         Language      `json:"language"`
	Items            []OrderItem   `json:"items"`
	Subtotal         float64       `json:"subtotal"`
	Tax              float64       `json:"tax"`
	Total            float64       `json:"total"`
	SettlementAmount float64       `json:"settlement_amount"`
	ExchangeRate     float64       `json:"exchange_rate"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	PaymentURL       string        `json:"payment_url,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

type OrderValidation struct {
	Valid   bool     `json:"valid"`
	Reasons []string `json:"reasons,omitempty"`
}
