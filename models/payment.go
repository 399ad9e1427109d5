package models

import "time"

type OrderTotal struct {
	Subtotal         float64 `json:"subtotal"`
	Tax              float64 `json:"tax"`
	TaxRate          float64 `json:"tax_rate"`
	Jurisdiction     string  `json:"jurisdiction"`
	Total            float64 `json:"total"`
	SettlementAmount float64 `json:"settlement_amount"`
	ExchangeRate     float64 `json:"exchange_rate"`
}

type PaymentLineItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// PaymentLinkPayload is everything the payment page reads back from a token.
type PaymentLinkPayload struct {
	RestaurantName   string            `json:"restaurantName"`
	Items            []PaymentLineItem `json:"items"`
	SubtotalUSD      float64           `json:"subtotalUsd"`
	TaxUSD           float64           `json:"taxUsd"`
	TotalUSD         float64           `json:"totalUsd"`
	SettlementAmount float64           `json:"settlementAmount"`
	ExchangeRate     float64           `json:"exchangeRate"`
	ExpiresAt        time.Time         `json:"expiresAt"`
}

type PaymentLink struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
