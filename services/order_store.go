package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"DineLine/models"
	"DineLine/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderStore is the ledger of completed orders.
type OrderStore interface {
	SaveOrder(ctx context.Context, order models.Order) (bool, error)
	GetOrder(ctx context.Context, callID string) (models.Order, error)
	UpdatePaymentStatus(ctx context.Context, callID string, status models.PaymentStatus, paymentURL string) error
}

type PostgresOrderStore struct {
	db *pgxpool.Pool
}

func NewPostgresOrderStore(db *pgxpool.Pool) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

// SaveOrder inserts the order once per call. It reports false when the call
// already has an order, which is left untouched.
func (s *PostgresOrderStore) SaveOrder(ctx context.Context, order models.Order) (bool, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return false, fmt.Errorf("encode order items: %w", err)
	}
	tag, err := s.db.Exec(ctx, `
		INSERT INTO orders (call_id, restaurant_id, customer_phone, language, items,
			subtotal_cents, tax_cents, total_cents, settlement_amount, exchange_rate,
			payment_status, payment_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (call_id) DO NOTHING`,
		order.CallID, order.RestaurantID, order.CustomerPhone, string(order.Language), items,
		utils.ToCents(order.Subtotal), utils.ToCents(order.Tax), utils.ToCents(order.Total),
		order.SettlementAmount, order.ExchangeRate,
		string(order.PaymentStatus), order.PaymentURL, order.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("order insert failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresOrderStore) GetOrder(ctx context.Context, callID string) (models.Order, error) {
	var (
		order                models.Order
		items                []byte
		lang, paymentStatus  string
		subtotal, tax, total int64
	)
	err := s.db.QueryRow(ctx, `
		SELECT call_id, restaurant_id, customer_phone, language, items,
			subtotal_cents, tax_cents, total_cents, settlement_amount, exchange_rate,
			payment_status, payment_url, created_at
		FROM orders WHERE call_id = $1`, callID,
	).Scan(&order.CallID, &order.RestaurantID, &order.CustomerPhone, &lang, &items,
		&subtotal, &tax, &total, &order.SettlementAmount, &order.ExchangeRate,
		&paymentStatus, &order.PaymentURL, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, fmt.Errorf("%w: %s", utils.ErrOrderNotFound, callID)
		}
		return models.Order{}, err
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return models.Order{}, fmt.Errorf("decode order items: %w", err)
	}
	order.Language = models.Language(lang)
	order.PaymentStatus = models.PaymentStatus(paymentStatus)
	order.Subtotal = utils.FromCents(subtotal)
	order.Tax = utils.FromCents(tax)
	order.Total = utils.FromCents(total)
	return order, nil
}

func (s *PostgresOrderStore) UpdatePaymentStatus(ctx context.Context, callID string, status models.PaymentStatus, paymentURL string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET payment_status = $2,
			payment_url = COALESCE(NULLIF($3, ''), payment_url),
			updated_at = now()
		WHERE call_id = $1`,
		callID, string(status), paymentURL,
	)
	if err != nil {
		return fmt.Errorf("payment status update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", utils.ErrOrderNotFound, callID)
	}
	return nil
}
