package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"DineLine/locales"
	"DineLine/models"
	"DineLine/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	settlementPrecision  = 6
	DefaultPaymentExpiry = 30 * time.Minute
)

var ErrPriceUnavailable = errors.New("exchange rate unavailable")

type PaymentConfig struct {
	Secret       string
	BaseURL      string
	Expiry       time.Duration
	Jurisdiction string
	// Now overrides the clock, used by tests.
	Now func() time.Time
}

// PaymentService prices orders and issues the signed links the payment page consumes.
type PaymentService struct {
	taxes   *TaxTable
	prices  PriceSource
	notices NoticePublisher
	catalog *locales.Catalog
	cfg     PaymentConfig
	now     func() time.Time
	logger  *slog.Logger
}

func NewPaymentService(taxes *TaxTable, prices PriceSource, notices NoticePublisher, catalog *locales.Catalog, cfg PaymentConfig, logger *slog.Logger) (*PaymentService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("payment secret is required")
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = DefaultPaymentExpiry
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &PaymentService{
		taxes:   taxes,
		prices:  prices,
		notices: notices,
		catalog: catalog,
		cfg:     cfg,
		now:     now,
		logger:  logger,
	}, nil
}

// CalculateOrderTotal prices items in jurisdiction. Each fiat component is
// rounded to cents on its own before summing. When the exchange rate cannot
// be read the fiat figures are still returned, along with ErrPriceUnavailable.
func (s *PaymentService) CalculateOrderTotal(ctx context.Context, items []models.OrderItem, jurisdiction string) (models.OrderTotal, error) {
	if jurisdiction == "" {
		jurisdiction = s.cfg.Jurisdiction
	}
	var subtotal int64
	for _, it := range items {
		subtotal += lineCents(it)
	}
	rate := s.taxes.Rate(jurisdiction)
	tax := taxCents(subtotal, rate)
	total := subtotal + tax

	out := models.OrderTotal{
		Subtotal:     utils.FromCents(subtotal),
		Tax:          utils.FromCents(tax),
		TaxRate:      rate,
		Jurisdiction: jurisdiction,
		Total:        utils.FromCents(total),
	}

	exchange, err := s.prices.ExchangeRate(ctx)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	out.ExchangeRate = exchange
	out.SettlementAmount = utils.RoundTo(out.Total*exchange, settlementPrecision)
	return out, nil
}

// BuildPaymentPayload describes order for the payment page.
func BuildPaymentPayload(restaurantName string, order models.Order) models.PaymentLinkPayload {
	items := make([]models.PaymentLineItem, len(order.Items))
	for i, it := range order.Items {
		items[i] = models.PaymentLineItem{Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return models.PaymentLinkPayload{
		RestaurantName:   restaurantName,
		Items:            items,
		SubtotalUSD:      order.Subtotal,
		TaxUSD:           order.Tax,
		TotalUSD:         order.Total,
		SettlementAmount: order.SettlementAmount,
		ExchangeRate:     order.ExchangeRate,
	}
}

type paymentClaims struct {
	RestaurantName   string                   `json:"restaurantName"`
	Items            []models.PaymentLineItem `json:"items"`
	SubtotalUSD      float64                  `json:"subtotalUsd"`
	TaxUSD           float64                  `json:"taxUsd"`
	TotalUSD         float64                  `json:"totalUsd"`
	SettlementAmount float64                  `json:"settlementAmount"`
	ExchangeRate     float64                  `json:"exchangeRate"`
	ExpiresAt        time.Time                `json:"expiresAt"`
	jwt.RegisteredClaims
}

// GeneratePaymentLink signs payload into a time-boxed token and returns the page URL.
func (s *PaymentService) GeneratePaymentLink(payload models.PaymentLinkPayload) (models.PaymentLink, error) {
	issued := s.now()
	// JWT times have whole-second precision; round up so the link never
	// lives shorter than the configured expiry.
	deadline := issued.Add(s.cfg.Expiry)
	expires := deadline.Truncate(time.Second)
	if expires.Before(deadline) {
		expires = expires.Add(time.Second)
	}

	claims := paymentClaims{
		RestaurantName:   payload.RestaurantName,
		Items:            payload.Items,
		SubtotalUSD:      payload.SubtotalUSD,
		TaxUSD:           payload.TaxUSD,
		TotalUSD:         payload.TotalUSD,
		SettlementAmount: payload.SettlementAmount,
		ExchangeRate:     payload.ExchangeRate,
		ExpiresAt:        expires.UTC(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return models.PaymentLink{}, fmt.Errorf("sign payment token: %w", err)
	}
	paymentLinksTotal.WithLabelValues("issued").Inc()

	return models.PaymentLink{
		URL:       strings.TrimRight(s.cfg.BaseURL, "/") + "/pay?token=" + url.QueryEscape(signed),
		Token:     signed,
		ExpiresAt: expires.UTC(),
	}, nil
}

// VerifyPaymentToken checks signature and expiry locally and returns the payload.
func (s *PaymentService) VerifyPaymentToken(token string) (*models.PaymentLinkPayload, error) {
	claims := &paymentClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			paymentLinksTotal.WithLabelValues("expired").Inc()
			return nil, utils.ErrTokenExpired
		}
		paymentLinksTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %v", utils.ErrInvalidToken, err)
	}
	paymentLinksTotal.WithLabelValues("verified").Inc()

	return &models.PaymentLinkPayload{
		RestaurantName:   claims.RestaurantName,
		Items:            claims.Items,
		SubtotalUSD:      claims.SubtotalUSD,
		TaxUSD:           claims.TaxUSD,
		TotalUSD:         claims.TotalUSD,
		SettlementAmount: claims.SettlementAmount,
		ExchangeRate:     claims.ExchangeRate,
		ExpiresAt:        claims.ExpiresAt,
	}, nil
}

// SendPaymentNotice texts the payment link to the customer. Delivery is best
// effort: failures are logged and returned, never retried here.
func (s *PaymentService) SendPaymentNotice(ctx context.Context, phone string, lang models.Language, restaurantName string, total float64, link string) error {
	if phone == "" {
		s.logger.Warn("no phone number for payment notice", "restaurant", restaurantName)
		noticeTotal.WithLabelValues("payment_link", "skipped").Inc()
		return errors.New("no customer phone")
	}
	notice := models.SMSNotice{
		To: phone,
		Body: s.catalog.Format(lang, "payment_notice", map[string]string{
			"restaurant": restaurantName,
			"total":      formatMoney(total),
			"url":        link,
		}),
		Template: "payment_link",
	}
	if err := s.notices.Publish(ctx, notice); err != nil {
		s.logger.Error("payment notice failed", "error", err, "template", notice.Template)
		noticeTotal.WithLabelValues(notice.Template, "failed").Inc()
		return err
	}
	noticeTotal.WithLabelValues(notice.Template, "sent").Inc()
	return nil
}
