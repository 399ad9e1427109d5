package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"DineLine/locales"
	"DineLine/models"
	"DineLine/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPrices struct{}

func (failingPrices) ExchangeRate(context.Context) (float64, error) {
	return 0, errors.New("upstream timeout")
}

func newTestPayments(t *testing.T, prices PriceSource, notices NoticePublisher, clock *fakeClock, expiry time.Duration) *PaymentService {
	t.Helper()
	cfg := PaymentConfig{
		Secret:       "test-secret",
		BaseURL:      "https://pay.example.com/",
		Expiry:       expiry,
		Jurisdiction: "US-NY-NYC",
	}
	if clock != nil {
		cfg.Now = clock.Now
	}
	svc, err := NewPaymentService(NewTaxTable(DefaultTaxRate, testLogger()), prices, notices, locales.Default(), cfg, testLogger())
	require.NoError(t, err)
	return svc
}

func twoItems() []models.OrderItem {
	return []models.OrderItem{
		{MenuItemID: "fried-rice", Name: "Fried Rice", Quantity: 1, UnitPrice: 14.99},
		{MenuItemID: "egg-roll", Name: "Egg Roll", Quantity: 1, UnitPrice: 4.99},
	}
}

func TestNewPaymentServiceRequiresSecret(t *testing.T) {
	_, err := NewPaymentService(NewTaxTable(0, testLogger()), StaticPriceSource{Rate: 1}, &memoryNotices{}, locales.Default(), PaymentConfig{}, testLogger())
	assert.Error(t, err)
}

func TestCalculateOrderTotal(t *testing.T) {
	svc := newTestPayments(t, StaticPriceSource{Rate: 0.5}, &memoryNotices{}, nil, 0)

	total, err := svc.CalculateOrderTotal(context.Background(), twoItems(), "")
	require.NoError(t, err)
	assert.Equal(t, 19.98, total.Subtotal)
	assert.Equal(t, 1.77, total.Tax)
	assert.Equal(t, 21.75, total.Total)
	assert.Equal(t, 0.08875, total.TaxRate)
	assert.Equal(t, "US-NY-NYC", total.Jurisdiction)
	assert.Equal(t, 0.5, total.ExchangeRate)
	assert.Equal(t, 10.875, total.SettlementAmount)
}

func TestCalculateOrderTotalJurisdictions(t *testing.T) {
	svc := newTestPayments(t, StaticPriceSource{Rate: 1}, &memoryNotices{}, nil, 0)
	ctx := context.Background()

	tests := []struct {
		jurisdiction string
		rate         float64
		tax          float64
	}{
		{"US-TX", 0.0625, 1.25},
		{"us-ca", 0.0725, 1.45},
		{"ZZ-QQ", DefaultTaxRate, 1.77},
		{"new york!", DefaultTaxRate, 1.77},
	}
	for _, tt := range tests {
		t.Run(tt.jurisdiction, func(t *testing.T) {
			total, err := svc.CalculateOrderTotal(ctx, twoItems(), tt.jurisdiction)
			require.NoError(t, err)
			assert.Equal(t, tt.rate, total.TaxRate)
			assert.Equal(t, tt.tax, total.Tax)
			assert.Equal(t, utils.FromCents(utils.ToCents(total.Subtotal)+utils.ToCents(total.Tax)), total.Total)
		})
	}
}

func TestCalculateOrderTotalIsMonotonic(t *testing.T) {
	svc := newTestPayments(t, StaticPriceSource{Rate: 1}, &memoryNotices{}, nil, 0)
	prev := -1.0
	for cents := int64(0); cents <= 5000; cents += 7 {
		items := []models.OrderItem{{MenuItemID: "x", Quantity: 1, UnitPrice: utils.FromCents(cents)}}
		total, err := svc.CalculateOrderTotal(context.Background(), items, "US-NY-NYC")
		require.NoError(t, err)
		require.GreaterOrEqual(t, total.Total, prev, "subtotal %d cents", cents)
		require.GreaterOrEqual(t, total.Total, total.Subtotal)
		prev = total.Total
	}
}

func TestCalculateOrderTotalWithoutExchangeRate(t *testing.T) {
	svc := newTestPayments(t, failingPrices{}, &memoryNotices{}, nil, 0)
	total, err := svc.CalculateOrderTotal(context.Background(), twoItems(), "")
	require.ErrorIs(t, err, ErrPriceUnavailable)
	assert.Equal(t, 21.75, total.Total)
	assert.Zero(t, total.SettlementAmount)
}

func TestPaymentLinkRoundTrip(t *testing.T) {
	clock := newFakeClock()
	svc := newTestPayments(t, StaticPriceSource{Rate: 0.5}, &memoryNotices{}, clock, 30*time.Minute)

	order := models.Order{Items: twoItems(), Subtotal: 19.98, Tax: 1.77, Total: 21.75, SettlementAmount: 10.875, ExchangeRate: 0.5}
	link, err := svc.GeneratePaymentLink(BuildPaymentPayload("Golden Dragon", order))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(link.URL, "https://pay.example.com/pay?token="))
	u, err := url.Parse(link.URL)
	require.NoError(t, err)
	assert.Equal(t, link.Token, u.Query().Get("token"))
	assert.Equal(t, clock.Now().Add(30*time.Minute), link.ExpiresAt)

	clock.Advance(29 * time.Minute)
	payload, err := svc.VerifyPaymentToken(link.Token)
	require.NoError(t, err)
	assert.Equal(t, "Golden Dragon", payload.RestaurantName)
	assert.Equal(t, 21.75, payload.TotalUSD)
	assert.Equal(t, 1.77, payload.TaxUSD)
	assert.Equal(t, 10.875, payload.SettlementAmount)
	require.Len(t, payload.Items, 2)
	assert.Equal(t, models.PaymentLineItem{Name: "Fried Rice", Quantity: 1, UnitPrice: 14.99}, payload.Items[0])
	assert.True(t, payload.ExpiresAt.Equal(link.ExpiresAt))

	clock.Advance(2 * time.Minute)
	_, err = svc.VerifyPaymentToken(link.Token)
	assert.ErrorIs(t, err, utils.ErrTokenExpired)
}

func TestPaymentLinkExpiresInRealTime(t *testing.T) {
	svc := newTestPayments(t, StaticPriceSource{Rate: 1}, &memoryNotices{}, nil, time.Second)
	link, err := svc.GeneratePaymentLink(models.PaymentLinkPayload{RestaurantName: "Golden Dragon", TotalUSD: 21.75})
	require.NoError(t, err)

	time.Sleep(2100 * time.Millisecond)
	_, err = svc.VerifyPaymentToken(link.Token)
	assert.ErrorIs(t, err, utils.ErrTokenExpired)
}

func TestPaymentLinkLivesAtLeastTheExpiry(t *testing.T) {
	tests := []struct {
		name   string
		offset time.Duration
		expiry time.Duration
	}{
		{"late in the second", 950 * time.Millisecond, time.Second},
		{"early in the second", 10 * time.Millisecond, time.Second},
		{"on the second", 0, time.Second},
		{"long expiry", 999 * time.Millisecond, 30 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			clock.Advance(tt.offset)
			svc := newTestPayments(t, StaticPriceSource{Rate: 1}, &memoryNotices{}, clock, tt.expiry)

			issued := clock.Now()
			link, err := svc.GeneratePaymentLink(models.PaymentLinkPayload{RestaurantName: "Golden Dragon", TotalUSD: 21.75})
			require.NoError(t, err)
			assert.False(t, link.ExpiresAt.Before(issued.Add(tt.expiry)))
			assert.Less(t, link.ExpiresAt.Sub(issued), tt.expiry+time.Second)

			clock.Advance(100 * time.Millisecond)
			_, err = svc.VerifyPaymentToken(link.Token)
			require.NoError(t, err)

			clock.Advance(tt.expiry - 100*time.Millisecond - time.Millisecond)
			_, err = svc.VerifyPaymentToken(link.Token)
			require.NoError(t, err, "still inside the configured expiry")

			clock.Advance(time.Second + time.Millisecond)
			_, err = svc.VerifyPaymentToken(link.Token)
			assert.ErrorIs(t, err, utils.ErrTokenExpired)
		})
	}
}

func TestVerifyPaymentTokenRejectsTampering(t *testing.T) {
	clock := newFakeClock()
	svc := newTestPayments(t, StaticPriceSource{Rate: 1}, &memoryNotices{}, clock, 0)
	link, err := svc.GeneratePaymentLink(models.PaymentLinkPayload{RestaurantName: "Golden Dragon", TotalUSD: 21.75})
	require.NoError(t, err)

	other, err := NewPaymentService(NewTaxTable(0, testLogger()), StaticPriceSource{Rate: 1}, &memoryNotices{}, locales.Default(),
		PaymentConfig{Secret: "another-secret", Now: clock.Now}, testLogger())
	require.NoError(t, err)
	_, err = other.VerifyPaymentToken(link.Token)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)

	parts := strings.Split(link.Token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	_, err = svc.VerifyPaymentToken(tampered)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)

	_, err = svc.VerifyPaymentToken("not-a-token")
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestSendPaymentNotice(t *testing.T) {
	notices := &memoryNotices{}
	svc := newTestPayments(t, StaticPriceSource{Rate: 1}, notices, nil, 0)

	err := svc.SendPaymentNotice(context.Background(), "+12125550123", models.English, "Golden Dragon", 21.75, "https://pay.example.com/pay?token=abc")
	require.NoError(t, err)
	sent := notices.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "+12125550123", sent[0].To)
	assert.Equal(t, "payment_link", sent[0].Template)
	assert.Equal(t, "Golden Dragon: your order total is $21.75. Pay securely here: https://pay.example.com/pay?token=abc", sent[0].Body)

	assert.Error(t, svc.SendPaymentNotice(context.Background(), "", models.English, "Golden Dragon", 21.75, "x"))

	notices.err = errors.New("broker down")
	assert.Error(t, svc.SendPaymentNotice(context.Background(), "+12125550123", models.English, "Golden Dragon", 21.75, "x"))
}

func TestTaxTableRate(t *testing.T) {
	taxes := NewTaxTable(0, testLogger())
	assert.Equal(t, DefaultTaxRate, taxes.DefaultRate())
	assert.Equal(t, 0.08625, taxes.Rate(" us-ca-sf "))
	assert.Equal(t, DefaultTaxRate, taxes.Rate(""))
	assert.Equal(t, DefaultTaxRate, taxes.Rate("US-NY-NYC-EXTRA"))

	custom := NewTaxTable(0.05, testLogger())
	assert.Equal(t, 0.05, custom.Rate("XX"))
}

func TestTaxCents(t *testing.T) {
	assert.Equal(t, int64(177), taxCents(1998, 0.08875))
	assert.Equal(t, int64(0), taxCents(0, 0.08875))
	assert.Equal(t, int64(1), taxCents(6, 0.08875))
}
