package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"DineLine/locales"
	"DineLine/models"
	"DineLine/utils"
)

const testRestaurant = "golden-dragon"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMenu() []models.MenuIndexEntry {
	return []models.MenuIndexEntry{
		{
			ID:        "fried-rice",
			Name:      "Fried Rice",
			Names:     map[models.Language]string{models.Spanish: "Arroz Frito", models.Mandarin: "炒饭", models.Cantonese: "炒飯"},
			Category:  "mains",
			Price:     14.99,
			Aliases:   []string{"house fried rice"},
			Available: true,
		},
		{
			ID:        "egg-roll",
			Name:      "Egg Roll",
			Names:     map[models.Language]string{models.Mandarin: "春卷"},
			Category:  "appetizers",
			Price:     4.99,
			Aliases:   []string{"spring roll"},
			Available: true,
		},
		{ID: "kung-pao", Name: "Kung Pao Chicken", Category: "mains", Price: 15.50, Available: true},
		{ID: "wonton-soup", Name: "Wonton Soup", Category: "soups", Price: 6.50, Available: true},
		{ID: "bubble-tea", Name: "Bubble Tea", Category: "drinks", Price: 5.25, Aliases: []string{"boba"}, Available: true},
		{ID: "mango-pudding", Name: "Mango Pudding", Category: "desserts", Price: 4.50, Available: true},
		{ID: "lobster", Name: "Lobster", Category: "mains", Price: 39.00, Available: false},
	}
}

func testRegistry() *MenuRegistry {
	r := NewMenuRegistry(locales.Default(), testLogger())
	r.Matcher(testRestaurant).LoadMenu(testMenu())
	return r
}

// dishRestaurant serves dishes whose names hold numerals or separators.
const dishRestaurant = "lotus-garden"

func dishMenu() []models.MenuIndexEntry {
	dish := func(id, name string, names map[models.Language]string, price float64) models.MenuIndexEntry {
		return models.MenuIndexEntry{ID: id, Name: name, Names: names, Category: "mains", Price: price, Available: true}
	}
	return []models.MenuIndexEntry{
		dish("string-beans", "Dry Fried String Beans", map[models.Language]string{models.Mandarin: "四季豆"}, 12.50),
		dish("five-spice-beef", "Five Spice Beef", map[models.Language]string{models.Mandarin: "五香牛肉"}, 15.00),
		dish("three-cup-chicken", "Three Cup Chicken", map[models.Language]string{models.Mandarin: "三杯鸡"}, 16.00),
		dish("casserole", "House Casserole", map[models.Language]string{models.Mandarin: "一品锅"}, 22.00),
		dish("fried-rice", "Fried Rice", map[models.Language]string{models.Mandarin: "炒饭"}, 14.99),
		dish("espresso", "Espresso", nil, 3.00),
		dish("double-espresso", "Double Espresso", nil, 4.50),
		dish("sweet-sour-chicken", "Sweet and Sour Chicken", nil, 13.25),
		dish("hot-sour-soup", "Hot and Sour Soup", nil, 6.75),
		dish("egg-roll", "Egg Roll", nil, 4.99),
		dish("spicy-chicken", "Extra Spicy Chicken", map[models.Language]string{models.Spanish: "Pollo Mas Picante"}, 12.00),
	}
}

func dishRegistry() *MenuRegistry {
	r := NewMenuRegistry(locales.Default(), testLogger())
	r.Matcher(dishRestaurant).LoadMenu(dishMenu())
	return r
}

func testMatcher() *MenuMatcher {
	return testRegistry().Matcher(testRestaurant)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memoryNotices struct {
	mu   sync.Mutex
	sent []models.SMSNotice
	err  error
}

func (m *memoryNotices) Publish(_ context.Context, n models.SMSNotice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func (m *memoryNotices) Close() error { return nil }

func (m *memoryNotices) Sent() []models.SMSNotice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SMSNotice(nil), m.sent...)
}

type memoryCallStore struct {
	mu          sync.Mutex
	calls       map[string]models.Call
	transcripts map[string][]models.TranscriptEntry
}

func newMemoryCallStore() *memoryCallStore {
	return &memoryCallStore{
		calls:       make(map[string]models.Call),
		transcripts: make(map[string][]models.TranscriptEntry),
	}
}

func (s *memoryCallStore) InitializeCall(_ context.Context, call models.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[call.CallID] = call
	return nil
}

func (s *memoryCallStore) AppendTranscript(_ context.Context, callID string, entry models.TranscriptEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts[callID] = append(s.transcripts[callID], entry)
	return nil
}

func (s *memoryCallStore) UpdateStatus(_ context.Context, callID string, status models.CallStatus, state models.DialogState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	call, ok := s.calls[callID]
	if !ok {
		return utils.ErrCallNotFound
	}
	call.Status, call.DialogState = status, state
	s.calls[callID] = call
	return nil
}

func (s *memoryCallStore) FinalizeCall(_ context.Context, callID string, status models.CallStatus, dctx models.DialogContext, endedAt time.Time) (models.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call, ok := s.calls[callID]
	if !ok {
		return models.Call{}, utils.ErrCallNotFound
	}
	call.Status = status
	call.DialogState = dctx.State
	call.Items = dctx.Items
	call.Subtotal = dctx.Subtotal
	call.CustomerPhone = dctx.CustomerPhone
	call.EndedAt = &endedAt
	call.DurationSeconds = callDuration(call.StartedAt, endedAt)
	s.calls[callID] = call
	return call, nil
}

func (s *memoryCallStore) GetCall(_ context.Context, callID string) (models.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call, ok := s.calls[callID]
	if !ok {
		return models.Call{}, utils.ErrCallNotFound
	}
	return call, nil
}

func (s *memoryCallStore) ListCalls(_ context.Context, filter models.CallFilter) (models.CallPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, limit := NormalizePage(filter.Page, filter.Limit)
	out := models.CallPage{Page: page, Limit: limit, Calls: []models.Call{}}
	for _, c := range s.calls {
		if filter.RestaurantID == "" || c.RestaurantID == filter.RestaurantID {
			out.Calls = append(out.Calls, c)
		}
	}
	return out, nil
}

func (s *memoryCallStore) Stats(_ context.Context, restaurantID string) (models.CallStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := models.CallStats{ByStatus: map[models.CallStatus]int64{}}
	for _, c := range s.calls {
		if restaurantID != "" && c.RestaurantID != restaurantID {
			continue
		}
		stats.Total++
		stats.ByStatus[c.Status]++
	}
	return stats, nil
}

func (s *memoryCallStore) Transcript(callID string) []models.TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TranscriptEntry(nil), s.transcripts[callID]...)
}

type memoryOrderStore struct {
	mu     sync.Mutex
	orders map[string]models.Order
}

func newMemoryOrderStore() *memoryOrderStore {
	return &memoryOrderStore{orders: make(map[string]models.Order)}
}

func (s *memoryOrderStore) SaveOrder(_ context.Context, order models.Order) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.CallID]; ok {
		return false, nil
	}
	s.orders[order.CallID] = order
	return true, nil
}

func (s *memoryOrderStore) GetOrder(_ context.Context, callID string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[callID]
	if !ok {
		return models.Order{}, utils.ErrOrderNotFound
	}
	return o, nil
}

func (s *memoryOrderStore) UpdatePaymentStatus(_ context.Context, callID string, status models.PaymentStatus, paymentURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[callID]
	if !ok {
		return utils.ErrOrderNotFound
	}
	o.PaymentStatus, o.PaymentURL = status, paymentURL
	s.orders[callID] = o
	return nil
}

type staticDirectory map[string]models.Restaurant

func (d staticDirectory) GetRestaurant(_ context.Context, id string) (models.Restaurant, error) {
	r, ok := d[id]
	if !ok {
		return models.Restaurant{}, utils.ErrRestaurantNotFound
	}
	return r, nil
}
