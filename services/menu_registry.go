package services

import (
	"log/slog"
	"sync"

	"DineLine/locales"
)

// MenuRegistry holds one matcher per restaurant.
type MenuRegistry struct {
	mu        sync.RWMutex
	matchers  map[string]*MenuMatcher
	catalog   *locales.Catalog
	phonetics *PhoneticTable
	logger    *slog.Logger
}

func NewMenuRegistry(catalog *locales.Catalog, logger *slog.Logger) *MenuRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &MenuRegistry{
		matchers:  make(map[string]*MenuMatcher),
		catalog:   catalog,
		phonetics: NewPhoneticTable(catalog),
		logger:    logger,
	}
}

// Matcher returns the restaurant's matcher, creating an empty one on first use.
func (r *MenuRegistry) Matcher(restaurantID string) *MenuMatcher {
	r.mu.RLock()
	m, ok := r.matchers[restaurantID]
	r.mu.RUnlock()
	if ok {
		return m
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.matchers[restaurantID]; ok {
		return m
	}
	m = NewMenuMatcher(r.catalog, r.phonetics, r.logger.With(slog.String("restaurant_id", restaurantID)))
	r.matchers[restaurantID] = m
	return m
}

// Loaded reports whether a non-empty menu is indexed for the restaurant.
func (r *MenuRegistry) Loaded(restaurantID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matchers[restaurantID]
	return ok && m.Size() > 0
}
