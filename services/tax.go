package services

import (
	"log/slog"
	"math"
	"regexp"
	"strings"
)

const DefaultTaxRate = 0.08875

// Combined sales tax rates by jurisdiction code (country-state[-locality]).
var defaultTaxRates = map[string]float64{
	"US-NY-NYC": 0.08875,
	"US-NY":     0.04,
	"US-CA":     0.0725,
	"US-CA-SF":  0.08625,
	"US-TX":     0.0625,
}

var jurisdictionPattern = regexp.MustCompile(`^[A-Z]{2}(-[A-Z0-9]{1,3}){0,2}$`)

// TaxTable resolves a jurisdiction to a rate. Unknown or malformed
// jurisdictions fall back to the default rate and are logged.
type TaxTable struct {
	rates       map[string]float64
	defaultRate float64
	logger      *slog.Logger
}

func NewTaxTable(defaultRate float64, logger *slog.Logger) *TaxTable {
	if defaultRate <= 0 {
		defaultRate = DefaultTaxRate
	}
	rates := make(map[string]float64, len(defaultTaxRates))
	for k, v := range defaultTaxRates {
		rates[k] = v
	}
	return &TaxTable{rates: rates, defaultRate: defaultRate, logger: logger}
}

func (t *TaxTable) DefaultRate() float64 { return t.defaultRate }

func (t *TaxTable) Rate(jurisdiction string) float64 {
	code := strings.ToUpper(strings.TrimSpace(jurisdiction))
	if !jurisdictionPattern.MatchString(code) {
		t.logger.Warn("malformed tax jurisdiction, using default rate", "jurisdiction", jurisdiction, "rate", t.defaultRate)
		return t.defaultRate
	}
	rate, ok := t.rates[code]
	if !ok {
		t.logger.Warn("unknown tax jurisdiction, using default rate", "jurisdiction", code, "rate", t.defaultRate)
		return t.defaultRate
	}
	return rate
}

// taxCents rounds each component to the cent before summing.
func taxCents(subtotalCents int64, rate float64) int64 {
	return int64(math.Round(float64(subtotalCents) * rate))
}
