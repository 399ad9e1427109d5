package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Fried Rice!", "fried rice"},
		{"  Kung   Pao,  Chicken ", "kung pao chicken"},
		{"Arroz con Pollo á la Plancha", "arroz con pollo a la plancha"},
		{"I'd like", "id like"},
		{"That’s all", "thats all"},
		{"炒饭", "炒饭"},
		{"炒饭，谢谢", "炒饭 谢谢"},
		{"", ""},
		{"?!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestLevenshteinAndSimilarity(t *testing.T) {
	assert.Equal(t, 0, Levenshtein("rice", "rice"))
	assert.Equal(t, 1, Levenshtein("fried", "fryed"))
	assert.Equal(t, 4, Levenshtein("", "rice"))
	assert.Equal(t, 2, Levenshtein("炒饭", "炒面条"))

	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 1.0, Similarity("egg roll", "egg roll"))
	assert.InDelta(t, 0.9, Similarity("fryed rice", "fried rice"), 1e-9)
	assert.Equal(t, Similarity("abc", "abd"), Similarity("abd", "abc"))
}

func TestMoneyRounding(t *testing.T) {
	assert.Equal(t, int64(1998), ToCents(19.98))
	assert.Equal(t, int64(1499), ToCents(14.99))
	assert.Equal(t, 19.98, FromCents(1998))
	assert.Equal(t, 1.77, RoundMoney(1.77322))
	assert.Equal(t, 0.123457, RoundTo(0.1234567, 6))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewCustomError(http.StatusConflict, "busy"), http.StatusConflict},
		{fmt.Errorf("%w: abc", ErrCallNotFound), http.StatusNotFound},
		{ErrOrderNotFound, http.StatusNotFound},
		{ErrTokenExpired, http.StatusGone},
		{fmt.Errorf("%w: bad signature", ErrInvalidToken), http.StatusUnauthorized},
		{ErrCodeMismatch, http.StatusUnauthorized},
		{ErrInvalidQuantity, http.StatusUnprocessableEntity},
		{ErrUnsupported, http.StatusNotImplemented},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}
