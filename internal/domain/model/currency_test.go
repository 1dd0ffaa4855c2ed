package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRestrictedSet_ContainsIsCaseInsensitive(t *testing.T) {
	set := NewRestrictedSet("try", " Pln ", "")

	assert.True(t, set.Contains("TRY"))
	assert.True(t, set.Contains("try"))
	assert.True(t, set.Contains("pln"))
	assert.False(t, set.Contains("USD"))
	assert.False(t, set.Contains(""))
	assert.Equal(t, []string{"PLN", "TRY"}, set.Codes())
	assert.Equal(t, 2, set.Len())
}

func TestRestrictedSet_Strip(t *testing.T) {
	set := NewRestrictedSet(DefaultRestricted...)
	rates := Rates{
		"EUR": decimal.RequireFromString("0.85"),
		"GBP": decimal.RequireFromString("0.75"),
		"TRY": decimal.RequireFromString("8.5"),
		"mxn": decimal.RequireFromString("17.1"),
	}

	set.Strip(rates)

	assert.Len(t, rates, 2)
	assert.Contains(t, rates, "EUR")
	assert.Contains(t, rates, "GBP")
}

func TestRestrictedSet_NilIsEmpty(t *testing.T) {
	var set *RestrictedSet
	assert.False(t, set.Contains("TRY"))
	assert.Zero(t, set.Len())
	assert.NotPanics(t, func() { set.Strip(Rates{"TRY": decimal.NewFromInt(1)}) })
}
