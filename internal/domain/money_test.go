package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$1,200.00", FormatAmount(decimal.NewFromInt(1200), "USD"))
	assert.Equal(t, "$0.13", FormatAmount(decimal.RequireFromString("0.125"), "USD"))
}
