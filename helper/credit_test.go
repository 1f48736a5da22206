package helper

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClampRemaining(t *testing.T) {
	all := decimal.NewFromInt(50)

	t.Run("within bounds passes through", func(t *testing.T) {
		got := clampRemaining(decimal.NewFromInt(30), all)
		assert.True(t, got.Equal(decimal.NewFromInt(30)))
	})

	t.Run("negative clamps to zero", func(t *testing.T) {
		got := clampRemaining(decimal.NewFromInt(-10), all)
		assert.True(t, got.IsZero())
	})

	t.Run("domain cannot exceed the overall remaining", func(t *testing.T) {
		got := clampRemaining(decimal.NewFromInt(80), all)
		assert.True(t, got.Equal(all))
	})
}
