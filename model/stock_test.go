package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func activeStock(quantity *int64) Stock {
	return Stock{
		Price:    decimal.NewFromInt(10),
		Quantity: quantity,
		Offer:    Offer{IsActive: true},
	}
}

func TestStockRemainingQuantity(t *testing.T) {
	unlimited := activeStock(nil)
	assert.Nil(t, unlimited.RemainingQuantity())

	ten := int64(10)
	s := activeStock(&ten)
	s.BookedQuantity = 4
	assert.Equal(t, int64(6), *s.RemainingQuantity())

	// an oversold counter must not report negative availability
	s.BookedQuantity = 12
	assert.Equal(t, int64(0), *s.RemainingQuantity())
}

func TestStockIsBookable(t *testing.T) {
	now := time.Now().UTC()
	two := int64(2)

	t.Run("available stock", func(t *testing.T) {
		s := activeStock(&two)
		assert.True(t, s.IsBookable(1, now))
		assert.True(t, s.IsBookable(2, now))
		assert.False(t, s.IsBookable(3, now))
	})

	t.Run("unlimited stock", func(t *testing.T) {
		s := activeStock(nil)
		assert.True(t, s.IsBookable(2, now))
	})

	t.Run("soft deleted or inactive offer", func(t *testing.T) {
		s := activeStock(&two)
		s.IsSoftDeleted = true
		assert.False(t, s.IsBookable(1, now))

		s = activeStock(&two)
		s.Offer.IsActive = false
		assert.False(t, s.IsBookable(1, now))
	})

	t.Run("booking window", func(t *testing.T) {
		future := now.Add(time.Hour)
		past := now.Add(-time.Hour)

		s := activeStock(&two)
		s.BookingAllowedDatetime = &future
		assert.False(t, s.IsBookable(1, now))

		s = activeStock(&two)
		s.BookingLimitDatetime = &past
		assert.False(t, s.IsBookable(1, now))
	})

	t.Run("started event", func(t *testing.T) {
		past := now.Add(-time.Minute)
		s := activeStock(&two)
		s.BeginningDatetime = &past
		assert.True(t, s.IsEventExpired(now))
		assert.False(t, s.IsBookable(1, now))
	})

	t.Run("fully booked", func(t *testing.T) {
		s := activeStock(&two)
		s.BookedQuantity = 2
		assert.False(t, s.IsBookable(1, now))
	})
}
