package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingTotalAmount(t *testing.T) {
	b := Booking{Amount: decimal.RequireFromString("7.50"), Quantity: 2}
	assert.True(t, b.TotalAmount().Equal(decimal.RequireFromString("15.00")))

	free := Booking{Amount: decimal.Zero, Quantity: 1}
	assert.True(t, free.IsFree())
	assert.False(t, b.IsFree())
}

func TestBookingCancelGuards(t *testing.T) {
	authorID := uint(42)

	t.Run("confirmed booking cancels", func(t *testing.T) {
		b := Booking{Status: BookingConfirmed}
		err := b.Cancel(CancelledByBeneficiary, &authorID, false)
		require.NoError(t, err)
		assert.Equal(t, BookingCancelled, b.Status)
		assert.NotNil(t, b.CancellationDate)
		assert.Equal(t, CancelledByBeneficiary, *b.CancellationReason)
		assert.Equal(t, authorID, *b.CancellationUserID)
	})

	t.Run("cancelling twice fails", func(t *testing.T) {
		b := Booking{Status: BookingCancelled}
		err := b.Cancel(CancelledByBeneficiary, nil, false)
		assert.ErrorIs(t, err, ErrBookingIsAlreadyCancelled)
	})

	t.Run("used booking needs cancelEvenIfUsed", func(t *testing.T) {
		now := time.Now()
		b := Booking{Status: BookingUsed, DateUsed: &now}
		err := b.Cancel(CancelledForFraud, nil, false)
		assert.ErrorIs(t, err, ErrBookingIsAlreadyUsed)

		err = b.Cancel(CancelledForFraud, nil, true)
		require.NoError(t, err)
		assert.Equal(t, BookingCancelled, b.Status)
		assert.Nil(t, b.DateUsed)
	})

	t.Run("reimbursed booking never cancels", func(t *testing.T) {
		b := Booking{Status: BookingReimbursed}
		err := b.Cancel(CancelledForFraud, nil, true)
		assert.ErrorIs(t, err, ErrBookingIsAlreadyRefunded)
		assert.Equal(t, BookingReimbursed, b.Status)
	})
}

func TestBookingMarkAsUsed(t *testing.T) {
	b := Booking{Status: BookingConfirmed}
	require.NoError(t, b.MarkAsUsed(ValidatedByOfferer))
	assert.Equal(t, BookingUsed, b.Status)
	assert.NotNil(t, b.DateUsed)
	assert.Equal(t, ValidatedByOfferer, *b.ValidationAuthorType)

	assert.ErrorIs(t, b.MarkAsUsed(ValidatedByOfferer), ErrBookingIsAlreadyUsed)

	cancelled := Booking{Status: BookingCancelled}
	assert.ErrorIs(t, cancelled.MarkAsUsed(ValidatedByOfferer), ErrBookingIsAlreadyCancelled)
}

func TestBookingMarkAsUnusedSetConfirmed(t *testing.T) {
	now := time.Now()
	author := ValidatedByOfferer
	b := Booking{Status: BookingUsed, DateUsed: &now, ValidationAuthorType: &author}
	b.MarkAsUnusedSetConfirmed()
	assert.Equal(t, BookingConfirmed, b.Status)
	assert.Nil(t, b.DateUsed)
	assert.Nil(t, b.ValidationAuthorType)
}

func TestBookingUncancelSetUsed(t *testing.T) {
	t.Run("cancelled goes straight to used", func(t *testing.T) {
		now := time.Now()
		reason := CancelledForFraud
		authorID := uint(7)
		b := Booking{
			Status:             BookingCancelled,
			CancellationDate:   &now,
			CancellationReason: &reason,
			CancellationUserID: &authorID,
		}
		require.NoError(t, b.UncancelSetUsed())
		assert.Equal(t, BookingUsed, b.Status)
		assert.NotNil(t, b.DateUsed)
		assert.Nil(t, b.CancellationDate)
		assert.Nil(t, b.CancellationReason)
		assert.Nil(t, b.CancellationUserID)
	})

	t.Run("only cancelled bookings qualify", func(t *testing.T) {
		b := Booking{Status: BookingConfirmed}
		assert.ErrorIs(t, b.UncancelSetUsed(), ErrBookingIsNotCancelled)
	})
}

func TestBookingIsConfirmed(t *testing.T) {
	now := time.Now().UTC()

	noLimit := Booking{}
	assert.False(t, noLimit.IsConfirmed(now))

	past := now.Add(-time.Hour)
	confirmed := Booking{CancellationLimitDate: &past}
	assert.True(t, confirmed.IsConfirmed(now))

	future := now.Add(time.Hour)
	open := Booking{CancellationLimitDate: &future}
	assert.False(t, open.IsConfirmed(now))
}

func TestBookingQRCodeData(t *testing.T) {
	b := Booking{Token: "ABC234"}
	assert.Equal(t, "PASSCULTURE:v3;TOKEN:ABC234", b.QRCodeData())
}
