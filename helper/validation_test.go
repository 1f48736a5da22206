package helper

import (
	"testing"
	"time"

	"passculture/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckQuantity(t *testing.T) {
	solo := model.Offer{}
	duo := model.Offer{IsDuo: true}

	assert.NoError(t, CheckQuantity(&solo, 1))
	assert.Error(t, CheckQuantity(&solo, 2))

	assert.NoError(t, CheckQuantity(&duo, 1))
	assert.NoError(t, CheckQuantity(&duo, 2))
	assert.Error(t, CheckQuantity(&duo, 3))
	assert.Error(t, CheckQuantity(&duo, 0))

	var validationErr *model.ValidationError
	require.ErrorAs(t, CheckQuantity(&solo, 2), &validationErr)
	assert.Equal(t, "quantity", validationErr.Field)
}

func TestCheckCanBookFreeOffer(t *testing.T) {
	freeStock := model.Stock{Price: decimal.Zero}
	paidStock := model.Stock{Price: decimal.NewFromInt(10)}

	beneficiary := model.User{Role: model.RoleBeneficiary}
	pro := model.User{Role: model.RolePro}

	assert.NoError(t, CheckCanBookFreeOffer(&beneficiary, &freeStock))
	assert.NoError(t, CheckCanBookFreeOffer(&pro, &paidStock))
	assert.Error(t, CheckCanBookFreeOffer(&pro, &freeStock))
}

func TestCheckExpensesLimits(t *testing.T) {
	grant18 := model.Deposit{Type: model.DepositGrant18, Version: 2}
	digitalOffer := model.Offer{URL: "https://example.com/ebook"}
	physicalOffer := model.Offer{}

	credit := &model.DomainsCredit{
		All: model.Credit{
			Initial:   decimal.NewFromInt(300),
			Remaining: decimal.NewFromInt(50),
		},
		Digital: &model.Credit{
			Initial:   decimal.NewFromInt(100),
			Remaining: decimal.NewFromInt(20),
		},
	}

	t.Run("within limits", func(t *testing.T) {
		assert.NoError(t, CheckExpensesLimits(credit, &grant18, decimal.NewFromInt(30), &physicalOffer))
	})

	t.Run("overall limit", func(t *testing.T) {
		err := CheckExpensesLimits(credit, &grant18, decimal.NewFromInt(60), &physicalOffer)
		assert.ErrorIs(t, err, model.ErrInsufficientFunds)
	})

	t.Run("digital cap carries its ceiling", func(t *testing.T) {
		err := CheckExpensesLimits(credit, &grant18, decimal.NewFromInt(30), &digitalOffer)
		var expenseErr *model.ExpenseLimitError
		require.ErrorAs(t, err, &expenseErr)
		assert.Equal(t, model.ExpenseDomainDigital, expenseErr.Domain)
		assert.True(t, expenseErr.Ceiling.Equal(decimal.NewFromInt(100)))
	})

	t.Run("digital cap ignores physical offers", func(t *testing.T) {
		assert.NoError(t, CheckExpensesLimits(credit, &grant18, decimal.NewFromInt(30), &physicalOffer))
	})

	t.Run("missing credit means no funds", func(t *testing.T) {
		err := CheckExpensesLimits(nil, &grant18, decimal.NewFromInt(1), &physicalOffer)
		assert.ErrorIs(t, err, model.ErrInsufficientFunds)
	})
}

func TestCheckBeneficiaryCanCancelBooking(t *testing.T) {
	now := time.Now().UTC()
	owner := model.User{DTO: model.DTO{ID: 1}}
	other := model.User{DTO: model.DTO{ID: 2}}

	t.Run("owner cancels an open booking", func(t *testing.T) {
		b := model.Booking{UserID: 1, Status: model.BookingConfirmed}
		assert.NoError(t, CheckBeneficiaryCanCancelBooking(&owner, &b, now))
	})

	t.Run("someone else's booking", func(t *testing.T) {
		b := model.Booking{UserID: 1, Status: model.BookingConfirmed}
		assert.ErrorIs(t, CheckBeneficiaryCanCancelBooking(&other, &b, now),
			model.ErrBookingDoesNotBelongToUser)
	})

	t.Run("redeemed booking", func(t *testing.T) {
		b := model.Booking{UserID: 1, Status: model.BookingUsed}
		assert.ErrorIs(t, CheckBeneficiaryCanCancelBooking(&owner, &b, now),
			model.ErrBookingIsAlreadyUsed)
	})

	t.Run("confirmation lock engaged", func(t *testing.T) {
		past := now.Add(-time.Hour)
		b := model.Booking{UserID: 1, Status: model.BookingConfirmed, CancellationLimitDate: &past}
		assert.ErrorIs(t, CheckBeneficiaryCanCancelBooking(&owner, &b, now),
			model.ErrBookingIsConfirmed)
	})
}

func TestCheckBookingCanBeCancelled(t *testing.T) {
	assert.NoError(t, CheckBookingCanBeCancelled(&model.Booking{Status: model.BookingConfirmed}))
	assert.NoError(t, CheckBookingCanBeCancelled(&model.Booking{Status: model.BookingUsed}))
	assert.ErrorIs(t, CheckBookingCanBeCancelled(&model.Booking{Status: model.BookingCancelled}),
		model.ErrBookingIsAlreadyCancelled)
	assert.ErrorIs(t, CheckBookingCanBeCancelled(&model.Booking{Status: model.BookingReimbursed}),
		model.ErrBookingIsAlreadyRefunded)
}

func TestCheckIsUsable(t *testing.T) {
	now := time.Now().UTC()

	t.Run("terminal states", func(t *testing.T) {
		assert.ErrorIs(t, CheckIsUsable(&model.Booking{Status: model.BookingCancelled}, false, now),
			model.ErrBookingIsAlreadyCancelled)
		assert.ErrorIs(t, CheckIsUsable(&model.Booking{Status: model.BookingUsed}, false, now),
			model.ErrBookingIsAlreadyUsed)
		assert.ErrorIs(t, CheckIsUsable(&model.Booking{Status: model.BookingReimbursed}, false, now),
			model.ErrBookingIsAlreadyUsed)
	})

	t.Run("event booking waits for the window to close", func(t *testing.T) {
		future := now.Add(time.Hour)
		b := model.Booking{Status: model.BookingConfirmed, CancellationLimitDate: &future}
		assert.ErrorIs(t, CheckIsUsable(&b, false, now), model.ErrBookingNotConfirmed)

		// privileged actors bypass the hold
		assert.NoError(t, CheckIsUsable(&b, true, now))
	})

	t.Run("non-event booking is immediately usable", func(t *testing.T) {
		b := model.Booking{Status: model.BookingConfirmed}
		assert.NoError(t, CheckIsUsable(&b, false, now))
	})
}
