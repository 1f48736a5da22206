package helper

import (
	"passculture/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FinanceGateway is the boundary to the finance/pricing subsystem. The
// booking engine needs three things from it: voiding a pricing computed for
// a booking before cancelling or un-using it, knowing whether a booking was
// already reimbursed, and the validated incident total that reduces what a
// deposit has effectively spent.
type FinanceGateway interface {
	// CancelPricing voids any pricing computed for the booking. Returns
	// model.ErrNonCancellablePricing when the pricing has already been
	// invoiced, which aborts the cancellation like an already-terminal
	// booking would.
	CancelPricing(tx *gorm.DB, booking *model.Booking) error

	// HasReimbursement reports whether any reimbursement exists for the
	// booking: a reimbursed booking is financially final.
	HasReimbursement(db *gorm.DB, bookingID uint) (bool, error)

	// ValidatedIncidentsTotal is the sum of validated finance incidents
	// on the deposit, credited back to the remaining balance.
	ValidatedIncidentsTotal(db *gorm.DB, depositID uint) (decimal.Decimal, error)
}

// Finance is the wired gateway. Deployments replace it at startup; the
// default treats pricings as absent and deposits as incident-free.
var Finance FinanceGateway = noopFinance{}

type noopFinance struct{}

func (noopFinance) CancelPricing(*gorm.DB, *model.Booking) error { return nil }

func (noopFinance) HasReimbursement(db *gorm.DB, bookingID uint) (bool, error) {
	// Without a finance backend, REIMBURSED status is the only signal.
	var count int64
	err := db.Model(&model.Booking{}).
		Where("id = ? AND status = ?", bookingID, model.BookingReimbursed).
		Count(&count).Error
	return count > 0, err
}

func (noopFinance) ValidatedIncidentsTotal(*gorm.DB, uint) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
