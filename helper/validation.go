package helper

import (
	"time"

	"passculture/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CheckOfferCategoryIsBookableByUser rejects categories the user type may
// not book, e.g. subcategories forbidden to underage beneficiaries.
func CheckOfferCategoryIsBookableByUser(user *model.User, stock *model.Stock) error {
	if !stock.Offer.IsBookableBy(user) {
		return model.ErrOfferCategoryNotBookable
	}
	return nil
}

// CheckCanBookFreeOffer keeps price-zero offers for beneficiaries only.
func CheckCanBookFreeOffer(user *model.User, stock *model.Stock) error {
	if !user.IsBeneficiary() && stock.Price.IsZero() {
		return &model.ValidationError{
			Field:   "cannotBookFreeOffers",
			Message: "Votre compte ne vous permet pas de faire de réservation.",
		}
	}
	return nil
}

// CheckOfferAlreadyBooked rejects a second live booking on the same offer,
// whatever the stock.
func CheckOfferAlreadyBooked(db *gorm.DB, user *model.User, offerID uint) error {
	var count int64
	err := db.Model(&model.Booking{}).
		Joins("JOIN stocks ON stocks.id = bookings.stock_id").
		Where("bookings.user_id = ? AND stocks.offer_id = ? AND bookings.status != ?",
			user.ID, offerID, model.BookingCancelled).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return &model.ValidationError{
			Field:   "offerId",
			Message: "Cette offre a déja été reservée par l'utilisateur",
		}
	}
	return nil
}

// CheckQuantity allows exactly 1, or 1-2 for duo offers.
func CheckQuantity(offer *model.Offer, quantity int64) error {
	if offer.IsDuo && (quantity == 1 || quantity == 2) {
		return nil
	}
	if quantity == 1 {
		return nil
	}
	return &model.ValidationError{
		Field:   "quantity",
		Message: "Vous ne pouvez réserver qu'une place pour cette offre.",
	}
}

// CheckStockIsBookable verifies availability for the requested quantity.
func CheckStockIsBookable(stock *model.Stock, quantity int64, now time.Time) error {
	if !stock.IsBookable(quantity, now) {
		return &model.ValidationError{
			Field:   "stock",
			Message: "Ce stock n'est pas réservable",
		}
	}
	return nil
}

// CheckExpensesLimits rejects a booking that would exceed the overall
// remaining credit or a domain sub-cap. The cap errors carry the cap's
// initial ceiling for the user-facing message.
func CheckExpensesLimits(credit *model.DomainsCredit, deposit *model.Deposit, totalAmount decimal.Decimal, offer *model.Offer) error {
	if credit == nil || deposit == nil {
		// Defensive: a user who passed eligibility always has both.
		return model.ErrInsufficientFunds
	}
	if totalAmount.GreaterThan(credit.All.Remaining) {
		return model.ErrInsufficientFunds
	}
	if credit.Digital != nil && deposit.DigitalCapApplies(offer) &&
		totalAmount.GreaterThan(credit.Digital.Remaining) {
		return &model.ExpenseLimitError{Domain: model.ExpenseDomainDigital, Ceiling: credit.Digital.Initial}
	}
	if credit.Physical != nil && deposit.PhysicalCapApplies(offer) &&
		totalAmount.GreaterThan(credit.Physical.Remaining) {
		return &model.ExpenseLimitError{Domain: model.ExpenseDomainPhysical, Ceiling: credit.Physical.Initial}
	}
	return nil
}

// CheckActivationCodeAvailable requires one unallocated code on the stock.
func CheckActivationCodeAvailable(tx *gorm.DB, stockID uint) error {
	var count int64
	err := tx.Model(&model.ActivationCode{}).
		Where("stock_id = ? AND booking_id IS NULL", stockID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return model.ErrNoActivationCodeAvailable
	}
	return nil
}

// CheckBeneficiaryCanCancelBooking guards the beneficiary entry point:
// ownership, not redeemed, confirmation lock not engaged.
func CheckBeneficiaryCanCancelBooking(user *model.User, booking *model.Booking, now time.Time) error {
	if booking.UserID != user.ID {
		return model.ErrBookingDoesNotBelongToUser
	}
	if booking.IsUsedOrReimbursed() {
		return model.ErrBookingIsAlreadyUsed
	}
	if booking.IsConfirmed(now) {
		return model.ErrBookingIsConfirmed
	}
	return nil
}

// CheckBookingCanBeCancelled guards offerer and fraud cancellations.
func CheckBookingCanBeCancelled(booking *model.Booking) error {
	if booking.Status == model.BookingCancelled {
		return model.ErrBookingIsAlreadyCancelled
	}
	if booking.Status == model.BookingReimbursed {
		return model.ErrBookingIsAlreadyRefunded
	}
	return nil
}

// CheckIsUsable guards redemption. Event bookings must be past their
// cancellation limit date unless a privileged actor bypasses the check.
func CheckIsUsable(booking *model.Booking, privileged bool, now time.Time) error {
	switch booking.Status {
	case model.BookingCancelled:
		return model.ErrBookingIsAlreadyCancelled
	case model.BookingUsed, model.BookingReimbursed:
		return model.ErrBookingIsAlreadyUsed
	}
	if !privileged && booking.CancellationLimitDate != nil && !booking.IsConfirmed(now) {
		return model.ErrBookingNotConfirmed
	}
	return nil
}

// CheckCanBeMarkedAsUnused forbids reverting a redemption once the booking
// was reimbursed or consumed a one-shot activation code.
func CheckCanBeMarkedAsUnused(db *gorm.DB, booking *model.Booking) error {
	if booking.Status == model.BookingReimbursed {
		return model.ErrBookingIsAlreadyRefunded
	}
	if booking.Status != model.BookingUsed {
		return model.ErrBookingNotConfirmed
	}
	reimbursed, err := Finance.HasReimbursement(db, booking.ID)
	if err != nil {
		return err
	}
	if reimbursed {
		return model.ErrBookingIsAlreadyRefunded
	}
	var codes int64
	if err := db.Model(&model.ActivationCode{}).
		Where("booking_id = ?", booking.ID).
		Count(&codes).Error; err != nil {
		return err
	}
	if codes > 0 {
		return model.ErrBookingHasActivationCode
	}
	return nil
}
