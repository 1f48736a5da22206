package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingUsed       BookingStatus = "USED"
	BookingCancelled  BookingStatus = "CANCELLED"
	BookingReimbursed BookingStatus = "REIMBURSED"
)

type BookingCancellationReason string

const (
	CancelledByBeneficiary            BookingCancellationReason = "BENEFICIARY"
	CancelledByOfferer                BookingCancellationReason = "OFFERER"
	CancelledForFraud                 BookingCancellationReason = "FRAUD"
	CancelledExpired                  BookingCancellationReason = "EXPIRED"
	CancelledByBackoffice             BookingCancellationReason = "BACKOFFICE"
	CancelledBackofficeEventCancelled BookingCancellationReason = "BACKOFFICE_EVENT_CANCELLED"
	CancelledBackofficeOvertaken      BookingCancellationReason = "BACKOFFICE_OFFER_MODIFIED"
	CancelledBackofficeFraud          BookingCancellationReason = "BACKOFFICE_FRAUD"
	CancelledOffererClosed            BookingCancellationReason = "OFFERER_CLOSED"
)

type BookingValidationAuthorType string

const (
	ValidatedByOfferer    BookingValidationAuthorType = "OFFERER"
	ValidatedByBackoffice BookingValidationAuthorType = "BACKOFFICE"
	ValidatedAuto         BookingValidationAuthorType = "AUTO"
)

type BookingRecreditType string

const (
	Recredit17 BookingRecreditType = "RECREDIT_17"
	Recredit18 BookingRecreditType = "RECREDIT_18"
)

// Booking is a beneficiary's reservation against a stock. Amount is the unit
// price snapshot taken at booking time and is never recalculated. Venue and
// offerer ids are denormalized from the stock's offer for query performance.
type Booking struct {
	DTO
	UserID    uint  `gorm:"not null;index" json:"userId"`
	StockID   uint  `gorm:"not null;index" json:"stockId"`
	VenueID   uint  `gorm:"not null;index" json:"venueId"`
	OffererID uint  `gorm:"not null;index" json:"offererId"`
	DepositID *uint `gorm:"index" json:"depositId,omitempty"` // nil only for free bookings with no deposit on file

	Quantity int64           `gorm:"not null;default:1" json:"quantity"`
	Amount   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Token    string          `gorm:"size:6;uniqueIndex;not null" json:"token"`
	Status   BookingStatus   `gorm:"size:20;not null;default:'CONFIRMED'" json:"status"`

	DateCreated           time.Time  `gorm:"not null" json:"dateCreated"`
	DateUsed              *time.Time `json:"dateUsed,omitempty"`
	CancellationDate      *time.Time `json:"cancellationDate,omitempty"`
	CancellationLimitDate *time.Time `json:"cancellationLimitDate,omitempty"`
	CancellationUserID    *uint      `json:"cancellationUserId,omitempty"`

	CancellationReason   *BookingCancellationReason   `gorm:"size:40" json:"cancellationReason,omitempty"`
	ValidationAuthorType *BookingValidationAuthorType `gorm:"size:20" json:"validationAuthorType,omitempty"`
	UsedRecreditType     *BookingRecreditType         `gorm:"size:20" json:"usedRecreditType,omitempty"`

	DisplayAsEnded bool `gorm:"not null;default:false" json:"displayAsEnded"`

	User             User                  `gorm:"foreignKey:UserID" json:"-"`
	Stock            Stock                 `gorm:"foreignKey:StockID" json:"-"`
	Venue            Venue                 `gorm:"foreignKey:VenueID" json:"-"`
	Deposit          *Deposit              `gorm:"foreignKey:DepositID" json:"-"`
	ActivationCode   *ActivationCode       `gorm:"foreignKey:BookingID" json:"-"`
	ExternalBookings []ExternalBooking     `gorm:"foreignKey:BookingID" json:"-"`
	FraudulentTag    *FraudulentBookingTag `gorm:"foreignKey:BookingID" json:"-"`
}

func (b *Booking) TotalAmount() decimal.Decimal {
	return b.Amount.Mul(decimal.NewFromInt(b.Quantity))
}

func (b *Booking) IsFree() bool {
	return b.Amount.IsZero()
}

func (b *Booking) IsUsedOrReimbursed() bool {
	return b.Status == BookingUsed || b.Status == BookingReimbursed
}

func (b *Booking) IsExternal() bool {
	return len(b.ExternalBookings) > 0
}

// IsConfirmed reports whether the confirmation lock has engaged: past the
// cancellation limit date the beneficiary can no longer cancel. Bookings on
// non-event offers have no limit date and are never confirmed.
func (b *Booking) IsConfirmed(now time.Time) bool {
	return b.CancellationLimitDate != nil && !b.CancellationLimitDate.After(now)
}

// QRCodeData is the payload scanned at redemption, a stable string contract.
func (b *Booking) QRCodeData() string {
	return fmt.Sprintf("PASSCULTURE:v3;TOKEN:%s", b.Token)
}

// Cancel transitions the booking to CANCELLED. A used booking is only
// cancellable with cancelEvenIfUsed; a reimbursed one never is.
func (b *Booking) Cancel(reason BookingCancellationReason, authorID *uint, cancelEvenIfUsed bool) error {
	if b.Status == BookingCancelled {
		return ErrBookingIsAlreadyCancelled
	}
	if b.Status == BookingReimbursed {
		return ErrBookingIsAlreadyRefunded
	}
	if b.Status == BookingUsed && !cancelEvenIfUsed {
		return ErrBookingIsAlreadyUsed
	}
	now := time.Now().UTC()
	b.Status = BookingCancelled
	b.CancellationDate = &now
	b.CancellationReason = &reason
	b.CancellationUserID = authorID
	b.DateUsed = nil
	return nil
}

// MarkAsUsed records redemption. Only a confirmed booking can be used.
func (b *Booking) MarkAsUsed(author BookingValidationAuthorType) error {
	if b.IsUsedOrReimbursed() {
		return ErrBookingIsAlreadyUsed
	}
	if b.Status == BookingCancelled {
		return ErrBookingIsAlreadyCancelled
	}
	now := time.Now().UTC()
	b.DateUsed = &now
	b.Status = BookingUsed
	b.ValidationAuthorType = &author
	return nil
}

// MarkAsUnusedSetConfirmed reverts a redemption. Guards live in the helper
// validation layer (reimbursement, activation code).
func (b *Booking) MarkAsUnusedSetConfirmed() {
	b.DateUsed = nil
	b.Status = BookingConfirmed
	b.ValidationAuthorType = nil
}

// UncancelSetUsed is the repair path for mistaken or fraudulent
// cancellations discovered after the fact: it goes straight from CANCELLED
// to USED with a fresh dateUsed and clears the cancellation metadata.
func (b *Booking) UncancelSetUsed() error {
	if b.Status != BookingCancelled {
		return ErrBookingIsNotCancelled
	}
	now := time.Now().UTC()
	b.CancellationDate = nil
	b.CancellationReason = nil
	b.CancellationUserID = nil
	b.Status = BookingUsed
	b.DateUsed = &now
	return nil
}

// ExternalBooking is one third-party ticket issued for a booking at a cinema
// provider. Rows are written once when the provider call succeeds and never
// updated.
type ExternalBooking struct {
	DTO
	BookingID             uint           `gorm:"not null;index" json:"bookingId"`
	Barcode               string         `gorm:"size:100;not null;index" json:"barcode"`
	Seat                  *string        `gorm:"size:20" json:"seat,omitempty"`
	AdditionalInformation []byte         `gorm:"type:jsonb" json:"additionalInformation,omitempty"`
}

// FraudulentBookingTag records which admin flagged a booking as fraudulent.
type FraudulentBookingTag struct {
	DTO
	BookingID uint `gorm:"not null;uniqueIndex" json:"bookingId"`
	AuthorID  uint `gorm:"not null" json:"authorId"`
}

type BookOfferInput struct {
	StockID  uint  `json:"stockId" validate:"required,gt=0"`
	Quantity int64 `json:"quantity" validate:"required,gt=0"`
}

type RescheduleStockInput struct {
	BeginningDatetime time.Time `json:"beginningDatetime" validate:"required"`
}

type MarkCancelledInput struct {
	Reason              BookingCancellationReason `json:"reason" validate:"required,oneof=BACKOFFICE BACKOFFICE_EVENT_CANCELLED BACKOFFICE_OFFER_MODIFIED BACKOFFICE_FRAUD OFFERER_CLOSED"`
	OneSideCancellation bool                      `json:"oneSideCancellation"`
}

type FilterBookingInput struct {
	Pagination
	Status    BookingStatus `json:"status" validate:"omitempty,oneof=CONFIRMED USED CANCELLED REIMBURSED"`
	VenueId   uint          `json:"venueId" validate:"omitempty,gt=0"`
	OfferId   uint          `json:"offerId" validate:"omitempty,gt=0"`
	StartDate *time.Time    `json:"startDate" validate:"omitempty"`
	EndDate   *time.Time    `json:"endDate" validate:"omitempty"`
}
