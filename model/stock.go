package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock is a priced inventory line under an offer, optionally tied to an
// event date. BookedQuantity is a denormalized sum of the non-cancelled
// bookings; it must never exceed Quantity when Quantity is finite. The
// locked read-modify-write path in helper and the database trigger both
// enforce that.
type Stock struct {
	DTO
	OfferID        uint            `gorm:"not null;index" json:"offerId"`
	Price          decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Quantity       *int64          `json:"quantity,omitempty"` // nil = unlimited
	BookedQuantity int64           `gorm:"not null;default:0" json:"bookedQuantity"`

	BeginningDatetime      *time.Time `json:"beginningDatetime,omitempty"`
	BookingLimitDatetime   *time.Time `json:"bookingLimitDatetime,omitempty"`
	BookingAllowedDatetime *time.Time `json:"bookingAllowedDatetime,omitempty"`

	// IDAtProviders carries the provider-side identifier for synchronised
	// stocks, formatted "<offer uuid>#<showtime id>".
	IDAtProviders string `gorm:"size:120" json:"idAtProviders,omitempty"`

	IsSoftDeleted bool `gorm:"not null;default:false" json:"isSoftDeleted"`

	Offer    Offer     `gorm:"foreignKey:OfferID" json:"-"`
	Bookings []Booking `gorm:"foreignKey:StockID" json:"-"`
}

func (s *Stock) IsEventExpired(now time.Time) bool {
	return s.BeginningDatetime != nil && !s.BeginningDatetime.After(now)
}

// RemainingQuantity returns what is still sellable, nil for unlimited stocks.
func (s *Stock) RemainingQuantity() *int64 {
	if s.Quantity == nil {
		return nil
	}
	r := *s.Quantity - s.BookedQuantity
	if r < 0 {
		r = 0
	}
	return &r
}

// IsBookable checks every availability rule for the requested quantity:
// active offer, not soft-deleted, booking window open, event not started,
// enough remaining units.
func (s *Stock) IsBookable(quantity int64, now time.Time) bool {
	if s.IsSoftDeleted || !s.Offer.IsActive {
		return false
	}
	if s.BookingAllowedDatetime != nil && s.BookingAllowedDatetime.After(now) {
		return false
	}
	if s.BookingLimitDatetime != nil && s.BookingLimitDatetime.Before(now) {
		return false
	}
	if s.IsEventExpired(now) {
		return false
	}
	if s.Quantity != nil && s.BookedQuantity+quantity > *s.Quantity {
		return false
	}
	return true
}
