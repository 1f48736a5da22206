package model

import "github.com/gosimple/slug"

type Offer struct {
	DTO
	Name        string `gorm:"size:140;not null" validate:"required" json:"name"`
	Slug        string `gorm:"size:160;index" json:"slug"`
	Subcategory string `gorm:"size:60;not null" json:"subcategory"`
	VenueID     uint   `gorm:"not null;index" json:"venueId"`
	URL         string `gorm:"size:255" json:"url,omitempty"`
	IsDuo       bool   `gorm:"not null;default:false" json:"isDuo"`
	IsEvent     bool   `gorm:"not null;default:false" json:"isEvent"`
	IsActive    bool   `gorm:"not null;default:true" json:"isActive"`

	// ForbiddenToUnderage marks subcategories an underage beneficiary may
	// not book.
	ForbiddenToUnderage bool `gorm:"not null;default:false" json:"forbiddenToUnderage"`

	// RequiresCinemaTicketing marks offers synchronised from a cinema
	// provider: booking them must also reserve seats at the provider.
	RequiresCinemaTicketing bool `gorm:"not null;default:false" json:"requiresCinemaTicketing"`

	Venue  Venue   `gorm:"foreignKey:VenueID" json:"-"`
	Stocks []Stock `gorm:"foreignKey:OfferID" json:"-"`
}

// IsDigital reports whether the offer is a purely digital good, delivered
// through a URL rather than withdrawn at a venue.
func (o *Offer) IsDigital() bool {
	return o.URL != ""
}

// IsBookableBy applies the category restrictions for a user type.
func (o *Offer) IsBookableBy(user *User) bool {
	if user.IsUnderage() && o.ForbiddenToUnderage {
		return false
	}
	return true
}

func (o *Offer) ComputeSlug() string {
	return slug.Make(o.Name)
}

// ActivationCode is a one-shot redemption code for a digital good. A row is
// bound to the booking that consumed it and never reused.
type ActivationCode struct {
	DTO
	StockID   uint   `gorm:"not null;index" json:"stockId"`
	Code      string `gorm:"size:80;not null" json:"code"`
	BookingID *uint  `gorm:"index" json:"bookingId,omitempty"`

	Stock Stock `gorm:"foreignKey:StockID" json:"-"`
}
