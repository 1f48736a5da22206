package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DepositGrant1517 = "GRANT_15_17"
	DepositGrant18   = "GRANT_18"
)

// Deposit is a time-boxed credit grant. GRANT_18 carries sub-caps for the
// digital and (on version 1) physical expense domains; underage grants have
// no sub-caps.
type Deposit struct {
	DTO
	UserID         uint            `gorm:"not null;index" json:"userId"`
	Amount         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Type           string          `gorm:"size:20;not null" json:"type"`
	Version        int             `gorm:"not null;default:2" json:"version"`
	ExpirationDate *time.Time      `json:"expirationDate,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (d *Deposit) IsExpired(now time.Time) bool {
	return d.ExpirationDate != nil && !d.ExpirationDate.After(now)
}

// DigitalCap returns the domain sub-cap for digital goods, nil when the grant
// does not restrict them.
func (d *Deposit) DigitalCap() *decimal.Decimal {
	switch {
	case d.Type != DepositGrant18:
		return nil
	case d.Version == 1:
		c := decimal.NewFromInt(200)
		return &c
	default:
		c := decimal.NewFromInt(100)
		return &c
	}
}

// PhysicalCap returns the domain sub-cap for physical goods. Only version 1
// of the 18-year-old grant restricted them.
func (d *Deposit) PhysicalCap() *decimal.Decimal {
	if d.Type == DepositGrant18 && d.Version == 1 {
		c := decimal.NewFromInt(200)
		return &c
	}
	return nil
}

// DigitalCapApplies reports whether a booking on the offer counts against the
// digital sub-cap.
func (d *Deposit) DigitalCapApplies(offer *Offer) bool {
	return d.DigitalCap() != nil && offer.IsDigital()
}

// PhysicalCapApplies reports whether a booking on the offer counts against
// the physical sub-cap. Events are neither digital nor physical goods.
func (d *Deposit) PhysicalCapApplies(offer *Offer) bool {
	return d.PhysicalCap() != nil && !offer.IsDigital() && !offer.IsEvent
}

// Credit is a (initial, remaining) pair for one expense domain.
type Credit struct {
	Initial   decimal.Decimal `json:"initial"`
	Remaining decimal.Decimal `json:"remaining"`
}

// DomainsCredit aggregates the user's remaining credit for the overall
// deposit and its optional digital/physical sub-caps.
type DomainsCredit struct {
	All      Credit  `json:"all"`
	Digital  *Credit `json:"digital,omitempty"`
	Physical *Credit `json:"physical,omitempty"`
}
