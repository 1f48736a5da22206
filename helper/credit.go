package helper

import (
	"time"

	"passculture/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GetDomainsCredit computes the user's remaining credit, overall and per
// capped domain. Returns nil when the user has no live deposit. All sums
// run over non-cancelled bookings billed to the deposit, net of validated
// finance incidents.
func GetDomainsCredit(db *gorm.DB, user *model.User) (*model.DomainsCredit, error) {
	now := time.Now().UTC()
	deposit := user.ActiveDeposit(now)
	if deposit == nil {
		return nil, nil
	}

	var bookings []model.Booking
	if err := db.Preload("Stock.Offer").
		Where("deposit_id = ? AND status != ?", deposit.ID, model.BookingCancelled).
		Find(&bookings).Error; err != nil {
		return nil, err
	}

	incidents, err := Finance.ValidatedIncidentsTotal(db, deposit.ID)
	if err != nil {
		return nil, err
	}

	spent := decimal.Zero
	for i := range bookings {
		spent = spent.Add(bookings[i].TotalAmount())
	}
	spent = spent.Sub(incidents)

	remaining := deposit.Amount.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	if deposit.IsExpired(now) {
		remaining = decimal.Zero
	}

	credit := &model.DomainsCredit{
		All: model.Credit{Initial: deposit.Amount, Remaining: remaining},
	}

	if cap := deposit.DigitalCap(); cap != nil {
		total := decimal.Zero
		for i := range bookings {
			if deposit.DigitalCapApplies(&bookings[i].Stock.Offer) {
				total = total.Add(bookings[i].TotalAmount())
			}
		}
		credit.Digital = &model.Credit{
			Initial:   *cap,
			Remaining: clampRemaining(cap.Sub(total), credit.All.Remaining),
		}
	}

	if cap := deposit.PhysicalCap(); cap != nil {
		total := decimal.Zero
		for i := range bookings {
			if deposit.PhysicalCapApplies(&bookings[i].Stock.Offer) {
				total = total.Add(bookings[i].TotalAmount())
			}
		}
		credit.Physical = &model.Credit{
			Initial:   *cap,
			Remaining: clampRemaining(cap.Sub(total), credit.All.Remaining),
		}
	}

	return credit, nil
}

// A domain remaining can neither go negative nor exceed the overall
// remaining.
func clampRemaining(domainRemaining, allRemaining decimal.Decimal) decimal.Decimal {
	if domainRemaining.IsNegative() {
		domainRemaining = decimal.Zero
	}
	if domainRemaining.GreaterThan(allRemaining) {
		return allRemaining
	}
	return domainRemaining
}
