package helper

import (
	"time"

	"passculture/constants"
	"passculture/model"

	"gorm.io/gorm"
)

// ComputeCancellationLimitDate derives the deadline after which only
// privileged actors may cancel. Non-event bookings have none. For events
// the limit is the earlier of "48h before the event" and "48h after
// booking", clamped to never precede the booking itself: an event starting
// inside the grace window is confirmed immediately, which is intentional
// business policy.
func ComputeCancellationLimitDate(eventBeginning *time.Time, bookingDate time.Time) *time.Time {
	if eventBeginning == nil {
		return nil
	}

	beforeEvent := eventBeginning.Add(-constants.ConfirmBookingBeforeEventDelay)
	afterBooking := bookingDate.Add(constants.ConfirmBookingAfterCreationDelay)

	earliest := beforeEvent
	if afterBooking.Before(earliest) {
		earliest = afterBooking
	}
	if earliest.Before(bookingDate) {
		earliest = bookingDate
	}
	return &earliest
}

// computeEditionCancellationLimitDate applies when an offerer reschedules an
// event: existing bookings get a fresh grace window, bounded by the new
// event date.
func computeEditionCancellationLimitDate(eventBeginning, editionDate time.Time) time.Time {
	afterEdition := editionDate.Add(constants.ConfirmBookingAfterCreationDelay)
	if eventBeginning.Before(afterEdition) {
		return eventBeginning
	}
	return afterEdition
}

// UpdateCancellationLimitDates recomputes the limit of every booking on a
// rescheduled stock.
func UpdateCancellationLimitDates(db *gorm.DB, bookings []model.Booking, newBeginning time.Time) error {
	if len(bookings) == 0 {
		return nil
	}
	limit := computeEditionCancellationLimitDate(newBeginning, time.Now().UTC())
	ids := make([]uint, 0, len(bookings))
	for i := range bookings {
		bookings[i].CancellationLimitDate = &limit
		ids = append(ids, bookings[i].ID)
	}
	return db.Model(&model.Booking{}).
		Where("id IN ?", ids).
		Update("cancellation_limit_date", limit).Error
}

// RescheduleStock moves an event stock to a new date and refreshes the
// cancellation window of its live bookings.
func RescheduleStock(db *gorm.DB, stockID uint, newBeginning time.Time) (*model.Stock, error) {
	committed := false
	tx := db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	stock, err := GetAndLockStock(tx, stockID)
	if err != nil {
		return nil, err
	}
	if !stock.Offer.IsEvent || stock.BeginningDatetime == nil {
		return nil, &model.ValidationError{
			Field:   "beginningDatetime",
			Message: "Seul un stock d'évènement peut être reprogrammé.",
		}
	}

	stock.BeginningDatetime = &newBeginning
	updates := map[string]interface{}{"beginning_datetime": newBeginning}
	if stock.BookingLimitDatetime != nil && stock.BookingLimitDatetime.After(newBeginning) {
		stock.BookingLimitDatetime = &newBeginning
		updates["booking_limit_datetime"] = newBeginning
	}
	if err := tx.Model(&model.Stock{}).Where("id = ?", stock.ID).Updates(updates).Error; err != nil {
		return nil, err
	}

	var bookings []model.Booking
	if err := tx.Where("stock_id = ? AND status = ?", stock.ID, model.BookingConfirmed).
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	if err := UpdateCancellationLimitDates(tx, bookings, newBeginning); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	committed = true

	notifyStockUpdate(stock.OfferID)
	return stock, nil
}
