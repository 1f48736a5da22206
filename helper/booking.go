package helper

import (
	"errors"
	"log"
	"slices"
	"strings"
	"time"

	"passculture/config"
	"passculture/constants"
	"passculture/model"
	"passculture/utils"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookOffer books quantity units of a stock for a beneficiary. The whole
// read-validate-write sequence runs in one transaction with the stock and
// user rows locked, so concurrent bookings of the same stock or by the same
// user serialize instead of racing on BookedQuantity or the credit balance.
// A validation failure rolls back immediately and releases the locks.
func BookOffer(db *gorm.DB, rdb *redis.Client, features config.Features, userID uint, input model.BookOfferInput) (*model.Booking, error) {
	now := time.Now().UTC()

	tx := db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	stock, err := GetAndLockStock(tx, input.StockID)
	if err != nil {
		return nil, err
	}
	user, err := GetAndLockUser(tx, userID)
	if err != nil {
		return nil, err
	}

	if err := CheckOfferCategoryIsBookableByUser(user, stock); err != nil {
		return nil, err
	}
	if err := CheckCanBookFreeOffer(user, stock); err != nil {
		return nil, err
	}
	if err := CheckOfferAlreadyBooked(tx, user, stock.OfferID); err != nil {
		return nil, err
	}
	if err := CheckQuantity(&stock.Offer, input.Quantity); err != nil {
		return nil, err
	}
	if err := CheckStockIsBookable(stock, input.Quantity, now); err != nil {
		return nil, err
	}

	totalAmount := stock.Price.Mul(decimal.NewFromInt(input.Quantity))
	deposit := user.ActiveDeposit(now)
	if !totalAmount.IsZero() {
		// Free bookings skip the credit check and may exist without any
		// deposit on file.
		credit, err := GetDomainsCredit(tx, user)
		if err != nil {
			return nil, err
		}
		if err := CheckExpensesLimits(credit, deposit, totalAmount, &stock.Offer); err != nil {
			return nil, err
		}
	}

	useActivationCode, err := stockHasActivationCodes(tx, stock)
	if err != nil {
		return nil, err
	}
	if useActivationCode {
		if err := CheckActivationCodeAvailable(tx, stock.ID); err != nil {
			return nil, err
		}
	}

	token, err := generateUniqueToken(tx)
	if err != nil {
		return nil, err
	}

	booking := &model.Booking{
		UserID:                user.ID,
		StockID:               stock.ID,
		VenueID:               stock.Offer.VenueID,
		OffererID:             stock.Offer.Venue.OffererID,
		Quantity:              input.Quantity,
		Amount:                stock.Price,
		Token:                 token,
		Status:                model.BookingConfirmed,
		DateCreated:           now,
		CancellationLimitDate: ComputeCancellationLimitDate(stock.BeginningDatetime, now),
	}
	if deposit != nil && !totalAmount.IsZero() {
		booking.DepositID = &deposit.ID
	}

	if err := tx.Create(booking).Error; err != nil {
		return nil, translateTriggerError(err)
	}

	if useActivationCode {
		if err := attachActivationCode(tx, booking, deposit); err != nil {
			return nil, err
		}
	}

	if stock.Offer.RequiresCinemaTicketing {
		if err := BookExternalTicket(tx, rdb, features, booking, stock, user); err != nil {
			return nil, err
		}
	}

	stock.BookedQuantity += input.Quantity
	if err := tx.Model(&model.Stock{}).Where("id = ?", stock.ID).
		Update("booked_quantity", stock.BookedQuantity).Error; err != nil {
		return nil, translateTriggerError(err)
	}

	firstVenueBooking, err := isFirstVenueBooking(tx, booking)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, translateTriggerError(err)
	}
	committed = true

	log.Printf("booking created id=%d token=%s stock_id=%d user_id=%d quantity=%d",
		booking.ID, booking.Token, stock.ID, user.ID, booking.Quantity)

	booking.Stock = *stock
	booking.User = *user
	notifyBookingCreated(booking, stock, user, firstVenueBooking)
	return booking, nil
}

// stockHasActivationCodes reports whether the stock distributes one-shot
// codes. Only digital offers carry them.
func stockHasActivationCodes(tx *gorm.DB, stock *model.Stock) (bool, error) {
	if !stock.Offer.IsDigital() {
		return false, nil
	}
	var count int64
	err := tx.Model(&model.ActivationCode{}).
		Where("stock_id = ?", stock.ID).
		Count(&count).Error
	return count > 0, err
}

// attachActivationCode binds the next free code to the booking and marks
// the booking used right away: a delivered code cannot be taken back.
func attachActivationCode(tx *gorm.DB, booking *model.Booking, deposit *model.Deposit) error {
	var code model.ActivationCode
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("stock_id = ? AND booking_id IS NULL", booking.StockID).
		Order("id").
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ErrNoActivationCodeAvailable
		}
		return err
	}
	if err := tx.Model(&model.ActivationCode{}).Where("id = ?", code.ID).
		Update("booking_id", booking.ID).Error; err != nil {
		return err
	}
	code.BookingID = &booking.ID
	booking.ActivationCode = &code

	if err := booking.MarkAsUsed(model.ValidatedAuto); err != nil {
		return err
	}
	setUsedRecreditType(booking, deposit)
	return tx.Model(&model.Booking{}).Where("id = ?", booking.ID).
		Updates(map[string]any{
			"status":                 booking.Status,
			"date_used":              booking.DateUsed,
			"validation_author_type": booking.ValidationAuthorType,
			"used_recredit_type":     booking.UsedRecreditType,
		}).Error
}

func setUsedRecreditType(booking *model.Booking, deposit *model.Deposit) {
	if deposit == nil {
		return
	}
	recredit := model.Recredit18
	if deposit.Type == model.DepositGrant1517 {
		recredit = model.Recredit17
	}
	booking.UsedRecreditType = &recredit
}

func generateUniqueToken(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		token := utils.GenerateBookingToken()
		var count int64
		if err := tx.Model(&model.Booking{}).Where("token = ?", token).
			Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return token, nil
		}
	}
	return "", errors.New("could not generate a unique booking token")
}

func isFirstVenueBooking(tx *gorm.DB, booking *model.Booking) (bool, error) {
	var count int64
	err := tx.Model(&model.Booking{}).
		Where("venue_id = ? AND id != ?", booking.VenueID, booking.ID).
		Count(&count).Error
	return count == 0, err
}

// translateTriggerError maps the database trigger's raised messages onto the
// domain sentinels. The locked paths normally reject first, so a trigger hit
// means a write raced past them (batch jobs, manual SQL).
func translateTriggerError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "tooManyBookings") {
		return model.ErrStockIsNotBookable
	}
	if strings.Contains(msg, "insufficientFunds") {
		return model.ErrInsufficientFunds
	}
	return err
}

func notifyBookingCreated(booking *model.Booking, stock *model.Stock, user *model.User, firstVenueBooking bool) {
	data := utils.BookingConfirmationData{
		OfferName:   stock.Offer.Name,
		VenueName:   stock.Offer.Venue.Name,
		Token:       booking.Token,
		Quantity:    booking.Quantity,
		TotalAmount: booking.TotalAmount().StringFixed(2),
	}
	if stock.BeginningDatetime != nil {
		data.EventDate = stock.BeginningDatetime.Format("02/01/2006 15:04")
	}
	utils.SendBookingConfirmationEmail(user.Email, data, booking.QRCodeData())
	if stock.Offer.Venue.BookingEmail != "" {
		utils.SendNewBookingToProEmail(stock.Offer.Venue.BookingEmail, data, firstVenueBooking)
	}
	notifyStockUpdate(stock.OfferID)
	syncExternalUser(user)
	syncExternalPro(stock.Offer.Venue.BookingEmail)
}

// GetBooking loads a booking with everything the cancellation and redemption
// paths need.
func GetBooking(db *gorm.DB, bookingID uint) (*model.Booking, error) {
	var booking model.Booking
	err := db.Preload("User").
		Preload("Deposit").
		Preload("ExternalBookings").
		Preload("Stock.Offer.Venue").
		First(&booking, bookingID).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingByToken is the pro-side lookup at redemption time.
func GetBookingByToken(db *gorm.DB, token string) (*model.Booking, error) {
	var booking model.Booking
	err := db.Preload("User").
		Preload("Deposit").
		Preload("ExternalBookings").
		Preload("Stock.Offer.Venue").
		Where("token = ?", strings.ToUpper(token)).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// CancelOptions tunes the shared cancellation primitive.
type CancelOptions struct {
	// CancelEvenIfUsed allows cancelling a redeemed booking (fraud, event
	// cancelled by the offerer).
	CancelEvenIfUsed bool
	// RaiseIfError propagates already-terminal states as errors. Batch
	// callers leave it false and treat them as rows to skip.
	RaiseIfError bool
	// OneSideCancellation skips the provider void call for integrations
	// that only cancel on their own side.
	OneSideCancellation bool
}

// cancelBooking is the single transition point to CANCELLED. It re-locks the
// stock, refreshes the booking under the lock, voids finance pricing and
// external tickets, and gives the quantity back to the stock. Returns false
// with a nil error when the booking was already terminal and the caller
// asked to skip rather than fail.
func cancelBooking(db *gorm.DB, features config.Features, booking *model.Booking,
	reason model.BookingCancellationReason, authorID *uint, opts CancelOptions) (bool, error) {

	tx := db.Begin()
	if tx.Error != nil {
		return false, tx.Error
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	stock, err := GetAndLockStock(tx, booking.StockID)
	if err != nil {
		return false, err
	}

	// The caller's copy may be stale; the row under the lock is the truth.
	var fresh model.Booking
	if err := tx.Preload("ExternalBookings").First(&fresh, booking.ID).Error; err != nil {
		return false, err
	}

	if err := Finance.CancelPricing(tx, &fresh); err != nil {
		return skipOrFail(opts, booking.ID, err)
	}
	if err := fresh.Cancel(reason, authorID, opts.CancelEvenIfUsed); err != nil {
		return skipOrFail(opts, booking.ID, err)
	}
	if !opts.OneSideCancellation {
		if err := CancelExternalBooking(features, &fresh, stock); err != nil {
			return false, err
		}
	}

	stock.BookedQuantity -= fresh.Quantity
	stockUpdates := map[string]any{"booked_quantity": stock.BookedQuantity}
	hasCode, err := bookingHasActivationCode(tx, fresh.ID)
	if err != nil {
		return false, err
	}
	if hasCode && stock.Quantity != nil {
		// The delivered code is burnt, so the slot must not be resold.
		stockUpdates["quantity"] = *stock.Quantity - 1
	}
	if err := tx.Model(&model.Stock{}).Where("id = ?", stock.ID).
		Updates(stockUpdates).Error; err != nil {
		return false, err
	}

	if err := tx.Model(&model.Booking{}).Where("id = ?", fresh.ID).
		Updates(map[string]any{
			"status":               fresh.Status,
			"cancellation_date":    fresh.CancellationDate,
			"cancellation_reason":  fresh.CancellationReason,
			"cancellation_user_id": fresh.CancellationUserID,
			"date_used":            fresh.DateUsed,
		}).Error; err != nil {
		return false, translateTriggerError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return false, translateTriggerError(err)
	}
	committed = true

	booking.Status = fresh.Status
	booking.CancellationDate = fresh.CancellationDate
	booking.CancellationReason = fresh.CancellationReason
	booking.CancellationUserID = fresh.CancellationUserID
	booking.DateUsed = fresh.DateUsed

	log.Printf("booking cancelled id=%d token=%s reason=%s", booking.ID, booking.Token, reason)
	notifyStockUpdate(stock.OfferID)
	return true, nil
}

func skipOrFail(opts CancelOptions, bookingID uint, err error) (bool, error) {
	terminal := errors.Is(err, model.ErrBookingIsAlreadyCancelled) ||
		errors.Is(err, model.ErrBookingIsAlreadyUsed) ||
		errors.Is(err, model.ErrBookingIsAlreadyRefunded) ||
		errors.Is(err, model.ErrNonCancellablePricing)
	if terminal && !opts.RaiseIfError {
		log.Printf("booking cancellation skipped id=%d: %v", bookingID, err)
		return false, nil
	}
	return false, err
}

func bookingHasActivationCode(tx *gorm.DB, bookingID uint) (bool, error) {
	var count int64
	err := tx.Model(&model.ActivationCode{}).
		Where("booking_id = ?", bookingID).
		Count(&count).Error
	return count > 0, err
}

// CancelBookingByBeneficiary cancels the beneficiary's own booking while the
// cancellation window is still open.
func CancelBookingByBeneficiary(db *gorm.DB, features config.Features, user *model.User, bookingID uint) (*model.Booking, error) {
	booking, err := GetBooking(db, bookingID)
	if err != nil {
		return nil, err
	}
	if err := CheckBeneficiaryCanCancelBooking(user, booking, time.Now().UTC()); err != nil {
		return nil, err
	}
	if _, err := cancelBooking(db, features, booking, model.CancelledByBeneficiary,
		&user.ID, CancelOptions{RaiseIfError: true}); err != nil {
		return nil, err
	}
	sendCancellationEmails(booking, "Annulation par le bénéficiaire")
	return booking, nil
}

// CancelBookingByOfferer cancels on behalf of the venue, e.g. when the event
// is called off. Bypasses the beneficiary window but not redemption.
func CancelBookingByOfferer(db *gorm.DB, features config.Features, bookingID uint) (*model.Booking, error) {
	booking, err := GetBooking(db, bookingID)
	if err != nil {
		return nil, err
	}
	if err := CheckBookingCanBeCancelled(booking); err != nil {
		return nil, err
	}
	if _, err := cancelBooking(db, features, booking, model.CancelledByOfferer,
		nil, CancelOptions{RaiseIfError: true}); err != nil {
		return nil, err
	}
	pushCancelNotification([]uint{booking.ID})
	sendCancellationEmails(booking, "Annulation par le partenaire culturel")
	return booking, nil
}

// CancelBookingForFraud voids a booking flagged by the fraud team. Redeemed
// bookings are cancellable on this path.
func CancelBookingForFraud(db *gorm.DB, features config.Features, bookingID uint, authorID uint) (*model.Booking, error) {
	booking, err := GetBooking(db, bookingID)
	if err != nil {
		return nil, err
	}
	if err := CheckBookingCanBeCancelled(booking); err != nil {
		return nil, err
	}
	if _, err := cancelBooking(db, features, booking, model.CancelledForFraud,
		&authorID, CancelOptions{CancelEvenIfUsed: true, RaiseIfError: true}); err != nil {
		return nil, err
	}
	return booking, nil
}

// MarkAsCancelled is the backoffice cancellation. It refuses once a
// reimbursement exists, and gates one-side cancellation on the provider set
// and the event's age.
func MarkAsCancelled(db *gorm.DB, features config.Features, bookingID uint,
	reason model.BookingCancellationReason, authorID uint, oneSideCancellation bool) (*model.Booking, error) {

	booking, err := GetBooking(db, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == model.BookingCancelled {
		return nil, model.ErrBookingIsAlreadyCancelled
	}
	reimbursed, err := Finance.HasReimbursement(db, booking.ID)
	if err != nil {
		return nil, err
	}
	if reimbursed {
		return nil, model.ErrBookingIsAlreadyRefunded
	}

	providerClass := booking.Stock.Offer.Venue.CinemaProviderClass
	oneSideProvider := slices.Contains(constants.OneSideBookingsCancellationProviders, providerClass)
	if oneSideCancellation {
		// Only a plain backoffice cancellation may leave the provider
		// ticket alive.
		if reason != model.CancelledByBackoffice || !oneSideProvider {
			return nil, model.ErrOneSideCancellationForbidden
		}
		beginning := booking.Stock.BeginningDatetime
		if beginning != nil && time.Now().UTC().Sub(*beginning) > constants.OneSideCancellationEventAgeLimit {
			return nil, model.ErrOneSideCancellationForbidden
		}
	} else if booking.IsExternal() && oneSideProvider {
		// These providers only void tickets on their own side, so the
		// operator must confirm the provider already did.
		return nil, model.ErrOneSideCancellationForbidden
	}

	if _, err := cancelBooking(db, features, booking, reason, &authorID, CancelOptions{
		CancelEvenIfUsed:    true,
		RaiseIfError:        true,
		OneSideCancellation: oneSideCancellation,
	}); err != nil {
		return nil, err
	}
	return booking, nil
}

// CancelBookingsFromStock cancels every live booking of a stock, typically
// when the offerer deletes an event date. Terminal rows are skipped, not
// failed: one already-reimbursed booking must not block the batch.
func CancelBookingsFromStock(db *gorm.DB, features config.Features, stock *model.Stock,
	reason model.BookingCancellationReason) ([]model.Booking, error) {

	var bookings []model.Booking
	err := db.Preload("User").
		Where("stock_id = ? AND status != ?", stock.ID, model.BookingCancelled).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}

	cancelled := make([]model.Booking, 0, len(bookings))
	ids := make([]uint, 0, len(bookings))
	for i := range bookings {
		done, err := cancelBooking(db, features, &bookings[i], reason, nil, CancelOptions{
			// A started event cannot be attended anymore, so even
			// redeemed bookings fall.
			CancelEvenIfUsed: stock.Offer.IsEvent,
		})
		if err != nil {
			return cancelled, err
		}
		if done {
			cancelled = append(cancelled, bookings[i])
			ids = append(ids, bookings[i].ID)
		}
	}
	if len(ids) > 0 {
		pushCancelNotification(ids)
	}
	return cancelled, nil
}

// MarkBookingAsUsed records redemption by the offerer or the backoffice.
// privileged bypasses the confirmation-window check for support operators.
func MarkBookingAsUsed(db *gorm.DB, booking *model.Booking,
	author model.BookingValidationAuthorType, privileged bool) error {

	if err := CheckIsUsable(booking, privileged, time.Now().UTC()); err != nil {
		return err
	}
	if err := booking.MarkAsUsed(author); err != nil {
		return err
	}
	setUsedRecreditType(booking, booking.Deposit)
	err := db.Model(&model.Booking{}).Where("id = ?", booking.ID).
		Updates(map[string]any{
			"status":                 booking.Status,
			"date_used":              booking.DateUsed,
			"validation_author_type": booking.ValidationAuthorType,
			"used_recredit_type":     booking.UsedRecreditType,
		}).Error
	if err != nil {
		return err
	}
	log.Printf("booking used id=%d token=%s author=%s", booking.ID, booking.Token, author)
	syncExternalUser(&booking.User)
	return nil
}

// MarkBookingAsUnused reverts a redemption back to CONFIRMED.
func MarkBookingAsUnused(db *gorm.DB, booking *model.Booking) error {
	if err := CheckCanBeMarkedAsUnused(db, booking); err != nil {
		return err
	}

	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if err := Finance.CancelPricing(tx, booking); err != nil {
		return err
	}
	booking.MarkAsUnusedSetConfirmed()
	booking.UsedRecreditType = nil
	if err := tx.Model(&model.Booking{}).Where("id = ?", booking.ID).
		Updates(map[string]any{
			"status":                 booking.Status,
			"date_used":              nil,
			"validation_author_type": nil,
			"used_recredit_type":     nil,
		}).Error; err != nil {
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}
	committed = true

	log.Printf("booking kept id=%d token=%s", booking.ID, booking.Token)
	syncExternalUser(&booking.User)
	return nil
}

// MarkAsUsedWithUncancelling repairs a mistaken or fraudulent cancellation:
// CANCELLED goes straight to USED and the stock counter is re-incremented
// under the lock. The trigger re-checks overselling and funds on the update.
func MarkAsUsedWithUncancelling(db *gorm.DB, booking *model.Booking, authorID uint) error {
	now := time.Now().UTC()
	if booking.Deposit != nil && booking.Deposit.IsExpired(now) {
		return model.ErrDepositCreditExpired
	}

	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	stock, err := GetAndLockStock(tx, booking.StockID)
	if err != nil {
		return err
	}
	var fresh model.Booking
	if err := tx.First(&fresh, booking.ID).Error; err != nil {
		return err
	}
	if err := fresh.UncancelSetUsed(); err != nil {
		return err
	}
	author := model.ValidatedByBackoffice
	fresh.ValidationAuthorType = &author
	setUsedRecreditType(&fresh, booking.Deposit)

	stock.BookedQuantity += fresh.Quantity
	if err := tx.Model(&model.Stock{}).Where("id = ?", stock.ID).
		Update("booked_quantity", stock.BookedQuantity).Error; err != nil {
		return translateTriggerError(err)
	}
	if err := tx.Model(&model.Booking{}).Where("id = ?", fresh.ID).
		Updates(map[string]any{
			"status":                 fresh.Status,
			"date_used":              fresh.DateUsed,
			"cancellation_date":      nil,
			"cancellation_reason":    nil,
			"cancellation_user_id":   nil,
			"validation_author_type": fresh.ValidationAuthorType,
			"used_recredit_type":     fresh.UsedRecreditType,
		}).Error; err != nil {
		return translateTriggerError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return translateTriggerError(err)
	}
	committed = true

	booking.Status = fresh.Status
	booking.DateUsed = fresh.DateUsed
	booking.CancellationDate = nil
	booking.CancellationReason = nil
	booking.CancellationUserID = nil
	booking.ValidationAuthorType = fresh.ValidationAuthorType
	booking.UsedRecreditType = fresh.UsedRecreditType

	log.Printf("booking uncancelled and used id=%d token=%s author_id=%d", booking.ID, booking.Token, authorID)
	notifyStockUpdate(stock.OfferID)
	return nil
}

// TagFraudulentBooking records which admin flagged the booking. Tagging is
// idempotent per booking.
func TagFraudulentBooking(db *gorm.DB, bookingID uint, authorID uint) error {
	tag := model.FraudulentBookingTag{BookingID: bookingID, AuthorID: authorID}
	return db.Where("booking_id = ?", bookingID).FirstOrCreate(&tag).Error
}

func sendCancellationEmails(booking *model.Booking, reason string) {
	data := utils.BookingCancellationData{
		OfferName: booking.Stock.Offer.Name,
		VenueName: booking.Stock.Offer.Venue.Name,
		Token:     booking.Token,
		Reason:    reason,
	}
	utils.SendBookingCancellationEmails(booking.User.Email, booking.Stock.Offer.Venue.BookingEmail, data)
}
