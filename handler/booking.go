package handler

import (
	"errors"
	"time"

	"passculture/constants"
	"passculture/database"
	"passculture/helper"
	"passculture/model"
	"passculture/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

// BookingResponse is the client-facing shape of a booking. The QR payload is
// derived, never stored.
type BookingResponse struct {
	ID                    uint                             `json:"id"`
	Token                 string                           `json:"token"`
	Status                model.BookingStatus              `json:"status"`
	Quantity              int64                            `json:"quantity"`
	TotalAmount           string                           `json:"totalAmount"`
	DateCreated           time.Time                        `json:"dateCreated"`
	DateUsed              *time.Time                       `json:"dateUsed,omitempty"`
	CancellationDate      *time.Time                       `json:"cancellationDate,omitempty"`
	CancellationLimitDate *time.Time                       `json:"cancellationLimitDate,omitempty"`
	CancellationReason    *model.BookingCancellationReason `json:"cancellationReason,omitempty"`
	QRCodeData            string                           `json:"qrCodeData"`
	ActivationCode        string                           `json:"activationCode,omitempty"`
	OfferName             string                           `json:"offerName"`
	VenueName             string                           `json:"venueName"`
	BeginningDatetime     *time.Time                       `json:"beginningDatetime,omitempty"`
	IsExternal            bool                             `json:"isExternal"`
}

func toBookingResponse(b *model.Booking) BookingResponse {
	var resp BookingResponse
	copier.Copy(&resp, b)
	resp.TotalAmount = b.TotalAmount().StringFixed(2)
	resp.QRCodeData = b.QRCodeData()
	resp.OfferName = b.Stock.Offer.Name
	resp.VenueName = b.Stock.Offer.Venue.Name
	resp.BeginningDatetime = b.Stock.BeginningDatetime
	resp.IsExternal = b.IsExternal()
	if b.ActivationCode != nil {
		resp.ActivationCode = b.ActivationCode.Code
	}
	return resp
}

// bookingErrorResponse maps domain errors onto HTTP statuses. Validation
// failures carry their field under keyError.
func bookingErrorResponse(c *fiber.Ctx, err error) error {
	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		return utils.ErrorResponseHaveKey(c, fiber.StatusBadRequest, constants.ERROR_INPUT, err, validationErr.Field)
	}
	var expenseErr *model.ExpenseLimitError
	if errors.As(err, &expenseErr) {
		return utils.ErrorResponseHaveKey(c, fiber.StatusBadRequest, "Limite de crédit atteinte", err, "insufficientFunds")
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, model.ErrStockDoesNotExist):
		return utils.ErrorResponse(c, fiber.StatusNotFound, constants.NOT_FOUND_RECORDS, err)
	case errors.Is(err, model.ErrExternalBookingFailed), errors.Is(err, model.ErrProviderDisabled):
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Réservation auprès du fournisseur impossible", err)
	case errors.Is(err, model.ErrBookingDoesNotBelongToUser):
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Réservation d'un autre utilisateur", err)
	case errors.Is(err, model.ErrInsufficientFunds),
		errors.Is(err, model.ErrStockIsNotBookable),
		errors.Is(err, model.ErrBookingIsAlreadyUsed),
		errors.Is(err, model.ErrBookingIsAlreadyCancelled),
		errors.Is(err, model.ErrBookingIsAlreadyRefunded),
		errors.Is(err, model.ErrBookingIsNotCancelled),
		errors.Is(err, model.ErrBookingNotConfirmed),
		errors.Is(err, model.ErrBookingIsConfirmed),
		errors.Is(err, model.ErrDepositCreditExpired),
		errors.Is(err, model.ErrNoActivationCodeAvailable),
		errors.Is(err, model.ErrOfferCategoryNotBookable),
		errors.Is(err, model.ErrOneSideCancellationForbidden):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), err)
	}
	return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, err)
}

func BookOffer(c *fiber.Ctx) error {
	input := c.Locals("inputBookOffer").(model.BookOfferInput)
	claim, user, isBeneficiary, _, _ := helper.GetInfoUserFromToken(c)
	if claim.UserId == 0 {
		return nil
	}
	if !isBeneficiary {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_BENEFICIARY, errors.New("not a beneficiary"))
	}

	booking, err := helper.BookOffer(database.DB, redisClient, appFeatures, user.ID, input)
	if err != nil {
		return bookingErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, toBookingResponse(booking))
}

// GetMyBookings lists the beneficiary's bookings split into ongoing and
// ended, newest first.
func GetMyBookings(c *fiber.Ctx) error {
	claim, user, isBeneficiary, _, _ := helper.GetInfoUserFromToken(c)
	if claim.UserId == 0 {
		return nil
	}
	if !isBeneficiary {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_BENEFICIARY, errors.New("not a beneficiary"))
	}

	db := database.DB
	var bookings []model.Booking
	err := db.Preload("Stock.Offer.Venue").
		Preload("ActivationCode").
		Preload("ExternalBookings").
		Where("user_id = ?", user.ID).
		Order("date_created DESC").
		Find(&bookings).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, err)
	}

	now := time.Now().UTC()
	ongoing := []BookingResponse{}
	ended := []BookingResponse{}
	for i := range bookings {
		resp := toBookingResponse(&bookings[i])
		if bookingIsEnded(&bookings[i], now) {
			ended = append(ended, resp)
		} else {
			ongoing = append(ongoing, resp)
		}
	}

	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{
		"ongoingBookings": ongoing,
		"endedBookings":   ended,
	})
}

// bookingIsEnded decides which list the booking belongs to. A used digital
// booking with a code stays ongoing until the archive job flips
// DisplayAsEnded, so the beneficiary keeps seeing the code for a while.
func bookingIsEnded(b *model.Booking, now time.Time) bool {
	if b.DisplayAsEnded || b.Status == model.BookingCancelled || b.Status == model.BookingReimbursed {
		return true
	}
	if b.Stock.IsEventExpired(now) {
		return true
	}
	if b.Status == model.BookingUsed && b.ActivationCode == nil {
		return true
	}
	return false
}

// CancelBookingByBeneficiary cancels the caller's own booking.
func CancelBookingByBeneficiary(c *fiber.Ctx) error {
	bookingId := uint(c.Locals("inputId").(int))
	claim, user, isBeneficiary, _, _ := helper.GetInfoUserFromToken(c)
	if claim.UserId == 0 {
		return nil
	}
	if !isBeneficiary {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_BENEFICIARY, errors.New("not a beneficiary"))
	}

	booking, err := helper.CancelBookingByBeneficiary(database.DB, appFeatures, &user, bookingId)
	if err != nil {
		return bookingErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, toBookingResponse(booking))
}

// CancelBookingByOfferer lets a pro cancel a booking of their venue.
func CancelBookingByOfferer(c *fiber.Ctx) error {
	bookingId := uint(c.Locals("inputId").(int))
	claim, _, _, isPro, isAdmin := helper.GetInfoUserFromToken(c)
	if claim.UserId == 0 {
		return nil
	}
	if !isPro && !isAdmin {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_OFFERER, errors.New("not an offerer"))
	}

	booking, err := helper.CancelBookingByOfferer(database.DB, appFeatures, bookingId)
	if err != nil {
		return bookingErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, toBookingResponse(booking))
}

// RescheduleStock moves an event stock to a new date. Live bookings keep
// their seats and get a refreshed cancellation window.
func RescheduleStock(c *fiber.Ctx) error {
	stockId := uint(c.Locals("inputId").(int))
	input, ok := c.Locals("inputRescheduleStock").(model.RescheduleStockInput)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_PARSE_DATA_TO_LOCALS, errors.New("PARSE DATA TO LOCALS FAIL"))
	}
	claim, _, _, isPro, isAdmin := helper.GetInfoUserFromToken(c)
	if claim.UserId == 0 {
		return nil
	}
	if !isPro && !isAdmin {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_OFFERER, errors.New("not an offerer"))
	}

	stock, err := helper.RescheduleStock(database.DB, stockId, input.BeginningDatetime.UTC())
	if err != nil {
		return bookingErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, stock)
}

// CancelBookingsFromStock cancels every live booking of a stock, e.g. when
// an event date is withdrawn.
func CancelBookingsFromStock(c *fiber.Ctx) error {
	stockId := uint(c.Locals("inputId").(int))
	claim, _, _, isPro, isAdmin := helper.GetInfoUserFromToken(c)
	if claim.UserId == 0 {
		return nil
	}
	if !isPro && !isAdmin {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_OFFERER, errors.New("not an offerer"))
	}

	db := database.DB
	var stock model.Stock
	if err := db.Preload("Offer").First(&stock, stockId).Error; err != nil {
		return bookingErrorResponse(c, err)
	}

	cancelled, err := helper.CancelBookingsFromStock(db, appFeatures, &stock, model.CancelledByOfferer)
	if err != nil {
		return bookingErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{
		"cancelledBookingCount": len(cancelled),
	})
}
