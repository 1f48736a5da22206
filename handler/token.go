package handler

import (
	"errors"

	"passculture/constants"
	"passculture/database"
	"passculture/helper"
	"passculture/model"
	"passculture/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func loadBookingForPro(c *fiber.Ctx) (*model.Booking, error) {
	token := c.Params("token")
	if len(token) != constants.BookingTokenLength {
		return nil, &model.ValidationError{Field: "token", Message: "Format de contremarque invalide"}
	}
	booking, err := helper.GetBookingByToken(database.DB, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return booking, nil
}

// GetBookingByToken is the lookup a pro does before redeeming a
// contremarque at the counter.
func GetBookingByToken(c *fiber.Ctx) error {
	claim, _, _, isPro, isAdmin := helper.GetInfoUserFromToken(c)
	if claim.UserId == 0 {
		return nil
	}
	if !isPro && !isAdmin {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_OFFERER, errors.New("not an offerer"))
	}

	booking, err := loadBookingForPro(c)
	if err != nil {
		return bookingErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{
		"booking": toBookingResponse(booking),
		"user": fiber.Map{
			"firstName": booking.User.FirstName,
			"lastName":  booking.User.LastName,
		},
	})
}

// MarkBookingAsUsedByToken redeems a booking. Admins bypass the
// confirmation-window check that holds event redemptions until the
// cancellation window closed.
func MarkBookingAsUsedByToken(c *fiber.Ctx) error {
	claim, _, _, isPro, isAdmin := helper.GetInfoUserFromToken(c)
	if claim.UserId == 0 {
		return nil
	}
	if !isPro && !isAdmin {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_OFFERER, errors.New("not an offerer"))
	}

	booking, err := loadBookingForPro(c)
	if err != nil {
		return bookingErrorResponse(c, err)
	}

	author := model.ValidatedByOfferer
	if isAdmin {
		author = model.ValidatedByBackoffice
	}
	if err := helper.MarkBookingAsUsed(database.DB, booking, author, isAdmin); err != nil {
		return bookingErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, toBookingResponse(booking))
}

// KeepBookingByToken reverts a redemption done by mistake.
func KeepBookingByToken(c *fiber.Ctx) error {
	claim, _, _, isPro, isAdmin := helper.GetInfoUserFromToken(c)
	if claim.UserId == 0 {
		return nil
	}
	if !isPro && !isAdmin {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_OFFERER, errors.New("not an offerer"))
	}

	booking, err := loadBookingForPro(c)
	if err != nil {
		return bookingErrorResponse(c, err)
	}
	if err := helper.MarkBookingAsUnused(database.DB, booking); err != nil {
		return bookingErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, toBookingResponse(booking))
}
