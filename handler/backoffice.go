package handler

import (
	"errors"

	"passculture/constants"
	"passculture/database"
	"passculture/helper"
	"passculture/model"
	"passculture/utils"

	"github.com/gofiber/fiber/v2"
)

// MarkAsCancelled is the backoffice cancellation with an explicit reason.
func MarkAsCancelled(c *fiber.Ctx) error {
	bookingId := uint(c.Locals("inputId").(int))
	input := c.Locals("inputMarkCancelled").(model.MarkCancelledInput)
	claim, user, _, _, isAdmin := helper.GetInfoUserFromToken(c)
	if claim.UserId == 0 {
		return nil
	}
	if !isAdmin {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_ADMIN, errors.New("not admin"))
	}

	booking, err := helper.MarkAsCancelled(database.DB, appFeatures, bookingId, input.Reason, user.ID, input.OneSideCancellation)
	if err != nil {
		return bookingErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, toBookingResponse(booking))
}

// UncancelBooking repairs a mistaken cancellation, moving the booking
// straight to USED.
func UncancelBooking(c *fiber.Ctx) error {
	bookingId := uint(c.Locals("inputId").(int))
	claim, user, _, _, isAdmin := helper.GetInfoUserFromToken(c)
	if claim.UserId == 0 {
		return nil
	}
	if !isAdmin {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_ADMIN, errors.New("not admin"))
	}

	booking, err := helper.GetBooking(database.DB, bookingId)
	if err != nil {
		return bookingErrorResponse(c, err)
	}
	if err := helper.MarkAsUsedWithUncancelling(database.DB, booking, user.ID); err != nil {
		return bookingErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, toBookingResponse(booking))
}

// CancelBookingForFraud voids the booking and tags it for the fraud team.
func CancelBookingForFraud(c *fiber.Ctx) error {
	bookingId := uint(c.Locals("inputId").(int))
	claim, user, _, _, isAdmin := helper.GetInfoUserFromToken(c)
	if claim.UserId == 0 {
		return nil
	}
	if !isAdmin {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_ADMIN, errors.New("not admin"))
	}

	booking, err := helper.CancelBookingForFraud(database.DB, appFeatures, bookingId, user.ID)
	if err != nil {
		return bookingErrorResponse(c, err)
	}
	if err := helper.TagFraudulentBooking(database.DB, booking.ID, user.ID); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, toBookingResponse(booking))
}

// TagFraudulentBooking flags a booking without cancelling it.
func TagFraudulentBooking(c *fiber.Ctx) error {
	bookingId := uint(c.Locals("inputId").(int))
	claim, user, _, _, isAdmin := helper.GetInfoUserFromToken(c)
	if claim.UserId == 0 {
		return nil
	}
	if !isAdmin {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_ADMIN, errors.New("not admin"))
	}

	if err := helper.TagFraudulentBooking(database.DB, bookingId, user.ID); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{"bookingId": bookingId})
}

// RecomputeBookedQuantity rebuilds the stock counters listed in the body.
func RecomputeBookedQuantity(c *fiber.Ctx) error {
	input := c.Locals("stockIds").(model.ArrayId)
	claim, _, _, _, isAdmin := helper.GetInfoUserFromToken(c)
	if claim.UserId == 0 {
		return nil
	}
	if !isAdmin {
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_ADMIN, errors.New("not admin"))
	}

	if err := helper.RecomputeBookedQuantity(input.IDs); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{"stockIds": input.IDs})
}
