package handler

import (
	"errors"
	"net/http/httptest"
	"testing"

	"passculture/model"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingErrorResponseStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"stock sold out behind the lock", model.ErrStockIsNotBookable, fiber.StatusBadRequest},
		{"insufficient funds", model.ErrInsufficientFunds, fiber.StatusBadRequest},
		{"field rejection", &model.ValidationError{Field: "quantity", Message: "trop"}, fiber.StatusBadRequest},
		{"already cancelled", model.ErrBookingIsAlreadyCancelled, fiber.StatusBadRequest},
		{"missing stock", model.ErrStockDoesNotExist, fiber.StatusNotFound},
		{"provider disabled", model.ErrProviderDisabled, fiber.StatusBadGateway},
		{"someone else's booking", model.ErrBookingDoesNotBelongToUser, fiber.StatusForbidden},
		{"unexpected error", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return bookingErrorResponse(c, tc.err)
			})

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
