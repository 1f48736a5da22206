package router

import (
	"passculture/handler"
	"passculture/middleware"
	"passculture/validate"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func SetupRoutes(app *fiber.App) {
	api := app.Group("/api", logger.New())
	v1 := api.Group("/v1", logger.New())

	auth := v1.Group("/auth")
	auth.Post("/login", handler.Login)
	auth.Post("/refresh-token", handler.RefreshToken)
	auth.Post("/change-password", middleware.Protected(), handler.ChangePassword)

	user := v1.Group("/users", logger.New())
	user.Get("/me", middleware.Protected(), handler.Me)

	booking := v1.Group("/bookings", logger.New())
	booking.Post("/", middleware.Protected(), validate.BookOffer(), handler.BookOffer)
	booking.Get("/", middleware.Protected(), handler.GetMyBookings)
	booking.Put("/:bookingId/cancel", middleware.Protected(), validate.GetById("bookingId"), handler.CancelBookingByBeneficiary)
	booking.Put("/:bookingId/cancel-by-offerer", middleware.Protected(), validate.GetById("bookingId"), handler.CancelBookingByOfferer)

	booking.Get("/token/:token", middleware.Protected(), handler.GetBookingByToken)
	booking.Patch("/token/:token/use", middleware.Protected(), handler.MarkBookingAsUsedByToken)
	booking.Patch("/token/:token/keep", middleware.Protected(), handler.KeepBookingByToken)

	booking.Put("/:bookingId/mark-cancelled", middleware.Protected(), validate.MarkCancelled("bookingId"), handler.MarkAsCancelled)
	booking.Put("/:bookingId/uncancel", middleware.Protected(), validate.GetById("bookingId"), handler.UncancelBooking)
	booking.Put("/:bookingId/cancel-for-fraud", middleware.Protected(), validate.GetById("bookingId"), handler.CancelBookingForFraud)
	booking.Put("/:bookingId/tag-fraud", middleware.Protected(), validate.GetById("bookingId"), handler.TagFraudulentBooking)

	stock := v1.Group("/stocks", logger.New())
	stock.Put("/:stockId/cancel-bookings", middleware.Protected(), validate.GetById("stockId"), handler.CancelBookingsFromStock)
	stock.Put("/:stockId/reschedule", middleware.Protected(), validate.RescheduleStock("stockId"), handler.RescheduleStock)
	stock.Post("/recompute-booked-quantity", middleware.Protected(), validate.StockIds(), handler.RecomputeBookedQuantity)

	ws := app.Group("/ws")
	ws.Get("/offers/:id/stock", websocket.New(handler.StockWebsocket))
}
