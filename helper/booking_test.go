package helper

import (
	"testing"

	"passculture/config"
	"passculture/constants"
	"passculture/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// mockGorm opens a gorm handle over a sqlmock connection so the booking
// engine's SQL can be exercised without a Postgres instance.
func mockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func TestBookOfferFreeOfferIncrementsCounter(t *testing.T) {
	db, mock := mockGorm(t)
	mock.MatchExpectationsInOrder(false)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "stocks" WHERE "stocks"\."id" = \$1.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "offer_id", "price", "quantity", "booked_quantity"}).
			AddRow(10, 20, "0", 50, 0))
	mock.ExpectQuery(`SELECT \* FROM "offers"`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "venue_id", "name", "is_active"}).
			AddRow(20, 30, "Atelier gravure", true))
	mock.ExpectQuery(`SELECT \* FROM "venues"`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "offerer_id", "name", "booking_email"}).
			AddRow(30, 40, "Musée exemple", ""))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE "users"\."id" = \$1.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "email", "role", "is_active"}).
			AddRow(7, "beneficiaire@example.com", model.RoleBeneficiary, true))
	mock.ExpectQuery(`SELECT \* FROM "deposits" WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "amount"}))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings" JOIN stocks`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings" WHERE token = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`INSERT INTO "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101))
	mock.ExpectExec(`UPDATE "stocks" SET "booked_quantity"=\$1`).
		WithArgs(int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings" WHERE venue_id = \$1 AND id != \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectCommit()

	booking, err := BookOffer(db, nil, config.Features{}, 7,
		model.BookOfferInput{StockID: 10, Quantity: 1})
	require.NoError(t, err)

	assert.Equal(t, uint(101), booking.ID)
	assert.Equal(t, model.BookingConfirmed, booking.Status)
	assert.Len(t, booking.Token, constants.BookingTokenLength)
	assert.Nil(t, booking.DepositID)
	assert.Nil(t, booking.CancellationLimitDate)
	assert.Equal(t, int64(1), booking.Stock.BookedQuantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelBookingRestoresStockQuantity(t *testing.T) {
	db, mock := mockGorm(t)
	mock.MatchExpectationsInOrder(false)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "stocks" WHERE "stocks"\."id" = \$1.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "offer_id", "price", "quantity", "booked_quantity"}).
			AddRow(10, 20, "0", 50, 1))
	mock.ExpectQuery(`SELECT \* FROM "offers"`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "venue_id", "is_active"}).AddRow(20, 30, true))
	mock.ExpectQuery(`SELECT \* FROM "venues"`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "offerer_id"}).AddRow(30, 40))
	mock.ExpectQuery(`SELECT \* FROM "bookings" WHERE "bookings"\."id" = \$1`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "stock_id", "user_id", "quantity", "status", "token"}).
			AddRow(101, 10, 7, 1, "CONFIRMED", "ABC234"))
	mock.ExpectQuery(`SELECT \* FROM "external_bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_id", "barcode"}))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "activation_codes"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`UPDATE "stocks" SET "booked_quantity"=\$1`).
		WithArgs(int64(0), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "bookings" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking := &model.Booking{
		DTO:      model.DTO{ID: 101},
		StockID:  10,
		UserID:   7,
		Quantity: 1,
		Token:    "ABC234",
		Status:   model.BookingConfirmed,
	}
	cancelled, err := cancelBooking(db, config.Features{}, booking,
		model.CancelledByBeneficiary, nil, CancelOptions{RaiseIfError: true})
	require.NoError(t, err)

	assert.True(t, cancelled)
	assert.Equal(t, model.BookingCancelled, booking.Status)
	require.NotNil(t, booking.CancellationReason)
	assert.Equal(t, model.CancelledByBeneficiary, *booking.CancellationReason)
	assert.NotNil(t, booking.CancellationDate)
	assert.Nil(t, booking.DateUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckOfferAlreadyBooked(t *testing.T) {
	user := model.User{DTO: model.DTO{ID: 7}, Role: model.RoleBeneficiary}

	t.Run("no live booking passes", func(t *testing.T) {
		db, mock := mockGorm(t)
		mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings" JOIN stocks ON stocks\.id = bookings\.stock_id WHERE bookings\.user_id = \$1 AND stocks\.offer_id = \$2 AND bookings\.status != \$3`).
			WithArgs(7, 20, "CANCELLED").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		assert.NoError(t, CheckOfferAlreadyBooked(db, &user, 20))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("a live booking on any stock of the offer rejects", func(t *testing.T) {
		db, mock := mockGorm(t)
		mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings" JOIN stocks`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := CheckOfferAlreadyBooked(db, &user, 20)
		var validationErr *model.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "offerId", validationErr.Field)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkAsCancelledOneSideGuards(t *testing.T) {
	expectLoadedBooking := func(mock sqlmock.Sqlmock, providerClass string) {
		mock.ExpectQuery(`SELECT \* FROM "bookings" WHERE "bookings"\."id" = \$1`).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "stock_id", "user_id", "quantity", "status", "token"}).
				AddRow(101, 10, 7, 1, "CONFIRMED", "ABC234"))
		mock.ExpectQuery(`SELECT \* FROM "external_bookings"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "booking_id", "barcode"}))
		mock.ExpectQuery(`SELECT \* FROM "stocks"`).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "offer_id", "price", "booked_quantity"}).
				AddRow(10, 20, "7.00", 1))
		mock.ExpectQuery(`SELECT \* FROM "offers"`).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "venue_id", "is_active"}).AddRow(20, 30, true))
		mock.ExpectQuery(`SELECT \* FROM "venues"`).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "offerer_id", "cinema_provider_class"}).
				AddRow(30, 40, providerClass))
		mock.ExpectQuery(`SELECT \* FROM "users"`).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "role"}).AddRow(7, model.RoleBeneficiary))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings" WHERE id = \$1 AND status = \$2`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	}

	t.Run("one-side needs the plain backoffice reason", func(t *testing.T) {
		db, mock := mockGorm(t)
		mock.MatchExpectationsInOrder(false)
		expectLoadedBooking(mock, "CGRStocks")

		_, err := MarkAsCancelled(db, config.Features{}, 101,
			model.CancelledBackofficeEventCancelled, 1, true)
		assert.ErrorIs(t, err, model.ErrOneSideCancellationForbidden)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("one-side needs a one-side provider venue", func(t *testing.T) {
		db, mock := mockGorm(t)
		mock.MatchExpectationsInOrder(false)
		expectLoadedBooking(mock, "")

		_, err := MarkAsCancelled(db, config.Features{}, 101,
			model.CancelledByBackoffice, 1, true)
		assert.ErrorIs(t, err, model.ErrOneSideCancellationForbidden)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
