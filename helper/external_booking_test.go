package helper

import (
	"testing"

	"passculture/config"
	"passculture/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTicketingAPI struct {
	tickets   []ExternalTicket
	bookErr   error
	cancelled [][]string
	cancelErr error
}

func (f *fakeTicketingAPI) BookTicket(venueID uint, showID int, booking *model.Booking, beneficiary *model.User) ([]ExternalTicket, error) {
	return f.tickets, f.bookErr
}

func (f *fakeTicketingAPI) CancelTickets(venueID uint, barcodes []string) error {
	f.cancelled = append(f.cancelled, barcodes)
	return f.cancelErr
}

func TestShowIDFromIDAtProviders(t *testing.T) {
	showID, err := ShowIDFromIDAtProviders("4bcd0b6a-0a1c-4a73-9f9d-7e8a5b1d2c3e#181")
	require.NoError(t, err)
	assert.Equal(t, 181, showID)

	_, err = ShowIDFromIDAtProviders("no-separator")
	assert.ErrorIs(t, err, model.ErrShowIDNotFound)

	_, err = ShowIDFromIDAtProviders("uuid#not-a-number")
	assert.ErrorIs(t, err, model.ErrShowIDNotFound)

	_, err = ShowIDFromIDAtProviders("")
	assert.ErrorIs(t, err, model.ErrShowIDNotFound)
}

func TestLookupCinemaProvider(t *testing.T) {
	t.Run("unknown class is a hard error", func(t *testing.T) {
		_, err := lookupCinemaProvider(config.Features{}, "UnknownStocks")
		assert.ErrorIs(t, err, model.ErrUnknownProvider)
	})

	t.Run("disabled integration", func(t *testing.T) {
		_, err := lookupCinemaProvider(config.Features{}, "CDSStocks")
		assert.ErrorIs(t, err, model.ErrProviderDisabled)
	})

	t.Run("kill switch wins over the enable flag", func(t *testing.T) {
		features := config.Features{EnableCDS: true, DisableCDSExternalBookings: true}
		_, err := lookupCinemaProvider(features, "CDSStocks")
		assert.ErrorIs(t, err, model.ErrProviderDisabled)
	})

	t.Run("enabled integration resolves", func(t *testing.T) {
		features := config.Features{EnableCGR: true}
		provider, err := lookupCinemaProvider(features, "CGRStocks")
		require.NoError(t, err)
		assert.Equal(t, "CGRStocks", provider.Class())
		assert.False(t, provider.SupportsPassCancellation())
	})

	t.Run("two-side providers support pass cancellation", func(t *testing.T) {
		features := config.Features{EnableCDS: true}
		provider, err := lookupCinemaProvider(features, "CDSStocks")
		require.NoError(t, err)
		assert.True(t, provider.SupportsPassCancellation())
	})
}

func TestRegisterTicketingAPI(t *testing.T) {
	err := RegisterTicketingAPI("NotAProvider", &fakeTicketingAPI{})
	assert.ErrorIs(t, err, model.ErrUnknownProvider)

	api := &fakeTicketingAPI{}
	require.NoError(t, RegisterTicketingAPI("BoostStocks", api))
	defer RegisterTicketingAPI("BoostStocks", nil)

	provider, err := lookupCinemaProvider(config.Features{EnableBoost: true}, "BoostStocks")
	require.NoError(t, err)
	assert.Equal(t, TicketingAPI(api), provider.API())
}

func TestCancelExternalBooking(t *testing.T) {
	externalBooking := func(class string) (*model.Booking, *model.Stock) {
		booking := &model.Booking{
			ExternalBookings: []model.ExternalBooking{
				{Barcode: "CINE-0001"},
				{Barcode: "CINE-0002"},
			},
		}
		stock := &model.Stock{
			Offer: model.Offer{
				Venue: model.Venue{CinemaProviderClass: class},
			},
		}
		return booking, stock
	}

	t.Run("non-external booking is a no-op", func(t *testing.T) {
		booking := &model.Booking{}
		stock := &model.Stock{}
		assert.NoError(t, CancelExternalBooking(config.Features{}, booking, stock))
	})

	t.Run("voids the barcodes at the provider", func(t *testing.T) {
		api := &fakeTicketingAPI{}
		require.NoError(t, RegisterTicketingAPI("CDSStocks", api))
		defer RegisterTicketingAPI("CDSStocks", nil)

		booking, stock := externalBooking("CDSStocks")
		err := CancelExternalBooking(config.Features{EnableCDS: true}, booking, stock)
		require.NoError(t, err)
		require.Len(t, api.cancelled, 1)
		assert.Equal(t, []string{"CINE-0001", "CINE-0002"}, api.cancelled[0])
	})

	t.Run("one-side provider skips the void call", func(t *testing.T) {
		api := &fakeTicketingAPI{}
		require.NoError(t, RegisterTicketingAPI("EMSStocks", api))
		defer RegisterTicketingAPI("EMSStocks", nil)

		booking, stock := externalBooking("EMSStocks")
		err := CancelExternalBooking(config.Features{EnableEMS: true}, booking, stock)
		require.NoError(t, err)
		assert.Empty(t, api.cancelled)
	})

	t.Run("disabled provider fails the cancellation", func(t *testing.T) {
		booking, stock := externalBooking("CDSStocks")
		err := CancelExternalBooking(config.Features{}, booking, stock)
		assert.ErrorIs(t, err, model.ErrProviderDisabled)
	})

	t.Run("missing client fails the cancellation", func(t *testing.T) {
		booking, stock := externalBooking("CDSStocks")
		err := CancelExternalBooking(config.Features{EnableCDS: true}, booking, stock)
		assert.ErrorIs(t, err, model.ErrExternalBookingFailed)
	})
}
