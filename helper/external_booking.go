package helper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"passculture/config"
	"passculture/constants"
	"passculture/model"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ExternalTicket is one seat reserved at a cinema provider.
type ExternalTicket struct {
	Barcode               string
	Seat                  *string
	AdditionalInformation []byte
}

// TicketingAPI is the network boundary to one provider's booking system.
// Real clients are wired at startup; the bridge never talks HTTP itself.
type TicketingAPI interface {
	BookTicket(venueID uint, showID int, booking *model.Booking, beneficiary *model.User) ([]ExternalTicket, error)
	CancelTickets(venueID uint, barcodes []string) error
}

// CinemaProvider is one ticketing integration: its venue-provider class
// name, its feature-flag pair, whether the pass side can void its tickets,
// and the API client doing the actual calls.
type CinemaProvider interface {
	Class() string
	IsEnabled(f config.Features) bool
	IsKillSwitched(f config.Features) bool
	SupportsPassCancellation() bool
	API() TicketingAPI
}

type cinemaProvider struct {
	class            string
	enabled          func(config.Features) bool
	killSwitched     func(config.Features) bool
	passCancellation bool
	api              TicketingAPI
}

func (p *cinemaProvider) Class() string { return p.class }
func (p *cinemaProvider) IsEnabled(f config.Features) bool { return p.enabled(f) }
func (p *cinemaProvider) IsKillSwitched(f config.Features) bool { return p.killSwitched(f) }
func (p *cinemaProvider) SupportsPassCancellation() bool { return p.passCancellation }
func (p *cinemaProvider) API() TicketingAPI { return p.api }

var cinemaProviders = map[string]*cinemaProvider{
	"CDSStocks": {
		class:            "CDSStocks",
		enabled:          func(f config.Features) bool { return f.EnableCDS },
		killSwitched:     func(f config.Features) bool { return f.DisableCDSExternalBookings },
		passCancellation: true,
	},
	"BoostStocks": {
		class:            "BoostStocks",
		enabled:          func(f config.Features) bool { return f.EnableBoost },
		killSwitched:     func(f config.Features) bool { return f.DisableBoostExternalBookings },
		passCancellation: true,
	},
	"CGRStocks": {
		class:            "CGRStocks",
		enabled:          func(f config.Features) bool { return f.EnableCGR },
		killSwitched:     func(f config.Features) bool { return f.DisableCGRExternalBookings },
		passCancellation: false,
	},
	"EMSStocks": {
		class:            "EMSStocks",
		enabled:          func(f config.Features) bool { return f.EnableEMS },
		killSwitched:     func(f config.Features) bool { return f.DisableEMSExternalBookings },
		passCancellation: false,
	},
}

// RegisterTicketingAPI wires a provider client, replacing the default
// unconfigured one. Called from main for each deployed integration.
func RegisterTicketingAPI(class string, api TicketingAPI) error {
	p, ok := cinemaProviders[class]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrUnknownProvider, class)
	}
	p.api = api
	return nil
}

// lookupCinemaProvider resolves the venue's active integration, applying
// the flag pair. An unknown class is a hard error, not a skipped branch.
func lookupCinemaProvider(features config.Features, class string) (CinemaProvider, error) {
	p, ok := cinemaProviders[class]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownProvider, class)
	}
	if !p.IsEnabled(features) {
		return nil, fmt.Errorf("%w: %s integration is inactive", model.ErrProviderDisabled, p.class)
	}
	if p.IsKillSwitched(features) {
		return nil, fmt.Errorf("%w: %s external bookings are disabled", model.ErrProviderDisabled, p.class)
	}
	return p, nil
}

// ShowIDFromIDAtProviders extracts the provider-side showtime id from a
// synchronised stock identifier, formatted "<offer uuid>#<show id>".
func ShowIDFromIDAtProviders(idAtProviders string) (int, error) {
	parts := strings.Split(idAtProviders, "#")
	if len(parts) != 2 {
		return 0, model.ErrShowIDNotFound
	}
	showID, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, model.ErrShowIDNotFound
	}
	return showID, nil
}

// BookExternalTicket reserves the booking's seats at the venue's cinema
// provider and persists one ExternalBooking row per ticket. It runs inside
// the booking transaction: a provider failure rolls back the local booking,
// so "local committed, external failed" never happens. Issued barcodes are
// parked on the orphan queue until the local commit is confirmed.
func BookExternalTicket(tx *gorm.DB, rdb *redis.Client, features config.Features, booking *model.Booking, stock *model.Stock, beneficiary *model.User) error {
	provider, err := lookupCinemaProvider(features, stock.Offer.Venue.CinemaProviderClass)
	if err != nil {
		return err
	}
	showID, err := ShowIDFromIDAtProviders(stock.IDAtProviders)
	if err != nil {
		return err
	}
	api := provider.API()
	if api == nil {
		return fmt.Errorf("%w: no %s client configured", model.ErrExternalBookingFailed, provider.Class())
	}

	tickets, err := api.BookTicket(stock.Offer.VenueID, showID, booking, beneficiary)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrExternalBookingFailed, err)
	}

	for _, ticket := range tickets {
		// If our transaction fails past this point the provider keeps a
		// seat we never sold; the reconciliation job voids those.
		enqueueOrphanCandidate(rdb, stock.Offer.VenueID, ticket.Barcode)

		external := model.ExternalBooking{
			BookingID:             booking.ID,
			Barcode:               ticket.Barcode,
			Seat:                  ticket.Seat,
			AdditionalInformation: ticket.AdditionalInformation,
		}
		if err := tx.Create(&external).Error; err != nil {
			return err
		}
		booking.ExternalBookings = append(booking.ExternalBookings, external)
	}

	log.Printf("booked external tickets booking_id=%d token=%s barcodes=%d", booking.ID, booking.Token, len(tickets))
	return nil
}

// CancelExternalBooking voids the booking's tickets at the provider. For
// one-side providers the pass cannot void and the caller cancels locally
// only. Runs inside the cancellation transaction for the same atomicity
// reason as BookExternalTicket.
func CancelExternalBooking(features config.Features, booking *model.Booking, stock *model.Stock) error {
	if !booking.IsExternal() {
		return nil
	}
	provider, err := lookupCinemaProvider(features, stock.Offer.Venue.CinemaProviderClass)
	if err != nil {
		return err
	}
	if !provider.SupportsPassCancellation() {
		// CGR/EMS tickets can only be voided on the provider side.
		return nil
	}
	api := provider.API()
	if api == nil {
		return fmt.Errorf("%w: no %s client configured", model.ErrExternalBookingFailed, provider.Class())
	}

	barcodes := make([]string, 0, len(booking.ExternalBookings))
	for _, external := range booking.ExternalBookings {
		barcodes = append(barcodes, external.Barcode)
	}
	if err := api.CancelTickets(stock.Offer.VenueID, barcodes); err != nil {
		return fmt.Errorf("%w: %v", model.ErrExternalBookingFailed, err)
	}
	return nil
}

// orphanExternalBooking is a queue entry for a provider ticket whose local
// booking may not exist.
type orphanExternalBooking struct {
	VenueID   uint   `json:"venueId"`
	Barcode   string `json:"barcode"`
	Timestamp int64  `json:"timestamp"`
}

func enqueueOrphanCandidate(rdb *redis.Client, venueID uint, barcode string) {
	if rdb == nil {
		return
	}
	payload, err := json.Marshal(orphanExternalBooking{
		VenueID:   venueID,
		Barcode:   barcode,
		Timestamp: time.Now().UTC().Unix(),
	})
	if err != nil {
		return
	}
	if err := rdb.LPush(context.Background(), constants.RedisExternalBookingsName, payload).Err(); err != nil {
		// Best effort: the queue is a safety net, not the write path.
		log.Printf("external bookings queue: push failed: %v", err)
	}
}
