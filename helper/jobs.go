package helper

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"passculture/config"
	"passculture/constants"
	"passculture/database"
	"passculture/model"

	"github.com/go-co-op/gocron/v2"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

var (
	bookingScheduler *cron.Cron
	archiveScheduler gocron.Scheduler

	jobRedis    *redis.Client
	jobFeatures config.Features
)

// StartBookingScheduler runs the reconciliation jobs: the frequent ones on
// cron, the daily archive on gocron.
func StartBookingScheduler(rdb *redis.Client, features config.Features) {
	jobRedis = rdb
	jobFeatures = features

	bookingScheduler = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))

	if _, err := bookingScheduler.AddFunc("* * * * *", runCancelUnstoredExternalBookings); err != nil {
		log.Printf("scheduler: external bookings job: %v", err)
		return
	}
	if _, err := bookingScheduler.AddFunc("*/5 * * * *", runAutoMarkAsUsedAfterEvent); err != nil {
		log.Printf("scheduler: auto-mark-used job: %v", err)
		return
	}
	bookingScheduler.Start()

	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.FixedZone("CET", 1*3600)),
	)
	if err != nil {
		log.Fatal(err)
	}
	archiveScheduler = s
	_, err = s.NewJob(
		gocron.DailyJob(
			1,
			gocron.NewAtTimes(
				gocron.NewAtTime(3, 0, 0),
			),
		),
		gocron.NewTask(runArchiveOldActivationCodeBookings),
	)
	if err != nil {
		log.Fatal(err)
	}
	s.Start()
	log.Println("booking schedulers started")
}

func StopBookingScheduler() {
	if bookingScheduler != nil {
		bookingScheduler.Stop()
	}
	if archiveScheduler != nil {
		_ = archiveScheduler.Shutdown()
	}
}

func runAutoMarkAsUsedAfterEvent() {
	if err := AutoMarkAsUsedAfterEvent(jobFeatures); err != nil {
		log.Printf("auto-mark-used: %v", err)
	}
}

func runArchiveOldActivationCodeBookings() {
	if err := ArchiveOldActivationCodeBookings(); err != nil {
		log.Printf("archive activation-code bookings: %v", err)
	}
}

func runCancelUnstoredExternalBookings() {
	if err := CancelUnstoredExternalBookings(jobRedis, jobFeatures); err != nil {
		log.Printf("cancel unstored external bookings: %v", err)
	}
}

// RecomputeBookedQuantity rebuilds the denormalized counter of each stock
// from its bookings. The NOT-CANCELLED condition must stay in the JOIN: in
// the WHERE it would drop stocks whose bookings are all cancelled, leaving
// their counter stale instead of resetting it to zero.
func RecomputeBookedQuantity(stockIDs []uint) error {
	if len(stockIDs) == 0 {
		return nil
	}
	result := database.DB.Exec(`
		WITH bookings_per_stock AS (
			SELECT stocks.id AS stock_id,
			       COALESCE(SUM(bookings.quantity), 0) AS total_bookings
			FROM stocks
			LEFT JOIN bookings
				ON bookings.stock_id = stocks.id
				AND bookings.status != 'CANCELLED'
			WHERE stocks.id IN ?
			GROUP BY stocks.id
		)
		UPDATE stocks
		SET booked_quantity = bookings_per_stock.total_bookings
		FROM bookings_per_stock
		WHERE stocks.id = bookings_per_stock.stock_id
		  AND stocks.booked_quantity != bookings_per_stock.total_bookings
	`, stockIDs)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("recomputed booked quantity for %d stocks", result.RowsAffected)
	}
	return nil
}

// AutoMarkAsUsedAfterEvent redeems CONFIRMED bookings whose event ended
// more than 48 hours ago, on the assumption the beneficiary attended.
func AutoMarkAsUsedAfterEvent(features config.Features) error {
	if !features.UpdateBookingUsed {
		return nil
	}
	now := time.Now().UTC()
	threshold := now.Add(-constants.AutoUseAfterEventTimeDelay)
	result := database.DB.Exec(`
		UPDATE bookings
		SET status = ?, date_used = ?, validation_author_type = ?
		FROM stocks
		WHERE bookings.stock_id = stocks.id
		  AND bookings.status = ?
		  AND stocks.beginning_datetime IS NOT NULL
		  AND stocks.beginning_datetime < ?
	`, model.BookingUsed, now, model.ValidatedAuto, model.BookingConfirmed, threshold)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("auto-marked %d bookings as used", result.RowsAffected)
	}
	return nil
}

// ArchiveOldActivationCodeBookings hides digital code bookings from the
// beneficiary's ongoing list 30 days after creation.
func ArchiveOldActivationCodeBookings() error {
	cutoff := time.Now().UTC().Add(-constants.ArchiveDelay)
	result := database.DB.Exec(`
		UPDATE bookings
		SET display_as_ended = true
		WHERE id IN (
			SELECT bookings.id
			FROM bookings
			JOIN stocks ON stocks.id = bookings.stock_id
			JOIN offers ON offers.id = stocks.offer_id
			JOIN activation_codes ON activation_codes.booking_id = bookings.id
			WHERE offers.url != ''
			  AND bookings.date_created < ?
			  AND NOT bookings.display_as_ended
		)
	`, cutoff)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("archived %d activation-code bookings", result.RowsAffected)
	}
	return nil
}

// CancelUnstoredExternalBookings drains the orphan barcode queue. A barcode
// with no ExternalBooking row means the provider sold a seat whose local
// booking never committed; those tickets are voided at the provider. Fresh
// entries go back on the queue: their transaction may still be in flight.
func CancelUnstoredExternalBookings(rdb *redis.Client, features config.Features) error {
	if rdb == nil {
		return nil
	}
	ctx := context.Background()

	length, err := rdb.LLen(ctx, constants.RedisExternalBookingsName).Result()
	if err != nil {
		return err
	}

	for i := int64(0); i < length; i++ {
		payload, err := rdb.RPop(ctx, constants.RedisExternalBookingsName).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}

		var item orphanExternalBooking
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			log.Printf("external bookings queue: bad payload dropped: %v", err)
			continue
		}

		age := time.Since(time.Unix(item.Timestamp, 0))
		if age < constants.ExternalBookingsMinimumItemAgeQueue {
			// Too young to judge, its transaction may still commit.
			rdb.LPush(ctx, constants.RedisExternalBookingsName, payload)
			return nil
		}

		var stored int64
		err = database.DB.Model(&model.ExternalBooking{}).
			Where("barcode = ?", item.Barcode).
			Count(&stored).Error
		if err != nil {
			rdb.LPush(ctx, constants.RedisExternalBookingsName, payload)
			return err
		}
		if stored > 0 {
			continue
		}

		if err := cancelOrphanTicket(features, item); err != nil {
			log.Printf("external bookings queue: void barcode %s: %v", item.Barcode, err)
			rdb.LPush(ctx, constants.RedisExternalBookingsName, payload)
		}
	}
	return nil
}

func cancelOrphanTicket(features config.Features, item orphanExternalBooking) error {
	var venue model.Venue
	if err := database.DB.First(&venue, item.VenueID).Error; err != nil {
		return err
	}
	provider, err := lookupCinemaProvider(features, venue.CinemaProviderClass)
	if err != nil {
		return err
	}
	if !provider.SupportsPassCancellation() {
		// Nothing we can do from this side; the provider reconciles.
		return nil
	}
	api := provider.API()
	if api == nil {
		return model.ErrExternalBookingFailed
	}
	if err := api.CancelTickets(item.VenueID, []string{item.Barcode}); err != nil {
		return err
	}
	log.Printf("voided orphan external ticket barcode=%s venue_id=%d", item.Barcode, item.VenueID)
	return nil
}
