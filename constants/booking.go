package constants

import "time"

// Cancellation window policy. An event booking stays cancellable until the
// earlier of "48h before the event" and "48h after booking", never earlier
// than the booking itself.
const (
	ConfirmBookingBeforeEventDelay   = 48 * time.Hour
	ConfirmBookingAfterCreationDelay = 48 * time.Hour
)

// AutoUseAfterEventTimeDelay is how long after an event start the batch job
// waits before marking its confirmed bookings as used.
const AutoUseAfterEventTimeDelay = 48 * time.Hour

// ArchiveDelay is the age after which activation-code bookings on digital
// offers are flagged as ended for display purposes.
const ArchiveDelay = 30 * 24 * time.Hour

// BookingTokenLength is the length of the public redemption code printed in
// the QR payload. The alphabet excludes ambiguous characters.
const (
	BookingTokenLength = 6
	BookingTokenChars  = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// QRCodeVersion pins the payload format consumed by scanning clients:
// PASSCULTURE:v3;TOKEN:<token>
const QRCodeVersion = 3

// Redis queue holding external tickets issued at a provider without a
// matching local booking, waiting to be voided.
const (
	RedisExternalBookingsName           = "api:external_bookings:barcodes"
	ExternalBookingsMinimumItemAgeQueue = 60 * time.Second
)

// Providers whose tickets cannot be voided from our side: the booking is
// cancelled locally only and the provider support handles their side.
var OneSideBookingsCancellationProviders = []string{
	"CGRStocks",
	"EMSStocks",
}

// OneSideCancellationEventAgeLimit bounds how long after an event a one-side
// cancellation remains allowed from the backoffice.
const OneSideCancellationEventAgeLimit = 15 * 24 * time.Hour
