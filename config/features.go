package config

import "os"

// Features carries the runtime feature flags consumed by the booking engine.
// Flags are loaded once at startup and passed explicitly to the operations
// that need them instead of being read from a global.
type Features struct {
	// UpdateBookingUsed gates the auto-mark-as-used batch job.
	UpdateBookingUsed bool

	// Per cinema provider: an integration switch and a kill switch for
	// external bookings. Both must allow the call for a ticket to be
	// booked or voided at the provider.
	EnableCDS                    bool
	DisableCDSExternalBookings   bool
	EnableBoost                  bool
	DisableBoostExternalBookings bool
	EnableCGR                    bool
	DisableCGRExternalBookings   bool
	EnableEMS                    bool
	DisableEMSExternalBookings   bool
}

// LoadFeatures builds the flag set from the environment. Missing variables
// mean "off", so a bare environment disables every integration.
func LoadFeatures() Features {
	return Features{
		UpdateBookingUsed:            envBool("FF_UPDATE_BOOKING_USED"),
		EnableCDS:                    envBool("FF_ENABLE_CDS_IMPLEMENTATION"),
		DisableCDSExternalBookings:   envBool("FF_DISABLE_CDS_EXTERNAL_BOOKINGS"),
		EnableBoost:                  envBool("FF_ENABLE_BOOST_API_INTEGRATION"),
		DisableBoostExternalBookings: envBool("FF_DISABLE_BOOST_EXTERNAL_BOOKINGS"),
		EnableCGR:                    envBool("FF_ENABLE_CGR_INTEGRATION"),
		DisableCGRExternalBookings:   envBool("FF_DISABLE_CGR_EXTERNAL_BOOKINGS"),
		EnableEMS:                    envBool("FF_ENABLE_EMS_INTEGRATION"),
		DisableEMSExternalBookings:   envBool("FF_DISABLE_EMS_EXTERNAL_BOOKINGS"),
	}
}

func envBool(key string) bool {
	v := os.Getenv(key)
	return v == "1" || v == "true" || v == "TRUE"
}
