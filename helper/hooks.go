package helper

import (
	"log"

	"passculture/model"
)

// Post-commit collaborator hooks. Each is a direct synchronous call made
// after the booking transaction committed; the booking row is the source of
// truth, so a collaborator failure is logged and never propagated. main
// wires the real implementations.
var (
	// OnStockUpdate pushes fresh availability to realtime subscribers.
	OnStockUpdate func(offerID uint)

	// UpdateExternalUser syncs the beneficiary's CRM attributes.
	UpdateExternalUser func(user *model.User) error

	// UpdateExternalPro syncs the venue's CRM attributes.
	UpdateExternalPro func(bookingEmail string) error

	// SendCancelBookingPushNotification notifies the beneficiary's device.
	SendCancelBookingPushNotification func(bookingIDs []uint) error
)

func notifyStockUpdate(offerID uint) {
	if OnStockUpdate != nil {
		OnStockUpdate(offerID)
	}
}

func syncExternalUser(user *model.User) {
	if UpdateExternalUser == nil {
		return
	}
	if err := UpdateExternalUser(user); err != nil {
		log.Printf("crm: user sync failed user_id=%d: %v", user.ID, err)
	}
}

func syncExternalPro(bookingEmail string) {
	if UpdateExternalPro == nil || bookingEmail == "" {
		return
	}
	if err := UpdateExternalPro(bookingEmail); err != nil {
		log.Printf("crm: pro sync failed email=%s: %v", bookingEmail, err)
	}
}

func pushCancelNotification(bookingIDs []uint) {
	if SendCancelBookingPushNotification == nil {
		return
	}
	if err := SendCancelBookingPushNotification(bookingIDs); err != nil {
		log.Printf("push: cancel notification failed: %v", err)
	}
}
