package helper

import (
	"errors"

	"passculture/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetAndLockStock opens a FOR UPDATE lock on the stock row for the duration
// of the enclosing transaction. Two concurrent bookings of the same stock
// serialize on this lock instead of racing on BookedQuantity. The caller
// must commit or roll back promptly: a validation failure has to release
// the lock rather than starve concurrent bookers.
func GetAndLockStock(tx *gorm.DB, stockID uint) (*model.Stock, error) {
	var stock model.Stock
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&stock, stockID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrStockDoesNotExist
		}
		return nil, err
	}
	// The offer and venue ride along unlocked; only the stock row needs
	// the lock, and FOR UPDATE cannot span an outer join.
	if err := tx.Preload("Venue").First(&stock.Offer, stock.OfferID).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

// GetAndLockUser serializes bookings of the same beneficiary across stocks,
// so that two concurrent bookings cannot both pass the credit check against
// a stale balance.
func GetAndLockUser(tx *gorm.DB, userID uint) (*model.User, error) {
	var user model.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, userID).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("user_id = ?", userID).Find(&user.Deposits).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
