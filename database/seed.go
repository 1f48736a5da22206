package database

import (
	"log"
	"time"

	"passculture/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func SeedData(db *gorm.DB) {
	bytes, err := bcrypt.GenerateFromPassword([]byte("user@AZERTY123"), 10)
	hashPassword := string(bytes)
	if err != nil {
		hashPassword = "user@AZERTY123"
	}

	users := []model.User{
		{Email: "admin@example.com", Password: hashPassword, Role: model.RoleAdmin, IsActive: true},
		{Email: "pro@example.com", Password: hashPassword, Role: model.RolePro, IsActive: true},
		{Email: "beneficiary@example.com", Password: hashPassword, Role: model.RoleBeneficiary, IsActive: true},
	}
	for _, user := range users {
		if err := db.Where(model.User{Email: user.Email}).FirstOrCreate(&user).Error; err != nil {
			log.Println("failed to seed user:", user.Email, "error:", err)
			continue
		}
		if user.Role == model.RoleBeneficiary {
			expiration := time.Now().AddDate(2, 0, 0)
			deposit := model.Deposit{
				UserID:         user.ID,
				Amount:         decimal.NewFromInt(300),
				Type:           model.DepositGrant18,
				Version:        2,
				ExpirationDate: &expiration,
			}
			if err := db.Where(model.Deposit{UserID: user.ID}).FirstOrCreate(&deposit).Error; err != nil {
				log.Println("failed to seed deposit for:", user.Email, "error:", err)
			}
		}
	}

	offerer := model.Offerer{Name: "Structure culturelle exemple", Siren: "123456789"}
	if err := db.Where(model.Offerer{Siren: offerer.Siren}).FirstOrCreate(&offerer).Error; err != nil {
		log.Println("failed to seed offerer:", err)
		return
	}
	venue := model.Venue{
		Name:         "Librairie exemple",
		OffererID:    offerer.ID,
		BookingEmail: "pro@example.com",
	}
	if err := db.Where(model.Venue{Name: venue.Name, OffererID: offerer.ID}).FirstOrCreate(&venue).Error; err != nil {
		log.Println("failed to seed venue:", err)
		return
	}

	offer := model.Offer{
		Name:        "Un livre exemple",
		Subcategory: "LIVRE_PAPIER",
		VenueID:     venue.ID,
		IsActive:    true,
	}
	offer.Slug = offer.ComputeSlug()
	if err := db.Where(model.Offer{Name: offer.Name, VenueID: venue.ID}).FirstOrCreate(&offer).Error; err != nil {
		log.Println("failed to seed offer:", err)
		return
	}
	quantity := int64(10)
	stock := model.Stock{
		OfferID:  offer.ID,
		Price:    decimal.NewFromInt(12),
		Quantity: &quantity,
	}
	if err := db.Where(model.Stock{OfferID: offer.ID}).FirstOrCreate(&stock).Error; err != nil {
		log.Println("failed to seed stock:", err)
	}

	cinemaVenue := model.Venue{
		Name:                "Cinéma exemple",
		OffererID:           offerer.ID,
		BookingEmail:        "pro@example.com",
		CinemaProviderClass: "CDSStocks",
	}
	if err := db.Where(model.Venue{Name: cinemaVenue.Name, OffererID: offerer.ID}).FirstOrCreate(&cinemaVenue).Error; err != nil {
		log.Println("failed to seed cinema venue:", err)
		return
	}
	screening := model.Offer{
		Name:                    "Une séance de cinéma exemple",
		Subcategory:             "SEANCE_CINE",
		VenueID:                 cinemaVenue.ID,
		IsActive:                true,
		IsEvent:                 true,
		IsDuo:                   true,
		RequiresCinemaTicketing: true,
	}
	screening.Slug = screening.ComputeSlug()
	if err := db.Where(model.Offer{Name: screening.Name, VenueID: cinemaVenue.ID}).FirstOrCreate(&screening).Error; err != nil {
		log.Println("failed to seed screening offer:", err)
		return
	}
	beginning := time.Now().AddDate(0, 0, 7)
	limit := beginning.Add(-1 * time.Hour)
	seats := int64(80)
	screeningStock := model.Stock{
		OfferID:              screening.ID,
		Price:                decimal.NewFromInt(7),
		Quantity:             &seats,
		BeginningDatetime:    &beginning,
		BookingLimitDatetime: &limit,
		IDAtProviders:        uuid.NewString() + "#101",
	}
	if err := db.Where(model.Stock{OfferID: screening.ID}).FirstOrCreate(&screeningStock).Error; err != nil {
		log.Println("failed to seed screening stock:", err)
	}
}
