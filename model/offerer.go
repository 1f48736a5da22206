package model

type Offerer struct {
	DTO
	Name  string `gorm:"size:140;not null" json:"name"`
	Siren string `gorm:"size:9;uniqueIndex" json:"siren"`

	Venues []Venue `gorm:"foreignKey:OffererID" json:"-"`
}

type Venue struct {
	DTO
	Name         string `gorm:"size:140;not null" json:"name"`
	PublicName   string `gorm:"size:140" json:"publicName"`
	OffererID    uint   `gorm:"not null;index" json:"offererId"`
	BookingEmail string `gorm:"size:120" json:"bookingEmail"`
	IsVirtual    bool   `gorm:"not null;default:false" json:"isVirtual"`

	// CinemaProviderClass names the venue's active cinema ticketing
	// integration (CDSStocks, BoostStocks, CGRStocks, EMSStocks).
	// Empty when the venue has none.
	CinemaProviderClass string `gorm:"size:40" json:"cinemaProviderClass"`

	Offerer Offerer `gorm:"foreignKey:OffererID" json:"-"`
}
