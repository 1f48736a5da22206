package model

import "time"

const (
	RoleBeneficiary         = "BENEFICIARY"
	RoleUnderageBeneficiary = "UNDERAGE_BENEFICIARY"
	RolePro                 = "PRO"
	RoleAdmin               = "ADMIN"
)

type User struct {
	DTO
	Email       string     `gorm:"size:120;uniqueIndex" validate:"required,email" json:"email"`
	Password    string     `gorm:"size:100" json:"-"`
	FirstName   string     `gorm:"size:60" json:"firstName"`
	LastName    string     `gorm:"size:60" json:"lastName"`
	Role        string     `gorm:"size:30;not null;default:'BENEFICIARY'" json:"role"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	IsActive    bool       `gorm:"not null;default:true" json:"isActive"`

	Deposits []Deposit `gorm:"foreignKey:UserID" json:"-"`
}

func (u *User) IsBeneficiary() bool {
	return u.Role == RoleBeneficiary || u.Role == RoleUnderageBeneficiary
}

func (u *User) IsUnderage() bool {
	return u.Role == RoleUnderageBeneficiary
}

// ActiveDeposit returns the user's current deposit, nil when every grant has
// expired or none was ever issued.
func (u *User) ActiveDeposit(now time.Time) *Deposit {
	for i := range u.Deposits {
		d := &u.Deposits[i]
		if d.ExpirationDate == nil || d.ExpirationDate.After(now) {
			return d
		}
	}
	return nil
}
