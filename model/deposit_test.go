package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDepositCaps(t *testing.T) {
	grant18v2 := Deposit{Type: DepositGrant18, Version: 2}
	assert.True(t, grant18v2.DigitalCap().Equal(decimal.NewFromInt(100)))
	assert.Nil(t, grant18v2.PhysicalCap())

	grant18v1 := Deposit{Type: DepositGrant18, Version: 1}
	assert.True(t, grant18v1.DigitalCap().Equal(decimal.NewFromInt(200)))
	assert.True(t, grant18v1.PhysicalCap().Equal(decimal.NewFromInt(200)))

	underage := Deposit{Type: DepositGrant1517, Version: 1}
	assert.Nil(t, underage.DigitalCap())
	assert.Nil(t, underage.PhysicalCap())
}

func TestDepositCapApplies(t *testing.T) {
	grant18 := Deposit{Type: DepositGrant18, Version: 1}
	digitalOffer := Offer{URL: "https://example.com/ebook"}
	physicalOffer := Offer{}
	eventOffer := Offer{IsEvent: true}

	assert.True(t, grant18.DigitalCapApplies(&digitalOffer))
	assert.False(t, grant18.DigitalCapApplies(&physicalOffer))

	assert.True(t, grant18.PhysicalCapApplies(&physicalOffer))
	assert.False(t, grant18.PhysicalCapApplies(&digitalOffer))
	// events are neither digital nor physical goods
	assert.False(t, grant18.PhysicalCapApplies(&eventOffer))

	underage := Deposit{Type: DepositGrant1517}
	assert.False(t, underage.DigitalCapApplies(&digitalOffer))
	assert.False(t, underage.PhysicalCapApplies(&physicalOffer))
}

func TestDepositIsExpired(t *testing.T) {
	now := time.Now().UTC()

	open := Deposit{}
	assert.False(t, open.IsExpired(now))

	past := now.Add(-time.Minute)
	expired := Deposit{ExpirationDate: &past}
	assert.True(t, expired.IsExpired(now))

	future := now.Add(time.Minute)
	live := Deposit{ExpirationDate: &future}
	assert.False(t, live.IsExpired(now))
}

func TestUserActiveDeposit(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	user := User{Deposits: []Deposit{
		{DTO: DTO{ID: 1}, ExpirationDate: &past},
		{DTO: DTO{ID: 2}, ExpirationDate: &future},
	}}
	deposit := user.ActiveDeposit(now)
	assert.NotNil(t, deposit)
	assert.Equal(t, uint(2), deposit.ID)

	broke := User{Deposits: []Deposit{{ExpirationDate: &past}}}
	assert.Nil(t, broke.ActiveDeposit(now))
}
