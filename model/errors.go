package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError is a field-scoped rejection surfaced to the client under
// the field's key, mirroring the shape of validator errors.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrBookingIsAlreadyUsed      = errors.New("booking has already been used")
	ErrBookingIsAlreadyCancelled = errors.New("booking has already been cancelled")
	ErrBookingIsAlreadyRefunded  = errors.New("booking has already been reimbursed")
	ErrBookingIsNotCancelled     = errors.New("booking is not cancelled")
	ErrBookingNotConfirmed       = errors.New("booking is not confirmed yet")
	ErrBookingIsConfirmed        = errors.New("booking can no longer be cancelled")
	ErrBookingHasActivationCode  = errors.New("booking has an activation code attached")
	ErrDepositCreditExpired      = errors.New("the credit attached to this booking has expired")

	ErrBookingDoesNotBelongToUser = errors.New("booking does not belong to this user")
	ErrStockDoesNotExist          = errors.New("stock does not exist")
	ErrStockIsNotBookable         = errors.New("stock is not bookable")
	ErrOfferCategoryNotBookable   = errors.New("offer category is not bookable by this user")
	ErrNoActivationCodeAvailable  = errors.New("no activation code is available for this stock")
	ErrInsufficientFunds          = errors.New("insufficient funds")

	ErrNonCancellablePricing = errors.New("booking pricing is already processed")

	ErrProviderDisabled             = errors.New("cinema provider is disabled")
	ErrUnknownProvider              = errors.New("unknown cinema provider")
	ErrShowIDNotFound               = errors.New("show id not found in stock provider reference")
	ErrExternalBookingFailed        = errors.New("external booking failed")
	ErrOneSideCancellationForbidden = errors.New("one-side cancellation is not allowed for this booking")
)

type ExpenseDomain string

const (
	ExpenseDomainAll      ExpenseDomain = "all"
	ExpenseDomainDigital  ExpenseDomain = "digital"
	ExpenseDomainPhysical ExpenseDomain = "physical"
)

// ExpenseLimitError reports a domain sub-cap violation, carrying the cap's
// ceiling for the user-facing message.
type ExpenseLimitError struct {
	Domain  ExpenseDomain
	Ceiling decimal.Decimal
}

func (e *ExpenseLimitError) Error() string {
	return fmt.Sprintf("booking would exceed the %s expense limit of %s", e.Domain, e.Ceiling.StringFixed(2))
}
