package utils

import (
	"crypto/rand"
	"math/big"

	"passculture/constants"
)

// GenerateBookingToken builds the 6-character redemption code printed on the
// booking QR code. Uniqueness is enforced by the database index; callers
// retry on collision.
func GenerateBookingToken() string {
	chars := constants.BookingTokenChars
	token := make([]byte, constants.BookingTokenLength)
	max := big.NewInt(int64(len(chars)))
	for i := range token {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken
			token[i] = chars[0]
			continue
		}
		token[i] = chars[n.Int64()]
	}
	return string(token)
}
