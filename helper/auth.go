package helper

import (
	"errors"
	"fmt"
	"log"
	"time"

	"passculture/config"
	"passculture/database"
	"passculture/model"
	"passculture/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var JwtSecret = []byte(config.Config("JWT_SECRET"))

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func GetUserByEmail(email string) (*model.User, error) {
	db := database.DB
	var user model.User
	if err := db.Where(&model.User{Email: email}).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func GenerateAccessToken(tokenClaim model.TokenClaim) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims["userId"] = tokenClaim.UserId
	claims["email"] = tokenClaim.Email
	claims["role"] = tokenClaim.Role
	if tokenClaim.VenueId != nil {
		claims["venueId"] = *tokenClaim.VenueId
	}
	claims["exp"] = time.Now().Add(time.Minute * 60).Unix()

	t, err := token.SignedString(JwtSecret)
	return t, err
}

func GenerateRefreshToken(tokenClaim model.TokenClaim) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims["userId"] = tokenClaim.UserId
	claims["email"] = tokenClaim.Email
	claims["exp"] = time.Now().Add(time.Hour * 24 * 7).Unix()

	t, err := token.SignedString(JwtSecret)
	return t, err
}

func ParseToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return JwtSecret, nil
	})

	return token, err
}

// GetInfoUserFromToken resolves the authenticated user behind the request.
// Returns the claim, the user row with deposits, and the role shortcuts.
// A zero claim means the response was already written.
func GetInfoUserFromToken(c *fiber.Ctx) (model.TokenClaim, model.User, bool, bool, bool) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing token", errors.New("no token in context"))
		return model.TokenClaim{}, model.User{}, false, false, false
	}
	tokenClaim := token.Claims.(jwt.MapClaims)
	userId := uint(tokenClaim["userId"].(float64))
	email, _ := tokenClaim["email"].(string)

	var user model.User
	db := database.DB
	if err := db.Preload("Deposits").First(&user, userId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("user not found: id=%d", userId)
			utils.ErrorResponse(c, fiber.StatusUnauthorized, "Compte inconnu", err)
		} else {
			utils.ErrorResponse(c, fiber.StatusInternalServerError, "Erreur interne", err)
		}
		return model.TokenClaim{}, model.User{}, false, false, false
	}

	claim := model.TokenClaim{
		UserId: userId,
		Email:  email,
		Role:   user.Role,
	}
	if venueId, ok := tokenClaim["venueId"].(float64); ok {
		v := uint(venueId)
		claim.VenueId = &v
	}

	return claim,
		user,
		user.IsBeneficiary(),
		user.Role == model.RolePro,
		user.Role == model.RoleAdmin
}
