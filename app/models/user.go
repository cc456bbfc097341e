package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_CONSUMER         = "consumer"
	ROLE_MERCHANT         = "merchant"
	ROLE_SERVICE_PROVIDER = "service_provider"
	ROLE_ADMIN            = "admin"

	BUSINESS_TYPE_COMERCIO = "comercio"
	BUSINESS_TYPE_SERVICO  = "servico"
)

// User is a marketplace account. Merchant accounts carry the business profile
// collected during checkout plus the Stripe customer reference, which is the
// durable join key between local state and provider subscription state.
type User struct {
	ID               string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name             string         `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	Email            string         `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password         string         `gorm:"type:text" json:"-"`
	Role             string         `gorm:"type:varchar(50);default:'consumer'" json:"role" validate:"oneof=consumer merchant service_provider admin"`
	Plan             string         `gorm:"type:varchar(50);default:''" json:"plan"`
	StripeCustomerID string         `gorm:"type:varchar(191);default:null;index" json:"-"`
	BusinessName     string         `gorm:"type:varchar(200)" json:"business_name" validate:"max=200"`
	BusinessType     string         `gorm:"type:varchar(50)" json:"business_type"`
	Phone            string         `gorm:"type:varchar(30)" json:"phone" validate:"max=30"`
	Address          string         `gorm:"type:varchar(255)" json:"address" validate:"max=255"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// IsSeller reports whether the account holds one of the merchant-equivalent roles.
func (u *User) IsSeller() bool {
	return u.Role == ROLE_MERCHANT || u.Role == ROLE_SERVICE_PROVIDER
}

// RoleForBusinessType maps the declared business type to an account role.
// Unrecognized or absent values fall back to the goods-merchant role; legacy
// checkout sessions may omit the field entirely.
func RoleForBusinessType(businessType string) string {
	if businessType == BUSINESS_TYPE_SERVICO {
		return ROLE_SERVICE_PROVIDER
	}
	return ROLE_MERCHANT
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies if the provided password matches the user's stored password.
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user.
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// RandomInitialPassword returns a random credential for accounts synthesized
// during checkout reconciliation. The owner resets it through the normal
// password-recovery flow.
func RandomInitialPassword() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
