package domain

import (
	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

// AdminClaim identifies the operator performing an administrative action.
type AdminClaim struct {
	AdminID uuid.UUID `json:"admin_id"`
	Role    string    `json:"role"`
	jwt.StandardClaims
}
