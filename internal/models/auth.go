package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleSuperAdmin is the only admin role; it gates the /dashboard area.
const RoleSuperAdmin = "superadmin"

// AdminLoginRequest holds the admin credential pair.
type AdminLoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// AdminLoginResponse returns the issued admin token.
type AdminLoginResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresIn   int64     `json:"expiresIn"`
	Admin       AdminInfo `json:"admin"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// AdminInfo describes the authenticated admin.
type AdminInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AdminClaims is the JWT payload of the admin session token.
type AdminClaims struct {
	AdminID string `json:"admin_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// StudentLoginRequest is the username/password login payload.
type StudentLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// QRLoginRequest carries the raw text scanned from a login QR code.
type QRLoginRequest struct {
	Payload string `json:"payload" validate:"required"`
}

// SelectStudentRequest resolves a multi-match login.
type SelectStudentRequest struct {
	Index *int `json:"index" validate:"required,min=0"`
}
