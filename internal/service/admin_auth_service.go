package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/daksh-api/internal/models"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
)

const (
	adminID       = "admin"
	adminName     = "Super Admin"
	adminAudience = "daksh-admin"
)

// AdminAuthConfig holds the single admin credential and token settings.
type AdminAuthConfig struct {
	Email        string
	Password     string
	PasswordHash string
	Secret       string
	Issuer       string
	TokenTTL     time.Duration
}

// AdminAuthService authenticates the super admin and validates admin tokens.
type AdminAuthService struct {
	config    AdminAuthConfig
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAdminAuthService constructs the admin authentication service.
func NewAdminAuthService(config AdminAuthConfig, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *AdminAuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TokenTTL <= 0 {
		config.TokenTTL = 30 * 24 * time.Hour
	}
	return &AdminAuthService{config: config, audit: audit, validator: validate, logger: logger, now: time.Now}
}

// TokenTTL is the lifetime of issued admin tokens.
func (s *AdminAuthService) TokenTTL() time.Duration { return s.config.TokenTTL }

// Login checks the credential pair and issues an admin token.
func (s *AdminAuthService) Login(ctx context.Context, req models.AdminLoginRequest) (*models.AdminLoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	if !s.checkCredentials(req.Email, req.Password) {
		s.logger.Warn("admin login rejected", zap.String("email", req.Email), zap.String("ip", req.IP))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	info := models.AdminInfo{ID: adminID, Name: adminName, Email: s.config.Email, Role: models.RoleSuperAdmin}
	token, issuedAt, err := s.generateToken(info)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	entry := auditEntry(models.AuditActionAdminLogin, "admin", info.Email, info.ID, map[string]interface{}{"status": "success"})
	entry.IPAddress = req.IP
	entry.UserAgent = req.UserAgent
	s.audit.Record(ctx, entry)

	return &models.AdminLoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.TokenTTL.Seconds()),
		Admin:       info,
		IssuedAt:    issuedAt,
	}, nil
}

// ValidateToken parses an admin token and requires the super admin role.
func (s *AdminAuthService) ValidateToken(tokenString string) (*models.AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithAudience(adminAudience), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.AdminClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	return claims, nil
}

func (s *AdminAuthService) checkCredentials(email, password string) bool {
	if s.config.Email == "" || !strings.EqualFold(strings.TrimSpace(email), s.config.Email) {
		return false
	}
	if s.config.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.config.PasswordHash), []byte(password)) == nil
	}
	if s.config.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.config.Password), []byte(password)) == 1
}

func (s *AdminAuthService) generateToken(info models.AdminInfo) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	claims := &models.AdminClaims{
		AdminID: info.ID,
		Name:    info.Name,
		Email:   info.Email,
		Role:    info.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   info.ID,
			Audience:  jwt.ClaimStrings{adminAudience},
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}
