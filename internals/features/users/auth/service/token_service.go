package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"onboarding_backend/internals/configs"
	userModel "onboarding_backend/internals/features/users/user/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	TokenIssuer   = "onboarding-api"
	TokenAudience = "onboarding-client"

	accessTTLDefault    = 15 * time.Minute
	refreshTTLDefault   = 7 * 24 * time.Hour
	challengeTTLDefault = 5 * time.Minute

	PurposeAccess    = "access"
	PurposeRefresh   = "refresh"
	PurposeTwoFactor = "2fa"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenPurpose = errors.New("token purpose mismatch")
)

type Claims struct {
	ID              string `json:"id"`
	Email           string `json:"email,omitempty"`
	Role            string `json:"role,omitempty"`
	PermissionLevel string `json:"permission_level,omitempty"`
	Purpose         string `json:"purpose"`
	jwt.RegisteredClaims
}

// UserID parses the id claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(c.ID))
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	// jti of RefreshToken, persisted on the user
	RefreshID string `json:"-"`
}

func nowUTC() time.Time { return time.Now().UTC() }

func getJWTSecret() (string, error) {
	secret := strings.TrimSpace(configs.JWTSecret)
	if secret == "" {
		return "", errors.New("JWT_SECRET não definido")
	}
	return secret, nil
}

func getRefreshSecret() (string, error) {
	secret := strings.TrimSpace(configs.JWTRefreshSecret)
	if secret == "" {
		return getJWTSecret()
	}
	return secret, nil
}

func secretFor(purpose string) (string, error) {
	if purpose == PurposeRefresh {
		return getRefreshSecret()
	}
	return getJWTSecret()
}

func registered(subject string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    TokenIssuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{TokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

func sign(claims *Claims) (string, error) {
	secret, err := secretFor(claims.Purpose)
	if err != nil {
		return "", err
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// IssueTokenPair signs a fresh access + refresh pair for the user.
func IssueTokenPair(u *userModel.UserModel, now time.Time) (TokenPair, error) {
	id := u.ID.String()
	access := &Claims{
		ID:               id,
		Email:            u.Email,
		Role:             u.Role,
		PermissionLevel:  u.PermissionLevel,
		Purpose:          PurposeAccess,
		RegisteredClaims: registered(id, now, accessTTLDefault),
	}
	refresh := &Claims{
		ID:               id,
		Purpose:          PurposeRefresh,
		RegisteredClaims: registered(id, now, refreshTTLDefault),
	}

	at, err := sign(access)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	rt, err := sign(refresh)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:  at,
		RefreshToken: rt,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTTLDefault.Seconds()),
		RefreshID:    refresh.RegisteredClaims.ID,
	}, nil
}

// IssueChallengeToken proves the password step passed; it only unlocks
// session issuance on the second-factor endpoint.
func IssueChallengeToken(userID uuid.UUID, now time.Time) (string, error) {
	id := userID.String()
	return sign(&Claims{
		ID:               id,
		Purpose:          PurposeTwoFactor,
		RegisteredClaims: registered(id, now, challengeTTLDefault),
	})
}

// ParseToken verifies signature, expiry, issuer, audience and purpose.
func ParseToken(raw, purpose string) (*Claims, error) {
	secret, err := secretFor(purpose)
	if err != nil {
		return nil, err
	}
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	tok, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrTokenInvalid
	}
	if !claims.VerifyIssuer(TokenIssuer, true) || !claims.VerifyAudience(TokenAudience, true) {
		return nil, ErrTokenInvalid
	}
	if claims.Purpose != purpose {
		return nil, ErrTokenPurpose
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ExpiryOf reads exp without verifying; used to size blacklist entries.
func ExpiryOf(raw string) time.Time {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return nowUTC().Add(accessTTLDefault)
}
