package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"regportal/pkg/domain"
	dErrors "regportal/pkg/domain-errors"
)

// Claims carries the session facts the portal needs on every request: who the
// caller is, whether they are regulator staff, and which capability strings
// their session holds.
type Claims struct {
	UserID      string   `json:"user_id"`
	Internal    bool     `json:"internal"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// JWTService handles access token creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey, issuer, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateAccessToken signs a token for the given actor. Token issuance flows
// live outside this service; this exists for tooling and tests.
func (s *JWTService) GenerateAccessToken(actor domain.Actor, expiresIn time.Duration) (string, error) {
	perms := make([]string, len(actor.Permissions))
	for i, p := range actor.Permissions {
		perms[i] = string(p)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:      actor.ID.String(),
		Internal:    actor.Internal,
		Permissions: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken parses and verifies a bearer token, returning the actor it
// represents.
func (s *JWTService) ValidateToken(tokenString string) (domain.Actor, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	userID, err := domain.ParseUserID(claims.UserID)
	if err != nil {
		return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "token missing user id")
	}

	perms := make([]domain.Permission, len(claims.Permissions))
	for i, p := range claims.Permissions {
		perms[i] = domain.Permission(p)
	}
	return domain.Actor{ID: userID, Internal: claims.Internal, Permissions: perms}, nil
}
