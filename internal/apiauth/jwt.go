package apiauth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"wrkledger/pkg/domain"
	dErrors "wrkledger/pkg/domain-errors"
	"wrkledger/pkg/platform/middleware/auth"
)

// tokenClaims are the JWT claims carried by issued access tokens. The
// address claim binds the token to a ledger identity.
type tokenClaims struct {
	KeyID   string `json:"key_id"`
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// JWT creates and validates HS256 access tokens.
type JWT struct {
	signingKey []byte
	issuer     string
}

func NewJWT(signingKey, issuer string) *JWT {
	return &JWT{signingKey: []byte(signingKey), issuer: issuer}
}

func (j *JWT) GenerateAccessToken(keyID string, address domain.Address, expiresIn time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		KeyID:   keyID,
		Address: address.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(j.signingKey)
}

func (j *JWT) ValidateToken(tokenString string) (*auth.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return j.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	address, err := domain.ParseAddress(claims.Address)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid address claim")
	}
	return &auth.Claims{KeyID: claims.KeyID, Address: address}, nil
}
