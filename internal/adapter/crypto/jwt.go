package crypto

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/fcv-2025.net/grader/internal/config"
	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

var _ primary.TokenVerifier = (*JWTServiceImpl)(nil)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingRole  = errors.New("token carries no known role")
)

type claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTServiceImpl verifies HMAC tokens minted by the platform's login service
type JWTServiceImpl struct {
	HMACSecretKey []byte
	Issuer        string
	now           func() time.Time
}

func NewJWTService(jwtConfig *config.JwtConfig) (*JWTServiceImpl, error) {
	if jwtConfig.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTServiceImpl{
		HMACSecretKey: []byte(jwtConfig.Secret),
		Issuer:        jwtConfig.Issuer,
		now:           time.Now,
	}, nil
}

func (j *JWTServiceImpl) Verify(_ context.Context, token string) (domain.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		return j.HMACSecretKey, nil
	}, opts...)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || c.Subject == "" {
		return domain.Principal{}, ErrInvalidToken
	}

	switch c.Role {
	case domain.RoleStudent, domain.RoleInstructor, domain.RoleAdmin:
	default:
		return domain.Principal{}, ErrMissingRole
	}
	return domain.Principal{UserID: c.Subject, Role: c.Role}, nil
}

// GenerateTokenHMAC mints a token for p; used by the dev token command and tests
func (j *JWTServiceImpl) GenerateTokenHMAC(p domain.Principal, ttl time.Duration) (string, error) {
	now := j.now()
	c := claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(j.HMACSecretKey)
}
