package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"qiming/entity"
	"qiming/lib/apperr"
)

// Claims embeds the caller identity in the signed token. UserId and Code both
// carry the authorization code; DeviceId pins the token to the activating
// device.
type Claims struct {
	UserId   string `json:"userId"`
	DeviceId string `json:"deviceId"`
	Code     string `json:"code"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret      string
	ExpiresDays int
}

// Service signs and verifies HS256 tokens. There is no refresh flow: a lost
// token is reissued through code recovery.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func New(conf Config) (*Service, error) {
	if conf.Secret == "" {
		return nil, fmt.Errorf("token secret is empty")
	}
	days := conf.ExpiresDays
	if days <= 0 {
		days = 90
	}
	return &Service{
		secret: []byte(conf.Secret),
		ttl:    time.Duration(days) * 24 * time.Hour,
	}, nil
}

func (s *Service) Issue(userId, deviceId, code string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserId:   userId,
		DeviceId: deviceId,
		Code:     code,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry. Any failure collapses into the single
// INVALID_TOKEN error the API exposes.
func (s *Service) Verify(tokenString string) (*entity.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, apperr.InvalidToken("")
	}
	if claims.UserId == "" || claims.Code == "" {
		return nil, apperr.InvalidToken("")
	}
	return &entity.Identity{
		UserId:   claims.UserId,
		DeviceId: claims.DeviceId,
		Code:     claims.Code,
	}, nil
}
