package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// FallbackJWTSecret se usa cuando JWT_SECRET no esta configurado.
// Su uso es un error de despliegue y se reporta al arrancar.
const FallbackJWTSecret = "fallback-secret"

const (
	DefaultTokenTTL  = 7 * 24 * time.Hour
	RememberTokenTTL = 30 * 24 * time.Hour
)

// JWTService emite y valida tokens de sesion sin estado.
type JWTService struct {
	secret        []byte
	usingFallback bool
	defaultTTL    time.Duration
	rememberTTL   time.Duration
	now           func() time.Time
}

// Claims lleva solo el id de usuario; el resto se resuelve contra el almacen.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
)

func NewJWTService(secret string, defaultTTL, rememberTTL time.Duration) *JWTService {
	usingFallback := strings.TrimSpace(secret) == ""
	if usingFallback {
		secret = FallbackJWTSecret
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTokenTTL
	}
	if rememberTTL <= 0 {
		rememberTTL = RememberTokenTTL
	}
	return &JWTService{
		secret:        []byte(secret),
		usingFallback: usingFallback,
		defaultTTL:    defaultTTL,
		rememberTTL:   rememberTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// UsingFallbackSecret indica que se firma con el secreto literal de respaldo.
func (s *JWTService) UsingFallbackSecret() bool {
	return s.usingFallback
}

// TTL devuelve la vigencia segun la opcion "recordarme".
func (s *JWTService) TTL(remember bool) time.Duration {
	if remember {
		return s.rememberTTL
	}
	return s.defaultTTL
}

// Issue firma un token HS256 para userID valido por ttl.
func (s *JWTService) Issue(userID string, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, ErrJWTInvalid
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := s.now()
	exp := now.Add(ttl)
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify distingue tokens vencidos (ErrJWTExpired) de cualquier otro fallo.
func (s *JWTService) Verify(tokenString string) (Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrJWTInvalid
	}
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) parseToken(tokenString string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}
