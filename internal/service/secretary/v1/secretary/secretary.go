// Package secretary provides password hashing and session token handling.
package secretary

import (
	"errors"
	"fmt"
	"time"

	"github.com/danilovkiri/dk-go-panel/internal/config"
	"github.com/danilovkiri/dk-go-panel/internal/models/modelclaims"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is returned for tokens that parse but carry no usable identity.
var ErrInvalidToken = errors.New("invalid access token")

// Secretary defines object structure and its attributes.
type Secretary struct {
	key    []byte
	ttl    time.Duration
	admins map[string]struct{}
	cost   int
	now    func() time.Time
}

// NewSecretaryService initializes a secretary service with signing and hashing functionality.
func NewSecretaryService(c *config.SecretConfig) (*Secretary, error) {
	if c == nil {
		return nil, errors.New("nil secret config was passed to secretary initializer")
	}
	if c.SecretKey == "" {
		return nil, errors.New("empty secret key was passed to secretary initializer")
	}
	admins := make(map[string]struct{}, len(c.AdminUsernames))
	for _, name := range c.AdminUsernames {
		if name != "" {
			admins[name] = struct{}{}
		}
	}
	return &Secretary{
		key:    []byte(c.SecretKey),
		ttl:    c.TokenTTL,
		admins: admins,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}, nil
}

// HashPassword returns a salted bcrypt hash of the password.
func (s *Secretary) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func (s *Secretary) CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GetTokenForUser issues a signed session token for username.
func (s *Secretary) GetTokenForUser(username string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &modelclaims.SessionClaims{
		Username: username,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Subject:   username,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
	})
	return token.SignedString(s.key)
}

// ValidateToken checks the token signature and expiry and returns the username it carries.
func (s *Secretary) ValidateToken(accessToken string) (string, error) {
	token, err := jwt.ParseWithClaims(accessToken, &modelclaims.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return "", err
	}
	if claims, ok := token.Claims.(*modelclaims.SessionClaims); ok && token.Valid && claims.Username != "" {
		return claims.Username, nil
	}
	return "", ErrInvalidToken
}

// IsAdmin reports whether username may administer funding requests.
func (s *Secretary) IsAdmin(username string) bool {
	_, ok := s.admins[username]
	return ok
}
