// Package session issues and verifies the signed cookie that identifies the
// logged-in tutor. Nothing is stored server side.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/exeats-api/internal/models"
)

// ErrInvalidSession is returned for missing, expired or tampered cookies.
var ErrInvalidSession = errors.New("invalid session")

// Claims identifies the tutor holding the cookie.
type Claims struct {
	TutorID uint
	Email   string
	Expires time.Time
}

// Manager signs session values with HS256.
type Manager struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	now        func() time.Time
}

// NewManager constructs a manager. A non-positive ttl falls back to two weeks.
func NewManager(secret string, ttl time.Duration, cookieName string) *Manager {
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	if strings.TrimSpace(cookieName) == "" {
		cookieName = "exeats_session"
	}
	return &Manager{
		secret:     []byte(secret),
		ttl:        ttl,
		cookieName: cookieName,
		now:        time.Now,
	}
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Issue returns a signed session value for tutor and its expiry.
func (m *Manager) Issue(tutor models.Tutor) (string, time.Time, error) {
	issuedAt := m.now()
	expires := issuedAt.Add(m.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(tutor.ID), 10),
		"email": tutor.Email,
		"iat":   issuedAt.Unix(),
		"exp":   expires.Unix(),
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies value and returns its claims.
func (m *Manager) Parse(value string) (Claims, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Claims{}, ErrInvalidSession
	}

	token, err := jwt.Parse(value, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidSession
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidSession
	}

	subject, err := mapClaims.GetSubject()
	if err != nil {
		return Claims{}, ErrInvalidSession
	}
	id, err := strconv.ParseUint(subject, 10, 64)
	if err != nil || id == 0 {
		return Claims{}, ErrInvalidSession
	}

	email, _ := mapClaims["email"].(string)
	if email == "" {
		return Claims{}, ErrInvalidSession
	}

	claims := Claims{TutorID: uint(id), Email: email}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.Expires = exp.Time
	}
	return claims, nil
}
