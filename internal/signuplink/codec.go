// Package signuplink derives the per-student token embedded in signup links
// and resolves tokens back to students.
//
// A token is "{studentID}-{first 12 hex chars of md5(salt + email)}". It is
// stable for the lifetime of the student record and has no expiry, so links
// already sent keep working as long as the salt is unchanged.
package signuplink

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/exeats-api/internal/models"
)

const digestLength = 12

// ErrInvalidToken is returned for malformed, forged or unknown tokens.
var ErrInvalidToken = errors.New("signup link is invalid")

// Codec encodes and verifies signup tokens with a fixed salt.
type Codec struct {
	salt string
}

// NewCodec constructs a codec for the given salt.
func NewCodec(salt string) Codec {
	return Codec{salt: salt}
}

// Encode returns the token for a student.
func (c Codec) Encode(student models.Student) string {
	return strconv.FormatUint(uint64(student.ID), 10) + "-" + c.digest(student.Email)
}

// Verify reports whether token is exactly the token of student.
func (c Codec) Verify(token string, student models.Student) bool {
	expected := c.Encode(student)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1
}

func (c Codec) digest(email string) string {
	sum := md5.Sum([]byte(c.salt + email))
	return hex.EncodeToString(sum[:])[:digestLength]
}

// ParseID extracts the student id preceding the first "-" of token.
func ParseID(token string) (uint, bool) {
	prefix, _, found := strings.Cut(token, "-")
	if !found || prefix == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(prefix, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// URL builds the absolute signup link for token.
func URL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/signup/" + token
}

// StudentLookup loads a student by primary key.
type StudentLookup interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
}

// Resolver turns tokens back into students.
type Resolver struct {
	codec    Codec
	students StudentLookup
}

// NewResolver constructs a resolver backed by the student store.
func NewResolver(codec Codec, students StudentLookup) *Resolver {
	return &Resolver{codec: codec, students: students}
}

// Codec exposes the codec used by the resolver.
func (r *Resolver) Codec() Codec {
	return r.codec
}

// Resolve returns the student identified by token. Any mismatch, including a
// well-formed token for a student that no longer exists, yields ErrInvalidToken.
func (r *Resolver) Resolve(ctx context.Context, token string) (models.Student, error) {
	id, ok := ParseID(token)
	if !ok {
		return models.Student{}, ErrInvalidToken
	}

	student, err := r.students.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, ErrInvalidToken
		}
		return models.Student{}, fmt.Errorf("load student for signup link: %w", err)
	}

	if !r.codec.Verify(token, student) {
		return models.Student{}, ErrInvalidToken
	}

	return student, nil
}
