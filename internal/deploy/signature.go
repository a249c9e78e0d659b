package deploy

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader carries the webhook signature.
const SignatureHeader = "X-Hub-Signature"

const signaturePrefix = "sha1="

// ErrSignatureMismatch is returned when the header does not sign the body.
var ErrSignatureMismatch = errors.New("deploy signature mismatch")

// Sign returns the header value for body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks header against an HMAC-SHA1 of the exact body.
// An empty secret never verifies.
func VerifySignature(secret string, body []byte, header string) error {
	if secret == "" {
		return ErrSignatureMismatch
	}

	digest, found := strings.CutPrefix(strings.TrimSpace(header), signaturePrefix)
	if !found || digest == "" {
		return ErrSignatureMismatch
	}

	provided, err := hex.DecodeString(digest)
	if err != nil {
		return ErrSignatureMismatch
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return ErrSignatureMismatch
	}
	return nil
}
