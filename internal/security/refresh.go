package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// rawTokenBytes is the entropy of a refresh token (256 bits).
const rawTokenBytes = 32

// RefreshToken is freshly minted refresh material. Raw is handed to the client
// exactly once and never persisted; only Digest is ever written to storage.
type RefreshToken struct {
	Raw       string
	Digest    string
	DeviceID  string
	ExpiresAt time.Time
}

// RefreshTokenSource mints opaque refresh tokens with a fixed validity window.
type RefreshTokenSource struct {
	TTL time.Duration
}

// NewRefreshTokenSource returns a source whose tokens expire after ttl
// (7 days if ttl is not positive).
func NewRefreshTokenSource(ttl time.Duration) *RefreshTokenSource {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RefreshTokenSource{TTL: ttl}
}

// Generate draws a raw token from a cryptographically secure source, encodes
// it for safe transport, and pairs it with its one-way digest, a fresh device
// id, and the expiry time.
func (s *RefreshTokenSource) Generate() (*RefreshToken, error) {
	b := make([]byte, rawTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	raw := base64.RawURLEncoding.EncodeToString(b)
	return &RefreshToken{
		Raw:       raw,
		Digest:    HashRefreshToken(raw),
		DeviceID:  uuid.New().String(),
		ExpiresAt: time.Now().UTC().Add(s.TTL),
	}, nil
}

// HashRefreshToken returns a SHA-256 hash of the raw refresh token,
// hex-encoded. Deterministic: the same raw value always yields the same
// digest, so sessions can be looked up without ever storing the raw token.
func HashRefreshToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// RefreshTokenHashEqual performs constant-time comparison of the provided raw
// token's digest with the stored digest. Returns true only if they match.
func RefreshTokenHashEqual(providedRaw, storedDigest string) bool {
	providedDigest := HashRefreshToken(providedRaw)
	return subtle.ConstantTimeCompare([]byte(providedDigest), []byte(storedDigest)) == 1
}
