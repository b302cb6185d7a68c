package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid is returned when a token is malformed, unsigned, or
	// fails signature/issuer/audience checks.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when a structurally valid token has an
	// elapsed TTL. Callers use the distinction to decide between prompting
	// reauthentication and attempting a silent refresh.
	ErrTokenExpired = errors.New("token expired")
)

// AccessClaims holds JWT claims for the access token. The role name is a
// point-in-time snapshot taken at login or refresh; it is not re-resolved
// against the database until the next login.
type AccessClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	// Sid is the digest of the refresh token backing this access token, so an
	// authenticated request can reference its own session (logout, refresh).
	Sid string `json:"sid,omitempty"`
}

// Identity is the verified content of an access token: who, in which tenant,
// under which role name, backed by which session digest.
type Identity struct {
	IdentityID    string
	TenantID      string
	RoleName      string
	SessionDigest string
}

// TokenProvider issues and verifies signed access tokens using RS256 or ES256
// (private/public key). Issuance and verification are pure in-memory
// cryptography and never block.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
}

// NewTokenProvider returns a TokenProvider that signs with the given private
// key (RSA or ECDSA). issuer and audience are set on claims and validated on
// verify.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
	}
}

// Issue issues a signed, time-boxed access token embedding the identity id,
// tenant id, role name, and backing session digest. Returns the token string
// and its expiration time.
func (p *TokenProvider) Issue(identityID, tenantID, roleName, sessionDigest string, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	now := time.Now().UTC()
	expiresAt = now.Add(ttl)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TenantID: tenantID,
		Role:     roleName,
		Sid:      sessionDigest,
	}
	token, err = p.sign(claims)
	return token, expiresAt, err
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrTokenInvalid
	}
	t := jwt.NewWithClaims(method, claims)
	return t.SignedString(p.privateKey)
}

// Verify parses and validates an access token (signature, exp, iss, aud).
// Returns ErrTokenExpired for a stale token and ErrTokenInvalid for anything
// else that fails validation.
func (p *TokenProvider) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return p.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return p.publicKey, nil
		}
		return nil, ErrTokenInvalid
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Issuer != p.issuer || !hasAudience(claims.Audience, p.audience) {
		return nil, ErrTokenInvalid
	}
	return identityFromClaims(claims), nil
}

// DecodeExpired parses an access token whose signature must still verify but
// whose TTL may have elapsed. The refresh flow uses it to recover the tenant,
// identity, and session reference from a stale token before rotating. All
// other validation failures return ErrTokenInvalid.
func (p *TokenProvider) DecodeExpired(tokenString string) (*Identity, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, err := parser.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return p.publicKey, nil
		}
		return nil, ErrTokenInvalid
	})
	if err != nil {
		return nil, ErrTokenInvalid
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	if claims.Issuer != p.issuer || !hasAudience(claims.Audience, p.audience) {
		return nil, ErrTokenInvalid
	}
	return identityFromClaims(claims), nil
}

func identityFromClaims(claims *AccessClaims) *Identity {
	return &Identity{
		IdentityID:    claims.Subject,
		TenantID:      claims.TenantID,
		RoleName:      claims.Role,
		SessionDigest: claims.Sid,
	}
}

func hasAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
