package flowstate

import (
	"crypto/sha256"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

const stateKeyInfo = "imetrics-connect-state-v1"

// StateClaims is the payload of the signed OAuth state parameter. It binds
// the callback to the primary identity and browser context that initiated
// the flow, so the callback does not have to trust ambient storage alone.
type StateClaims struct {
	ContextID         string `json:"ctx"`
	ExpectedUserID    string `json:"euid"`
	ExpectedUserEmail string `json:"eml"`
	jwt.RegisteredClaims
}

// Codec signs and verifies state tokens with an HMAC key derived from the
// configured secret.
type Codec struct {
	key     []byte
	ttl     time.Duration
	nowTime func() time.Time
}

// CodecOption modifies a Codec
type CodecOption func(*Codec)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowTime = nowFunc
	}
}

// NewCodec derives the signing key from secret via HKDF-SHA256 and returns a
// codec issuing tokens valid for ttl.
func NewCodec(secret string, ttl time.Duration, options ...CodecOption) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("[NewCodec] secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("[NewCodec] ttl must be positive")
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(stateKeyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, errors.Wrap(err, "[NewCodec] hkdf read")
	}

	codec := &Codec{
		key:     key,
		ttl:     ttl,
		nowTime: time.Now,
	}

	for _, opt := range options {
		opt(codec)
	}

	return codec, nil
}

// Sign mints a state token for a pending grant.
func (c *Codec) Sign(contextID string, pending *PendingGrant) (string, error) {
	if pending == nil {
		return "", errors.New("[Codec.Sign] pending is required")
	}

	now := c.nowTime()
	claims := StateClaims{
		ContextID:         contextID,
		ExpectedUserID:    pending.ExpectedUserID,
		ExpectedUserEmail: pending.ExpectedUserEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", errors.Wrap(err, "[Codec.Sign] SignedString")
	}
	return signed, nil
}

// Verify parses and validates a state token, returning its claims.
func (c *Codec) Verify(state string) (*StateClaims, error) {
	claims := &StateClaims{}
	_, err := jwt.ParseWithClaims(state, claims,
		func(t *jwt.Token) (interface{}, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.nowTime),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[Codec.Verify] ParseWithClaims")
	}
	return claims, nil
}
