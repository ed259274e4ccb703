package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTokenInvalid covers malformed tokens and bad signatures.
	ErrTokenInvalid = errors.New("invalid download token")
	// ErrTokenExpired is returned for well-signed tokens past their expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// SignedToken describes a download token issued for a stored file.
type SignedToken struct {
	Token     string
	ID        string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner creates and validates signed download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL reports how long issued tokens stay valid.
func (s *SignedURLSigner) TTL() time.Duration {
	return s.ttl
}

// Generate returns a signed token referencing id and the stored relative path.
func (s *SignedURLSigner) Generate(id, relPath string) (SignedToken, error) {
	if id == "" || relPath == "" {
		return SignedToken{}, fmt.Errorf("id and path required")
	}
	if strings.Contains(id, ".") {
		return SignedToken{}, fmt.Errorf("id must not contain '.'")
	}
	if len(s.secret) == 0 {
		return SignedToken{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	token := strings.Join([]string{id, ts, encodedPath, s.sign(id, ts, encodedPath)}, ".")
	return SignedToken{Token: token, ID: id, Path: relPath, ExpiresAt: expiresAt}, nil
}

// Parse validates a token and returns the embedded metadata.
func (s *SignedURLSigner) Parse(token string) (SignedToken, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return SignedToken{}, ErrTokenInvalid
	}
	id, ts, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(id, ts, encodedPath)), []byte(signature)) {
		return SignedToken{}, ErrTokenInvalid
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return SignedToken{}, ErrTokenInvalid
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return SignedToken{}, ErrTokenInvalid
	}

	parsed := SignedToken{Token: token, ID: id, Path: string(rawPath), ExpiresAt: time.Unix(expUnix, 0)}
	if s.now().After(parsed.ExpiresAt) {
		return parsed, ErrTokenExpired
	}
	return parsed, nil
}

func (s *SignedURLSigner) sign(id, ts, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(id + "|" + ts + "|" + encodedPath))
	return hex.EncodeToString(mac.Sum(nil))
}
