// Package auth resolves API callers to roles.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Roles understood by the API.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrBadSignature = errors.New("bad signature")
	ErrTokenExpired = errors.New("token expired")
)

// Verifier validates bearer tokens and extracts the role claim.
// Modes: dev (the token is the role itself) and hmac (HS256 JWT).
type Verifier struct {
	Mode       string
	HMACSecret []byte
	RoleClaim  string

	now func() time.Time
}

// Principal is an authenticated caller.
type Principal struct {
	Subject string
	Role    string
}

// NewVerifier builds a verifier. An empty mode means dev.
func NewVerifier(mode, secret string) *Verifier {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = "dev"
	}
	return &Verifier{Mode: mode, HMACSecret: []byte(secret), RoleClaim: "role", now: time.Now}
}

// Dev reports whether unauthenticated header fallbacks are allowed.
func (v *Verifier) Dev() bool { return v.Mode == "dev" }

func (v *Verifier) Verify(token string) (Principal, error) {
	if v.Mode == "dev" {
		role := strings.ToLower(strings.TrimSpace(token))
		if role == "" {
			return Principal{}, ErrInvalidToken
		}
		return Principal{Subject: "dev", Role: role}, nil
	}
	if v.Mode != "hmac" {
		return Principal{}, errors.New("unsupported auth mode")
	}

	segs := strings.Split(token, ".")
	if len(segs) != 3 {
		return Principal{}, ErrInvalidToken
	}
	headerJSON, err := b64urlDecode(segs[0])
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	payloadJSON, err := b64urlDecode(segs[1])
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	sig, err := b64urlDecode(segs[2])
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	var hdr struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(headerJSON, &hdr); err != nil || hdr.Alg != "HS256" {
		return Principal{}, ErrInvalidToken
	}
	mac := hmac.New(sha256.New, v.HMACSecret)
	mac.Write([]byte(segs[0] + "." + segs[1]))
	if !hmac.Equal(mac.Sum(nil), sig) {
		return Principal{}, ErrBadSignature
	}

	var claims map[string]any
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return Principal{}, ErrInvalidToken
	}
	if exp, ok := claims["exp"].(float64); ok && v.now().Unix() >= int64(exp) {
		return Principal{}, ErrTokenExpired
	}
	role, _ := claims[v.RoleClaim].(string)
	if role == "" {
		role = RoleViewer
	}
	sub, _ := claims["sub"].(string)
	return Principal{Subject: sub, Role: strings.ToLower(role)}, nil
}

// SignHS256 issues an HS256 token carrying claims. Used by tooling and tests.
func SignHS256(secret []byte, claims map[string]any) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	input := b64urlEncode([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." + b64urlEncode(payload)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(input))
	return input + "." + b64urlEncode(mac.Sum(nil)), nil
}

func b64urlDecode(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }
func b64urlEncode(b []byte) string          { return base64.RawURLEncoding.EncodeToString(b) }
