package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

var (
	ErrTokenMalformed = errors.New("malformed token")
	ErrTokenSignature = errors.New("invalid signature")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenClaims    = errors.New("token claims rejected")
)

type TokenClaims struct {
	Sub      string `json:"sub"`
	Locale   string `json:"locale,omitempty"`
	Exp      int64  `json:"exp,omitempty"`
	Nbf      int64  `json:"nbf,omitempty"`
	Issuer   string `json:"iss,omitempty"`
	Audience string `json:"aud,omitempty"`
}

// JWTConfig configures HS256 bearer verification. Empty Issuer or Audience
// skips that check.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

type jwtHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ,omitempty"`
}

type userIDContextKey struct{}

func SignJWT(secret string, claims TokenClaims) (string, error) {
	headerJSON, err := json.Marshal(jwtHeader{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	data := base64.RawURLEncoding.EncodeToString(headerJSON) + "." + base64.RawURLEncoding.EncodeToString(payloadJSON)
	return data + "." + hmacSign(secret, data), nil
}

func hmacSign(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify rejects tokens that are not HS256, carry a bad signature, are outside
// their exp/nbf window, or name another issuer or audience.
func (c JWTConfig) Verify(token string, now time.Time) (*TokenClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrTokenMalformed
	}
	var header jwtHeader
	if err := decodeSegment(parts[0], &header); err != nil || header.Alg != "HS256" {
		return nil, ErrTokenMalformed
	}
	expected := hmacSign(c.Secret, parts[0]+"."+parts[1])
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return nil, ErrTokenSignature
	}
	var claims TokenClaims
	if err := decodeSegment(parts[1], &claims); err != nil {
		return nil, ErrTokenMalformed
	}
	unix := now.Unix()
	leeway := int64(c.Leeway / time.Second)
	if claims.Exp != 0 && unix > claims.Exp+leeway {
		return nil, ErrTokenExpired
	}
	if claims.Nbf != 0 && unix+leeway < claims.Nbf {
		return nil, ErrTokenClaims
	}
	if c.Issuer != "" && claims.Issuer != c.Issuer {
		return nil, ErrTokenClaims
	}
	if c.Audience != "" && claims.Audience != c.Audience {
		return nil, ErrTokenClaims
	}
	if strings.TrimSpace(claims.Sub) == "" {
		return nil, ErrTokenClaims
	}
	return &claims, nil
}

func decodeSegment(seg string, v any) error {
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// AuthJWT requires a bearer token whose subject is the user id. A locale claim
// overrides the negotiated request locale.
func AuthJWT(cfg JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				unauthorized(w, "missing or invalid authorization")
				return
			}
			claims, err := cfg.Verify(strings.TrimSpace(token), time.Now())
			if err != nil {
				unauthorized(w, err.Error())
				return
			}
			ctx := ContextWithUserID(r.Context(), claims.Sub)
			if claims.Locale != "" {
				ctx = context.WithValue(ctx, LocaleKey, claims.Locale)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="contentgen"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": "unauthorized", "message": msg},
	})
}

func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDContextKey{}).(string); ok {
		return v
	}
	return ""
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if strings.TrimSpace(userID) == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDContextKey{}, userID)
}
