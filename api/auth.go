package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/xraph/subledger/types"
)

const callerKey = "subledger.caller"

// Claims are the JWT claims accepted by the API. The subject is the
// caller's ledger identity.
type Claims struct {
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator returns an Authenticator signing with secret.
func NewAuthenticator(secret []byte, issuer string, ttl time.Duration) (*Authenticator, error) {
	if len(secret) == 0 {
		return nil, errors.New("api: empty jwt secret")
	}
	return &Authenticator{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token for subject.
func (a *Authenticator) Issue(subject types.Address) (string, error) {
	sub, err := types.ParseAddress(string(subject))
	if err != nil {
		return "", err
	}

	now := a.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   string(sub),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if a.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses raw and returns its claims.
func (a *Authenticator) Verify(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, errors.New("invalid token claims")
	}
	if _, err := types.ParseAddress(claims.Subject); err != nil {
		return nil, fmt.Errorf("subject: %w", err)
	}

	return claims, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// caller identity on the context.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearer(c)
		if raw == "" {
			Error(c, http.StatusUnauthorized, "missing authorization token", nil)
			return
		}

		claims, err := a.Verify(raw)
		if err != nil {
			Error(c, http.StatusUnauthorized, "invalid or expired token", err)
			return
		}

		c.Set(callerKey, types.Address(claims.Subject))
		c.Next()
	}
}

// Caller returns the authenticated identity of the request.
func Caller(c *gin.Context) (types.Address, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return "", false
	}
	addr, ok := v.(types.Address)
	return addr, ok
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
