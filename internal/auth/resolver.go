package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nikhilbhutani/lmscore/internal/models"
)

type Claims struct {
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	TenantID *int64 `json:"tenant_id"`
	jwt.RegisteredClaims
}

// Resolver turns a bearer credential into a Principal. It verifies the
// signature and expiry only and never consults the database.
type Resolver struct {
	secret []byte
	parser *jwt.Parser
}

type ResolverOption func(*resolverOptions)

type resolverOptions struct {
	issuer string
	leeway time.Duration
	now    func() time.Time
}

func WithIssuer(iss string) ResolverOption {
	return func(o *resolverOptions) { o.issuer = iss }
}

func WithLeeway(d time.Duration) ResolverOption {
	return func(o *resolverOptions) { o.leeway = d }
}

// WithClock overrides the verification clock, for tests.
func WithClock(now func() time.Time) ResolverOption {
	return func(o *resolverOptions) { o.now = now }
}

func NewResolver(secret string, opts ...ResolverOption) *Resolver {
	o := resolverOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(o.now),
	}
	if o.leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(o.leeway))
	}
	if o.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(o.issuer))
	}

	return &Resolver{
		secret: []byte(secret),
		parser: jwt.NewParser(parserOpts...),
	}
}

func (r *Resolver) Resolve(tokenStr string) (*Principal, error) {
	if tokenStr == "" {
		return nil, authError("missing credential", nil)
	}

	claims := &Claims{}
	token, err := r.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, authError("credential expired", err)
		}
		return nil, authError("invalid credential", err)
	}
	if !token.Valid {
		return nil, authError("invalid credential", nil)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, authError("malformed subject", err)
	}

	role, err := models.ParseRole(claims.Role)
	if err != nil {
		return nil, authError("malformed role", err)
	}

	p := &Principal{ID: id, Role: role, TenantID: claims.TenantID}
	if err := p.Validate(); err != nil {
		return nil, authError("malformed principal", err)
	}
	return p, nil
}
