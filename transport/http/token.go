package http

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/kylaris/trading/conf"
)

var (
	ErrTokenNotInit = errors.New("token not initialized")
	ErrInvalidToken = errors.New("invalid token")
	ErrForbidden    = errors.New("insufficient role")
	ErrKeyNotSet    = errors.New("signing key not configured")
)

var (
	issuer   string
	audience string
	pubkey   ed25519.PublicKey
	keyFn    jwt.Keyfunc
)

func Init(i, a string, privkey ed25519.PrivateKey) {
	issuer = i
	audience = a

	pubkey = privkey.Public().(ed25519.PublicKey)
	keyFn = func(t *jwt.Token) (any, error) {
		return pubkey, nil
	}
}

type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

type Token struct {
	Token     string    `json:"token"`
	ExpiredAt time.Time `json:"expired_at"`
}

// SignToken issues an EdDSA token for subject valid for cfg.Timeout.
func SignToken(cfg conf.JWT, iss string, subject string, roles []string) (*Token, error) {
	if cfg.Privkey == nil {
		return nil, ErrKeyNotSet
	}

	now := time.Now()
	expiredAt := now.Add(cfg.Timeout)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    iss,
			Subject:   subject,
			Audience:  cfg.Audiences,
			ExpiresAt: jwt.NewNumericDate(expiredAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        ulid.Make().String(),
		},
		Roles: roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	tokenStr, err := token.SignedString(cfg.Privkey)
	if err != nil {
		return nil, err
	}

	return &Token{
		Token:     tokenStr,
		ExpiredAt: expiredAt,
	}, nil
}

func ParseToken(ctx *gin.Context, claims jwt.Claims) error {
	if audience == "" || keyFn == nil {
		return ErrTokenNotInit
	}

	authHeader := ctx.GetHeader("Authorization")

	tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return ErrInvalidToken
	}

	_, err := jwt.ParseWithClaims(tokenStr, claims, keyFn,
		jwt.WithAudience(audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithLeeway(10*time.Second),
	)

	return err
}

func unauthorized(c *gin.Context, code int, err error) {
	c.Abort()
	c.Error(err)
	c.Header("WWW-Authenticate", "Bearer realm="+issuer)
	c.String(code, err.Error())
}

// Authorizator admits requests whose token carries role. The parsed
// claims are stored under "claims".
func Authorizator(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var claims Claims
		if err := ParseToken(c, &claims); err != nil {
			unauthorized(c, http.StatusUnauthorized, err)
			return
		}

		if !slices.Contains(claims.Roles, role) {
			unauthorized(c, http.StatusForbidden, ErrForbidden)
			return
		}

		c.Set("claims", &claims)
		c.Next()
	}
}

type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	Kid string `json:"kid"`
}

type JWKSet struct {
	Keys []JWK `json:"keys"`
}

func JWKHandler(c *gin.Context) {
	if pubkey == nil {
		err := ErrTokenNotInit
		c.Abort()
		c.Error(err)
		c.String(http.StatusServiceUnavailable, err.Error())
		return
	}

	x := base64.RawURLEncoding.EncodeToString(pubkey)

	hash := sha256.Sum256(pubkey)
	kid := base64.RawURLEncoding.EncodeToString(hash[:16])

	jwk := JWK{
		Kty: "OKP",
		Crv: "Ed25519",
		X:   x,
		Alg: "EdDSA",
		Use: "sig",
		Kid: kid,
	}

	jwkSet := JWKSet{
		Keys: []JWK{jwk},
	}

	c.JSON(http.StatusOK, jwkSet)
}
