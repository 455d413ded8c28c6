package relay

import (
	"net/http"
	"strings"
	"time"

	vigilerrors "vigil/internal/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity carried on a relay connection. The relay never
// trusts user identity from message payloads; everything is taken from
// the verified token presented at connect time.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
}

// GenerateToken issues a signed relay token. Used by tests and by
// deployments that mint tokens out of band.
func GenerateToken(userID int64, username string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:   userID,
		Username: username,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken validates a relay token and returns its claims.
func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, vigilerrors.New(vigilerrors.ErrCodeAuthentication, "unexpected token signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, vigilerrors.Wrap(err, vigilerrors.ErrCodeAuthentication, "invalid relay token")
	}
	if !token.Valid {
		return nil, vigilerrors.New(vigilerrors.ErrCodeAuthentication, "invalid relay token")
	}
	return claims, nil
}

// bearerFromRequest extracts the credential presented as connection
// metadata: the Authorization header, or a token query parameter for
// clients that cannot set headers on an upgrade request.
func bearerFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimPrefix(auth, "Bearer ")
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
