package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Mickael78000/voting-dapp/logging"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const signerKey = "signer"

var ErrMissingToken = errors.New("missing bearer token")

// IssueSignerToken signs an HS256 token whose subject is the signer identity.
func IssueSignerToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseSignerToken validates the token and returns its subject.
func ParseSignerToken(secret []byte, raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// SignerAuthMiddleware rejects requests without a valid signer token and
// stores the token subject for Signer.
func SignerAuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearerToken(c)
		if err == nil {
			var subject string
			subject, err = ParseSignerToken(secret, raw)
			if err == nil {
				c.Set(signerKey, subject)
				c.Next()
				return
			}
		}

		logging.Log.Warnf("AUTH: unauthorized access attempt to %s: %v", c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "Unauthenticated"})
	}
}

func Signer(c *gin.Context) string {
	return c.GetString(signerKey)
}
