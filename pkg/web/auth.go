package web

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
)

// viewerFromBearer extracts the authenticated viewer from the Authorization
// header. Tokens are HS256 JWTs whose subject is the viewer identifier.
func viewerFromBearer(c fiber.Ctx, secret string) (string, error) {
	header := c.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || token == "" {
		return "", fmt.Errorf("malformed authorization header")
	}

	return viewerFromToken(token, secret)
}

func viewerFromToken(token, secret string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}

		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid access token: %w", err)
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("access token has no subject")
	}

	return subject, nil
}

// IssueViewerToken mints a bearer token for a viewer. Used by tests and by
// deployments that do not front the API with an external identity provider.
func IssueViewerToken(viewerID, secret string, claims jwt.MapClaims) (string, error) {
	if claims == nil {
		claims = jwt.MapClaims{}
	}

	claims["sub"] = viewerID

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secret))
}
