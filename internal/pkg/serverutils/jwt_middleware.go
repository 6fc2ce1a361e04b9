package serverutils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// OptionalJwt resolves a bearer token's user_id claim into ctx.Locals("user_id")
// when a token is present. Requests without a valid token pass through unchanged.
func OptionalJwt(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if secret == "" {
			return ctx.Next()
		}
		if userID, ok := UserIDFromToken(ctx.Get("Authorization"), secret); ok {
			ctx.Locals("user_id", userID)
		}
		return ctx.Next()
	}
}

func UserIDFromToken(authHeader, secret string) (string, bool) {
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return "", false
	}
	tokenStr := authHeader[7:]

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil || !token.Valid {
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

// SessionID picks the conversation key for a request: explicit id, then the
// X-Session-ID header, then the token's user, then the client address.
func SessionID(ctx *fiber.Ctx, explicit string) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	if id := strings.TrimSpace(ctx.Get("X-Session-ID")); id != "" {
		return id
	}
	if userID, ok := ctx.Locals("user_id").(string); ok && userID != "" {
		return "user:" + userID
	}
	return "ip:" + ctx.IP()
}
