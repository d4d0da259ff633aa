package auth

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// LocalsUserID is the fiber.Ctx locals key holding the authenticated
// user's numeric ID.
const LocalsUserID = "user_id"

// Middleware validates HS256 bearer tokens and places the user ID from
// the subject claim into the request locals. Session handling and token
// issuance live outside this service; the token is the only contract.
type Middleware struct {
	secret []byte
}

func NewMiddleware(secret string) *Middleware {
	return &Middleware{secret: []byte(secret)}
}

// RequireUser returns a handler that rejects requests without a valid
// bearer token.
func (m *Middleware) RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing Authorization header"})
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Authorization header must be 'Bearer <token>'"})
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			return m.secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		userID, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil || userID <= 0 {
			return c.Status(401).JSON(fiber.Map{"error": "Token subject is not a valid user ID"})
		}

		c.Locals(LocalsUserID, userID)
		return c.Next()
	}
}

// UserID extracts the authenticated user ID set by RequireUser.
func UserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(LocalsUserID).(int64)
	return id
}

// NewToken signs an HS256 token for the given user. Used by tests and
// operational tooling; the production identity service issues real ones.
func NewToken(secret string, userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
