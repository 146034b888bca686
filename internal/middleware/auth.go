package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/AdamBeresnev/cricket-live/internal/httputil"
	users "github.com/AdamBeresnev/cricket-live/internal/user"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

type ContextKey string

const UserIDKey ContextKey = "userID"

// Claims are issued by the identity service; only the subject id is used here.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// UserLookup resolves the token subject to a stored user.
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// ParseToken validates an HS256 token and returns the user id it carries.
func ParseToken(tokenString, secret string) (uuid.UUID, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("could not parse token: %w", err)
	}
	if !token.Valid {
		return uuid.Nil, errors.New("token is invalid")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, errors.New("user_id claim is missing or malformed")
	}
	return userID, nil
}

// RequireAuth rejects requests without a valid bearer token. The user row is
// put in the context when it exists; scoring rights are decided per match.
func RequireAuth(secret string, lookup UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, tokenString, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || tokenString == "" {
				httputil.Unauthorized(w, "Authorization header must be: Bearer <token>")
				return
			}

			userID, err := ParseToken(tokenString, secret)
			if err != nil {
				httputil.Unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)

			// Add the user to context so that we can easily get it whenever we want
			if lookup != nil {
				if user, err := lookup.GetUser(ctx, userID); err == nil {
					ctx = context.WithValue(ctx, users.UserKey, user)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	val := ctx.Value(UserIDKey)
	if val == nil {
		return uuid.Nil, false
	}

	id, ok := val.(uuid.UUID)
	return id, ok
}

func GetAuthenticatedUser(ctx context.Context) *users.User {
	val := ctx.Value(users.UserKey)
	if val == nil {
		return nil
	}
	user, ok := val.(*users.User)
	if !ok {
		return nil
	}
	return user
}
