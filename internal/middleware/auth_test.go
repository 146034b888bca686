package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	users "github.com/AdamBeresnev/cricket-live/internal/user"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type stubUsers map[uuid.UUID]*users.User

func (s stubUsers) GetUser(_ context.Context, id uuid.UUID) (*users.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func signToken(t *testing.T, secret string, method jwt.SigningMethod, userID string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(method, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestRequireAuth(t *testing.T) {
	known, unknown := uuid.New(), uuid.New()
	lookup := stubUsers{known: {ID: known, Username: "scorer"}}
	hour := time.Now().Add(time.Hour)

	testCases := []struct {
		name     string
		header   string
		status   int
		userID   uuid.UUID
		withUser bool
	}{
		{
			name:     "valid token for stored user",
			header:   "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, known.String(), hour),
			status:   http.StatusOK,
			userID:   known,
			withUser: true,
		},
		{
			name:   "valid token without user row",
			header: "bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, unknown.String(), hour),
			status: http.StatusOK,
			userID: unknown,
		},
		{
			name:   "missing header",
			status: http.StatusUnauthorized,
		},
		{
			name:   "wrong scheme",
			header: "Basic abc",
			status: http.StatusUnauthorized,
		},
		{
			name:   "expired",
			header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, known.String(), time.Now().Add(-time.Minute)),
			status: http.StatusUnauthorized,
		},
		{
			name:   "wrong secret",
			header: "Bearer " + signToken(t, "other", jwt.SigningMethodHS256, known.String(), hour),
			status: http.StatusUnauthorized,
		},
		{
			name:   "malformed subject",
			header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, "not-a-uuid", hour),
			status: http.StatusUnauthorized,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var gotID uuid.UUID
			var gotUser *users.User
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID, _ = GetUserIDFromContext(r.Context())
				gotUser = GetAuthenticatedUser(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/matches", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			RequireAuth(testSecret, lookup)(next).ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.status != http.StatusOK {
				return
			}
			assert.Equal(t, tc.userID, gotID)
			if tc.withUser {
				require.NotNil(t, gotUser)
				assert.Equal(t, "scorer", gotUser.Username)
			} else {
				assert.Nil(t, gotUser)
			}
		})
	}
}

func TestGetUserIDFromContext_Missing(t *testing.T) {
	id, ok := GetUserIDFromContext(context.Background())
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, id)
}
