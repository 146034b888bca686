package users

import (
	"time"

	"github.com/google/uuid"
)

type ContextKey string

const UserKey ContextKey = "user"

// User is a scorer or team owner. Credentials live with the identity
// provider that issues the bearer tokens.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Email     string    `db:"email" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
