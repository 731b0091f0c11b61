// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

// User carries the account row plus the single free persona credit. The
// credit is a one-way latch: once spent it is only ever restored by the
// unlock compensation path.
type User struct {
	ID              string    `db:"id"`
	Email           string    `db:"email"`
	PasswordHash    string    `db:"password_hash"`
	Name            string    `db:"name"`
	Role            string    `db:"role"`
	Tier            string    `db:"tier"`
	TokenVersion    int       `db:"token_version"`
	FreePersonaUsed bool      `db:"free_persona_used"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	TierFree       = "free"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)
