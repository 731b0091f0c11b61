// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type ProfileResponse struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Role            string    `json:"role"`
	Tier            string    `json:"tier"`
	FreePersonaUsed bool      `json:"free_persona_used"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type EntitlementsResponse struct {
	FreePersonaUsed      bool `json:"free_persona_used"`
	FreeUnlocksRemaining int  `json:"free_unlocks_remaining"`
}

func ToProfileResponse(u *User) ProfileResponse {
	return ProfileResponse{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Role:            u.Role,
		Tier:            u.Tier,
		FreePersonaUsed: u.FreePersonaUsed,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
