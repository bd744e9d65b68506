package domain

import "time"

type LoyaltyTier string

const (
	TierBronze   LoyaltyTier = "bronze"
	TierSilver   LoyaltyTier = "silver"
	TierGold     LoyaltyTier = "gold"
	TierPlatinum LoyaltyTier = "platinum"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	PasswordHash  []byte      `json:"-"`
	LoyaltyTier   LoyaltyTier `json:"loyalty_tier"`
	LoyaltyPoints int         `json:"loyalty_points"`
	CreatedAt     time.Time   `json:"created_at"`
}

// ProfilePatch is the subset of user fields a customer may change.
type ProfilePatch struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}
