package model

import "time"

// User mirrors a profile synced from the external identity provider.
// ExternalID is the provider's subject and is the identifier every other
// record uses to reference a user.
type User struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	ImageURL   string    `json:"image_url"`
	IsOnline   bool      `json:"is_online"`
	LastSeen   time.Time `json:"last_seen"`
	CreatedAt  time.Time `json:"created_at"`
}
