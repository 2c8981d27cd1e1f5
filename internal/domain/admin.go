package domain

import "time"

// RoleAdmin is the only role allowed to edit content
const RoleAdmin = "admin"

// AdminIdentity is the verified caller of an admin endpoint
type AdminIdentity struct {
	Subject   string    `json:"sub"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}
