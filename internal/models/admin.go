package models

import "time"

// Session roles. Citizens always carry RoleUser; admin accounts carry the
// role stored on the record.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// AdminAccount is a portal administrator. Admins sign in with email only and
// carry a role claim into their session tokens.
type AdminAccount struct {
	BaseModel

	Name         string `json:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"default:admin" json:"role"`

	LastLogin      *time.Time           `json:"last_login"`
	LoginLocations []AdminLoginLocation `gorm:"foreignKey:AdminID" json:"-"`
}

// AdminLoginLocation records where an admin signed in from.
type AdminLoginLocation struct {
	BaseModel

	AdminID   string  `gorm:"type:uuid;not null;index" json:"admin_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
