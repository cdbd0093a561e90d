package models

import (
	"time"

	"gorm.io/datatypes"
)

// Gender, marital status, occupation, and education use closed vocabularies
// so dashboards can group on them.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

const (
	MaritalSingle   = "single"
	MaritalMarried  = "married"
	MaritalDivorced = "divorced"
	MaritalWidowed  = "widowed"
)

// Address is a postal address embedded into the user record.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// Child captures a dependent's details. Children may only be recorded for
// married users aged 21 or above.
type Child struct {
	Gender string `json:"gender"`
	Age    int    `json:"age"`
}

// Location is a client-asserted geolocation snapshot. It is an audit trail
// signal, not cryptographic proof of presence.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// User is a citizen account. Email and mobile number are unique identifiers;
// either may be used to sign in.
type User struct {
	BaseModel

	Name         string `gorm:"not null" json:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	MobileNumber string `gorm:"uniqueIndex;not null" json:"mobile_number"`
	PasswordHash string `gorm:"not null" json:"-"`
	IsVerified   bool   `gorm:"default:false" json:"is_verified"`

	Age                  *int   `json:"age"`
	Gender               string `json:"gender"`
	MaritalStatus        string `gorm:"default:single" json:"marital_status"`
	Occupation           string `gorm:"default:others" json:"occupation"`
	Education            string `gorm:"default:others" json:"education"`
	IsGovernmentEmployee bool   `gorm:"default:false" json:"is_government_employee"`

	PermanentAddress Address `gorm:"embedded;embeddedPrefix:permanent_" json:"permanent_address"`
	CurrentAddress   Address `gorm:"embedded;embeddedPrefix:current_" json:"current_address"`

	// SpouseName is required when MaritalStatus is married; Children are
	// allowed only when Age >= 21 and MaritalStatus is married. Both rules
	// are enforced by profile validation before persistence.
	SpouseName string                     `json:"spouse_name"`
	Children   datatypes.JSONSlice[Child] `json:"children"`

	ProfileCompleted bool `gorm:"default:false" json:"profile_completed"`

	LastLoginAt       *time.Time `json:"last_login_at"`
	LastLoginLocation *Location  `gorm:"embedded;embeddedPrefix:last_login_" json:"last_login_location,omitempty"`

	LoginHistory []LoginRecord `gorm:"foreignKey:UserID" json:"-"`
}

// DeviceInfo describes the client that performed a login.
type DeviceInfo struct {
	UserAgent string `json:"user_agent"`
	IP        string `json:"ip"`
}

// LoginRecord is one entry in a user's login history.
type LoginRecord struct {
	BaseModel

	UserID     string                         `gorm:"type:uuid;not null;index" json:"user_id"`
	Location   Location                       `gorm:"embedded" json:"location"`
	DeviceInfo datatypes.JSONType[DeviceInfo] `json:"device_info"`
}
