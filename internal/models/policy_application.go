package models

// Application review states.
const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

// PolicyApplication is a citizen's request to be covered by a policy.
// Applications are never deleted; status transitions are the only mutation.
type PolicyApplication struct {
	BaseModel

	UserID        string `gorm:"type:uuid;not null;index" json:"user_id"`
	Title         string `gorm:"not null" json:"title"`
	Description   string `gorm:"not null" json:"description"`
	Justification string `gorm:"not null" json:"justification"`
	Status        string `gorm:"default:pending;index" json:"status"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
