package models

import "gorm.io/datatypes"

// RecommendedPolicyCategories is the closed set of recommendation categories.
var RecommendedPolicyCategories = []string{"health", "life", "vehicle", "property", "retirement", "child"}

// RecommendedPolicy is a catalog entry surfaced to citizens whose profile
// matches its targeting filters.
type RecommendedPolicy struct {
	BaseModel

	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	Details     string `json:"details"`
	Category    string `gorm:"default:life;index" json:"category"`
	Priority    int    `gorm:"default:1" json:"priority"`

	AgeMin        int                         `gorm:"default:18" json:"age_min"`
	AgeMax        int                         `gorm:"default:70" json:"age_max"`
	SuitableFor   datatypes.JSONSlice[string] `json:"suitable_for"`
	MaritalStatus string                      `json:"marital_status"`
}
