package database

import (
	"gorm.io/gorm"

	"github.com/jansathi/portal/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.LoginRecord{},
		&models.AdminAccount{},
		&models.AdminLoginLocation{},
		&models.Policy{},
		&models.PolicyVote{},
		&models.PolicyApplication{},
		&models.RecommendedPolicy{},
		&models.CacheEntry{},
		&models.SystemSetting{},
	)
}

// SeedData populates the recommendation catalog with a default set of
// schemes so a fresh installation has something to surface. Entries are
// keyed by title and never duplicated on restart.
func SeedData(db *gorm.DB) error {
	catalog := []models.RecommendedPolicy{
		{
			Title:       "National Health Shield",
			Description: "Cashless hospitalisation cover for the whole family.",
			Details:     "Covers hospitalisation up to 5 lakh per year at empanelled hospitals, including pre-existing conditions after a waiting period.",
			Category:    "health",
			Priority:    1,
			AgeMin:      18,
			AgeMax:      70,
			SuitableFor: []string{"male", "female", "other"},
		},
		{
			Title:         "Family Life Secure",
			Description:   "Term life cover for earning members with dependents.",
			Details:       "Pays a lump sum to nominees. Premiums stay flat for the full policy term.",
			Category:      "life",
			Priority:      1,
			AgeMin:        21,
			AgeMax:        60,
			SuitableFor:   []string{"male", "female", "other"},
			MaritalStatus: models.MaritalMarried,
		},
		{
			Title:       "Young Citizen Retirement Fund",
			Description: "Long-horizon pension savings with government co-contribution.",
			Details:     "Monthly contributions accumulate until age 60. Early enrolment maximises the matching benefit.",
			Category:    "retirement",
			Priority:    2,
			AgeMin:      18,
			AgeMax:      40,
			SuitableFor: []string{"male", "female", "other"},
		},
		{
			Title:         "Child Education Grant",
			Description:   "Savings scheme for parents funding school and college fees.",
			Details:       "Deposits are matched yearly per enrolled child and pay out at education milestones.",
			Category:      "child",
			Priority:      1,
			AgeMin:        21,
			AgeMax:        55,
			SuitableFor:   []string{"male", "female", "other"},
			MaritalStatus: models.MaritalMarried,
		},
		{
			Title:       "Rural Property Protect",
			Description: "Dwelling and contents cover against fire, flood and theft.",
			Details:     "Flat-premium cover for registered residential property, claims settled through district offices.",
			Category:    "property",
			Priority:    3,
			AgeMin:      18,
			AgeMax:      70,
			SuitableFor: []string{"male", "female", "other"},
		},
	}

	for _, entry := range catalog {
		if err := db.Where(models.RecommendedPolicy{Title: entry.Title}).
			Attrs(entry).
			FirstOrCreate(&models.RecommendedPolicy{}).Error; err != nil {
			return err
		}
	}

	return nil
}
