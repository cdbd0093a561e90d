package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jansathi/portal/internal/models"
	apperrors "github.com/jansathi/portal/pkg/errors"
)

// Profile completion weights. The conditional fields only enter the
// denominator when they apply to the user in question.
const (
	weightName             = 10
	weightAge              = 10
	weightGender           = 10
	weightOccupation       = 10
	weightEducation        = 10
	weightPermanentAddress = 15
	weightCurrentAddress   = 15
	weightMaritalStatus    = 10
	weightSpouseName       = 10
	weightChildren         = 10

	adultAge = 21
)

var genders = []string{models.GenderMale, models.GenderFemale, models.GenderOther}

var maritalStatuses = []string{
	models.MaritalSingle,
	models.MaritalMarried,
	models.MaritalDivorced,
	models.MaritalWidowed,
}

// CompletionScore derives the weighted profile completion percentage. It is
// a pure function: recomputed on every read and write, never stored.
//
// Marital status counts only from age 21; spouse name and children count
// only for married users of that age. An empty children list is treated as
// populated (there is nothing invalid in it); a list with any element
// missing gender or age is not.
func CompletionScore(user *models.User) int {
	if user == nil {
		return 0
	}

	age := 0
	if user.Age != nil {
		age = *user.Age
	}

	type field struct {
		weight    int
		populated bool
	}

	fields := []field{
		{weightName, strings.TrimSpace(user.Name) != ""},
		{weightAge, age > 0},
		{weightGender, strings.TrimSpace(user.Gender) != ""},
		{weightOccupation, strings.TrimSpace(user.Occupation) != ""},
		{weightEducation, strings.TrimSpace(user.Education) != ""},
		{weightPermanentAddress, addressPopulated(user.PermanentAddress)},
		{weightCurrentAddress, addressPopulated(user.CurrentAddress)},
	}

	if age >= adultAge {
		fields = append(fields, field{weightMaritalStatus, strings.TrimSpace(user.MaritalStatus) != ""})

		if user.MaritalStatus == models.MaritalMarried {
			fields = append(fields,
				field{weightSpouseName, strings.TrimSpace(user.SpouseName) != ""},
				field{weightChildren, childrenPopulated(user.Children)},
			)
		}
	}

	total, populated := 0, 0
	for _, f := range fields {
		total += f.weight
		if f.populated {
			populated += f.weight
		}
	}
	if total == 0 {
		return 0
	}

	return int(math.Round(float64(populated) / float64(total) * 100))
}

func addressPopulated(addr models.Address) bool {
	return strings.TrimSpace(addr.Street) != "" &&
		strings.TrimSpace(addr.City) != "" &&
		strings.TrimSpace(addr.State) != "" &&
		strings.TrimSpace(addr.Pincode) != ""
}

func childrenPopulated(children datatypes.JSONSlice[models.Child]) bool {
	for _, child := range children {
		if strings.TrimSpace(child.Gender) == "" || child.Age < 0 {
			return false
		}
	}
	return true
}

// UpdateProfileInput is the validated field set a citizen may edit. Nil
// pointers mean "leave unchanged" is NOT supported; the client always sends
// the full profile, which keeps updates idempotent.
type UpdateProfileInput struct {
	Name                 string
	Age                  *int
	Gender               string
	MaritalStatus        string
	Occupation           string
	Education            string
	IsGovernmentEmployee bool
	PermanentAddress     models.Address
	CurrentAddress       models.Address
	SpouseName           string
	Children             []models.Child
}

// ProfileService reads and updates citizen profiles.
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService constructs a ProfileService.
func NewProfileService(db *gorm.DB) (*ProfileService, error) {
	if db == nil {
		return nil, errors.New("profile service: db is required")
	}
	return &ProfileService{db: db}, nil
}

// Get returns the stored profile together with its freshly computed score.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.User, int, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", strings.TrimSpace(userID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, apperrors.ErrNotFound
		}
		return nil, 0, apperrors.ErrInternalServer.WithInternal(err)
	}
	return &user, CompletionScore(&user), nil
}

// Update validates the conditional field rules, persists the profile, and
// returns the updated record with its score. Submitting the same payload
// twice yields the same stored state and the same score.
func (s *ProfileService) Update(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, int, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", strings.TrimSpace(userID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, apperrors.ErrNotFound
		}
		return nil, 0, apperrors.ErrInternalServer.WithInternal(err)
	}

	if fieldErrors := validateProfile(input); len(fieldErrors) > 0 {
		return nil, 0, apperrors.NewBadRequest(strings.Join(fieldErrors, "; "))
	}

	user.Name = strings.TrimSpace(input.Name)
	user.Age = input.Age
	user.Gender = input.Gender
	user.MaritalStatus = input.MaritalStatus
	user.Occupation = strings.TrimSpace(input.Occupation)
	user.Education = strings.TrimSpace(input.Education)
	user.IsGovernmentEmployee = input.IsGovernmentEmployee
	user.PermanentAddress = input.PermanentAddress
	user.CurrentAddress = input.CurrentAddress
	user.SpouseName = strings.TrimSpace(input.SpouseName)
	user.Children = datatypes.JSONSlice[models.Child](input.Children)

	score := CompletionScore(&user)
	user.ProfileCompleted = score == 100

	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, 0, apperrors.ErrInternalServer.WithInternal(err)
	}
	return &user, score, nil
}

// validateProfile runs the conditional-required rules against the full
// candidate record and returns one message per violated field.
func validateProfile(input UpdateProfileInput) []string {
	var errs []string

	age := 0
	if input.Age != nil {
		age = *input.Age
	}

	if input.Age != nil && (age < 18 || age > 120) {
		errs = append(errs, "age must be between 18 and 120")
	}
	if input.Gender != "" && !containsString(genders, input.Gender) {
		errs = append(errs, "gender must be male, female, or other")
	}
	if input.MaritalStatus != "" && !containsString(maritalStatuses, input.MaritalStatus) {
		errs = append(errs, "marital status is not recognised")
	}

	married := input.MaritalStatus == models.MaritalMarried
	if married && strings.TrimSpace(input.SpouseName) == "" {
		errs = append(errs, "spouse name is required for married users")
	}
	if !married && strings.TrimSpace(input.SpouseName) != "" {
		errs = append(errs, "spouse name is only allowed for married users")
	}

	if len(input.Children) > 0 {
		if !married || age < adultAge {
			errs = append(errs, "children may only be recorded for married users aged 21 or above")
		}
		for _, child := range input.Children {
			if strings.TrimSpace(child.Gender) == "" || child.Age < 0 {
				errs = append(errs, "every child needs a gender and a non-negative age")
				break
			}
		}
	}

	return errs
}
