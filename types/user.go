package types

import "time"

// Roles a user can hold. No other value is valid.
const (
	RoleStudent = "STUDENT"
	RoleAlumni  = "ALUMNI"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleStudent || role == RoleAlumni
}

// User represents a member of the alumni directory.
type User struct {
	// ID is the unique identifier of the user.
	ID int64 `json:"id" db:"id"`

	// Email is the user's email address, stored lowercase and unique.
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Role is either RoleStudent or RoleAlumni.
	Role string `json:"role" db:"role"`

	// Batch is the cohort/year label, e.g. "2024".
	Batch string `json:"batch" db:"batch"`

	Bio      string `json:"bio,omitempty" db:"bio"`
	Website  string `json:"website,omitempty" db:"website"`
	Github   string `json:"github,omitempty" db:"github"`
	Linkedin string `json:"linkedin,omitempty" db:"linkedin"`

	// Picture is the URL of the user's avatar in object storage.
	Picture string `json:"picture,omitempty" db:"picture"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// Never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// OrganisationID links the user to an organisation, if any.
	OrganisationID *int64 `json:"organisation_id,omitempty" db:"organisation_id"`

	// Organisation is the expanded organisation record when the
	// query joined it in.
	Organisation *Organisation `json:"organisation,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserPatch is a sparse update of a user's editable profile fields.
// A nil pointer means the field was not supplied; a pointer to the
// zero value means the caller explicitly cleared it. This keeps
// "absent" and "explicitly empty" distinguishable.
type UserPatch struct {
	Email    *string
	Name     *string
	Role     *string
	Batch    *string
	Bio      *string
	Website  *string
	Github   *string
	Linkedin *string
	Picture  *string

	// OrganisationID relinks the organisation. Set means "apply";
	// a set field holding nil clears the link.
	OrganisationID    *int64
	SetOrganisationID bool
}

// IsZero reports whether the patch carries no changes at all.
func (p UserPatch) IsZero() bool {
	return p.Email == nil && p.Name == nil && p.Role == nil && p.Batch == nil &&
		p.Bio == nil && p.Website == nil && p.Github == nil && p.Linkedin == nil &&
		p.Picture == nil && !p.SetOrganisationID
}
