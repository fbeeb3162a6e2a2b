package models

// UserRole enumerates the four portal roles. The Lithuanian values are the
// wire contract shared with the spreadsheet upstream and the frontend.
type UserRole string

const (
	RoleStudent UserRole = "mokinys"
	RoleParent  UserRole = "tevai"
	RoleTeacher UserRole = "mokytojas"
	RoleAdmin   UserRole = "administracija"
)

// ParseRole validates a raw role string.
func ParseRole(raw string) (UserRole, bool) {
	switch UserRole(raw) {
	case RoleStudent, RoleParent, RoleTeacher, RoleAdmin:
		return UserRole(raw), true
	}
	return "", false
}

// UserProfile is the account record returned by the upstream at login. It is
// produced once per session and never changes until logout.
type UserProfile struct {
	Role  UserRole `json:"role,omitempty"`
	Email string   `json:"email,omitempty"`

	// Own identity (teachers, parents).
	Vardas  string `json:"vardas,omitempty"`
	Pavarde string `json:"pavarde,omitempty"`

	// Own class (students).
	Klase string `json:"klase,omitempty"`

	// Child identity and class (parents).
	VaikoVardas  string `json:"vaikoVardas,omitempty"`
	VaikoPavarde string `json:"vaikoPavarde,omitempty"`
	VaikoKlase   string `json:"vaikoKlase,omitempty"`

	// Subject taught (teachers).
	DalykoMokytojas string `json:"dalykoMokytojas,omitempty"`
}
