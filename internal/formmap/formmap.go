// Package formmap classifies visible form controls into semantic roles
// using a declarative, ordered rule table. Scanning happens in the browser;
// classification is pure Go so it can be tested without one.
package formmap

// Role is a semantic form-field role.
type Role string

const (
	RoleFirstName Role = "firstName"
	RoleLastName  Role = "lastName"
	RoleEmail     Role = "email"
	RoleCity      Role = "city"
	RoleAnswer    Role = "answer"
)

// Roles lists all roles in fill order.
var Roles = []Role{RoleFirstName, RoleLastName, RoleEmail, RoleCity, RoleAnswer}

// Control is one scanned form control. All attribute values are lowercased
// by the scanner; Selector is stable across rescans of the same document.
type Control struct {
	Selector        string `json:"sel"`
	Tag             string `json:"tag"`
	Type            string `json:"type"`
	Name            string `json:"name"`
	ID              string `json:"id"`
	Placeholder     string `json:"ph"`
	Aria            string `json:"aria"`
	Label           string `json:"lab"`
	ContentEditable bool   `json:"editable"`
}

// Mapping is the result of classification. Any role may be absent; a missing
// role is not an error and never blocks the other roles.
type Mapping struct {
	Selectors map[Role]string
	Controls  []Control // raw inventory for diagnostics
}

// Selector returns the selector for a role, or "" when unresolved.
func (m *Mapping) Selector(role Role) string {
	return m.Selectors[role]
}
