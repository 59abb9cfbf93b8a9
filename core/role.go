package core

// Role is one of the closed set of account roles.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// ParseRole validates a role string from the boundary. An empty string
// defaults to patient; anything outside the closed set is rejected.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "":
		return RolePatient, nil
	case RolePatient:
		return RolePatient, nil
	case RoleDoctor:
		return RoleDoctor, nil
	default:
		return "", ErrUnknownRole
	}
}

func (r Role) String() string {
	return string(r)
}
