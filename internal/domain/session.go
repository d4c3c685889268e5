package domain

// Role determines which views a session may reach.
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
)

// View is a named screen the session can be on.
type View string

const (
	ViewHome         View = "home"
	ViewRegistration View = "registration"
	ViewLogin        View = "login"
	ViewAbout        View = "about"
	ViewAdmin        View = "admin"
	ViewMonitor      View = "monitor"
	ViewUserData     View = "view_user_data"
	ViewLogout       View = "logout"
)

// Session is an immutable snapshot of a session's routing state. Every
// transition takes the current snapshot and returns the next one; the
// snapshot itself is never mutated in place.
type Session struct {
	Role     Role   `json:"role"`
	View     View   `json:"view"`
	Username string `json:"username,omitempty"`
}

// NewSession returns the initial session state: anonymous, on Home.
func NewSession() Session {
	return Session{Role: RoleAnonymous, View: ViewHome}
}

// Authenticated reports whether the session holds a non-anonymous role.
func (s Session) Authenticated() bool {
	return s.Role != RoleAnonymous
}
