package router

import (
	"github.com/ashureev/emotext/internal/domain"
)

// reachable lists the views each role may navigate to. The Home view is
// reachable while anonymous but stays locked: the prediction intent
// itself additionally requires the user role.
var reachable = map[domain.Role]map[domain.View]bool{
	domain.RoleAnonymous: {
		domain.ViewHome:         true,
		domain.ViewRegistration: true,
		domain.ViewLogin:        true,
		domain.ViewAbout:        true,
		domain.ViewAdmin:        true,
		domain.ViewMonitor:      true,
	},
	domain.RoleUser: {
		domain.ViewHome:    true,
		domain.ViewAbout:   true,
		domain.ViewMonitor: true,
		domain.ViewLogout:  true,
	},
	domain.RoleAdmin: {
		domain.ViewUserData: true,
		domain.ViewLogout:   true,
	},
}

// recordedViews are the views whose entry is written to the visit log.
// The login, registration and admin prompts are deliberately absent:
// they record a visit only once their target view is reached.
var recordedViews = map[domain.View]bool{
	domain.ViewHome:     true,
	domain.ViewAbout:    true,
	domain.ViewMonitor:  true,
	domain.ViewUserData: true,
}

// Reachable reports whether a role may land on a view.
func Reachable(role domain.Role, view domain.View) bool {
	return reachable[role][view]
}

// Recorded reports whether entering a view produces a PageVisitRecord.
func Recorded(view domain.View) bool {
	return recordedViews[view]
}
