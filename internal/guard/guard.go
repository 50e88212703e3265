package guard

import (
	"sweetshop/internal/models"
	"sweetshop/internal/session"
)

// Page routes served by the gateway.
const (
	PathRoot    = "/"
	PathLogin   = "/login"
	PathCatalog = "/homepage"
	PathAdmin   = "/admin"
)

// Pages a decision can render.
const (
	PageLogin   = "login"
	PageCatalog = "catalog"
	PageAdmin   = "admin"
)

type Action int

const (
	ActionRender Action = iota
	ActionRedirect
)

// Decision is the outcome of evaluating a navigation: either render the
// named page or redirect to Target.
type Decision struct {
	Action Action
	Page   string
	Target string
}

func render(page string) Decision { return Decision{Action: ActionRender, Page: page} }
func redirect(to string) Decision { return Decision{Action: ActionRedirect, Target: to} }

// Decide maps a requested path and the current session to a navigation
// outcome. It is pure and must be consulted on every navigation and after
// every session transition; decisions are never cached.
//
// An authenticated non-admin requesting the admin area is sent back to the
// root, and an admin requesting the customer catalog likewise: each role
// has exactly one home.
func Decide(path string, s session.Session) Decision {
	switch path {
	case PathRoot, PathLogin:
		if !s.IsAuthenticated {
			return render(PageLogin)
		}
		return redirect(HomePath(s.Role))
	case PathCatalog:
		if s.IsAuthenticated && s.Role != string(models.RoleAdmin) {
			return render(PageCatalog)
		}
		return redirect(PathRoot)
	case PathAdmin:
		if s.IsAuthenticated && s.Role == string(models.RoleAdmin) {
			return render(PageAdmin)
		}
		return redirect(PathRoot)
	default:
		return redirect(PathRoot)
	}
}

// HomePath returns the landing page for a signed-in role.
func HomePath(role string) string {
	if role == string(models.RoleAdmin) {
		return PathAdmin
	}
	return PathCatalog
}
