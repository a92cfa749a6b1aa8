package model

// Role is the portal role, derived at login from the backend role and team ownership.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleTeamAdmin Role = "team_admin"
	RoleUser      Role = "user"
)

// Capability represents a string code for something a role may see or do.
type Capability string

const (
	CapDashboardView      Capability = "dashboard:view"
	CapSettingsManage     Capability = "settings:manage"
	CapBillingManage      Capability = "billing:manage"
	CapQuizzesCreate      Capability = "quizzes:create"
	CapQuizzesRead        Capability = "quizzes:read"
	CapQuizzesTake        Capability = "quizzes:take"
	CapResultsRead        Capability = "results:read"
	CapTeamManage         Capability = "team:manage"
	CapPlansManage        Capability = "plans:manage"
	CapUsersManage        Capability = "users:manage"
	CapVerticalsManage    Capability = "verticals:manage"
	CapQuizzesModerate    Capability = "quizzes:moderate"
	CapCheckoutsReconcile Capability = "checkouts:reconcile"
)

var userCapabilities = []Capability{
	CapDashboardView,
	CapSettingsManage,
	CapBillingManage,
	CapQuizzesCreate,
	CapQuizzesRead,
	CapQuizzesTake,
	CapResultsRead,
}

// RoleCapabilities is the declarative permission table.
var RoleCapabilities = map[Role][]Capability{
	RoleUser:      userCapabilities,
	RoleTeamAdmin: append(append([]Capability{}, userCapabilities...), CapTeamManage),
	RoleAdmin: {
		CapDashboardView,
		CapSettingsManage,
		CapBillingManage,
		CapQuizzesTake,
		CapPlansManage,
		CapUsersManage,
		CapVerticalsManage,
		CapQuizzesModerate,
		CapCheckoutsReconcile,
	},
}

// ResolveRole maps a backend user onto a portal role.
func ResolveRole(backendRole BackendRole, isTeamAdmin bool) Role {
	switch {
	case backendRole == BackendRoleAdmin:
		return RoleAdmin
	case isTeamAdmin:
		return RoleTeamAdmin
	default:
		return RoleUser
	}
}

// CapabilitiesFor returns the capability codes granted to a role.
func CapabilitiesFor(role Role) []string {
	caps := RoleCapabilities[role]
	out := make([]string, 0, len(caps))
	for _, c := range caps {
		out = append(out, string(c))
	}
	return out
}

// MenuItem is one sidebar entry.
type MenuItem struct {
	Title    string     `json:"title"`
	URL      string     `json:"url"`
	Icon     string     `json:"icon"`
	Requires Capability `json:"-"`
}

// Menu is the full sidebar in display order. Items are shown when the
// session holds the required capability.
var Menu = []MenuItem{
	{Title: "Dashboard", URL: "/dashboard", Icon: "home", Requires: CapDashboardView},
	{Title: "Create Test", URL: "/dashboard/create-test", Icon: "inbox", Requires: CapQuizzesCreate},
	{Title: "Settings", URL: "/dashboard/settings", Icon: "settings", Requires: CapSettingsManage},
	{Title: "Billing Settings", URL: "/dashboard/billing", Icon: "credit-card", Requires: CapBillingManage},
	{Title: "View Results", URL: "/dashboard/candidate-tests", Icon: "calendar", Requires: CapResultsRead},
	{Title: "Show All Tests", URL: "/dashboard/all-tests", Icon: "search", Requires: CapQuizzesCreate},
	{Title: "Manage Subscriptions", URL: "/dashboard/admin/manage-subscription", Icon: "inbox", Requires: CapPlansManage},
	{Title: "View Users", URL: "/dashboard/admin/view-users", Icon: "search", Requires: CapUsersManage},
	{Title: "Manage Verticals", URL: "/dashboard/admin/manage-verticals", Icon: "layers", Requires: CapVerticalsManage},
	{Title: "View User Quizzes", URL: "/dashboard/admin/view-user-quiz", Icon: "list", Requires: CapQuizzesModerate},
	{Title: "Reconcile Payments", URL: "/dashboard/admin/checkouts", Icon: "alert-triangle", Requires: CapCheckoutsReconcile},
	{Title: "Add Users", URL: "/dashboard/team-admin/add-users", Icon: "settings", Requires: CapTeamManage},
	{Title: "View Team Members", URL: "/dashboard/team-admin/view-team-members", Icon: "settings", Requires: CapTeamManage},
}
