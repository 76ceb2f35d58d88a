package models

// Role is a user's access tier.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Capability names an action gated by role. Handlers check capabilities through
// Role.Can instead of comparing role strings inline.
type Capability string

const (
	CapModeratePosts   Capability = "moderate_posts"
	CapManageCatalog   Capability = "manage_catalog"
	CapManageSettings  Capability = "manage_settings"
	CapGrantPoints     Capability = "grant_points"
	CapViewRedemptions Capability = "view_redemptions"
	CapDeleteAnyPost   Capability = "delete_any_post"
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleModerator: {
		CapModeratePosts: true,
		CapDeleteAnyPost: true,
	},
	RoleAdmin: {
		CapModeratePosts:   true,
		CapManageCatalog:   true,
		CapManageSettings:  true,
		CapGrantPoints:     true,
		CapViewRedemptions: true,
		CapDeleteAnyPost:   true,
	},
}

// Can reports whether the role holds the given capability.
func (r Role) Can(cap Capability) bool {
	return roleCapabilities[r][cap]
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}
