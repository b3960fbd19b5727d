package rbac

// Default policy for the grading workflow API.
var RolePermissions = map[string][]string{
	"teacher": {
		"roster:read",
		"roster:write",
		"session:read",
		"session:write",
		"user:change_password",
	},
	"admin": {
		"*", // everything, including audit:read and users:list
	},
}
