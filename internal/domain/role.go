package domain

// Role names. A user holds zero or more roles; the effective permission
// set is the union of the held roles' permissions.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Permission names, one per guarded capability. Route guards check these
// against the caller's effective set; row-level ownership is checked
// separately and is never granted by a permission.
const (
	PermViewTasks   = "view tasks"
	PermCreateTasks = "create tasks"
	PermEditTasks   = "edit tasks"
	PermDeleteTasks = "delete tasks"
	PermManageUsers = "manage users"
)
