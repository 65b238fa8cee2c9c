package permission

// Dashboard roles.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleUser      = "user"
)

// Dashboard permissions.
const (
	UsersList      = "users.list"
	UsersDelete    = "users.delete"
	UsersStatus    = "users.status"
	UsersUpdateAny = "users.update_any"
	StatsTotal     = "stats.total_users"
)

// Dashboard returns a frozen RoleManager for the three dashboard roles.
// Admins hold every permission; moderators may list users and see totals;
// plain users hold none.
func Dashboard() *RoleManager {
	reg := NewRegistry()
	for _, p := range []string{UsersList, UsersDelete, UsersStatus, UsersUpdateAny, StatsTotal} {
		if _, err := reg.Register(p); err != nil {
			panic(err)
		}
	}
	reg.Freeze()

	rm := NewRoleManager(reg)
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(rm.RegisterRole(RoleAdmin, UsersList, UsersDelete, UsersStatus, UsersUpdateAny, StatsTotal))
	must(rm.RegisterRole(RoleModerator, UsersList, StatsTotal))
	must(rm.RegisterRole(RoleUser))
	rm.Freeze()
	return rm
}
