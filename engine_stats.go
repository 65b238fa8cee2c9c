package dashauth

import (
	"context"

	"github.com/MrEthical07/dashauth/permission"
)

// Stats returns the dashboard counters of the calling user. TotalUsers is
// filled only for roles allowed to see it.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	act, err := e.actor(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{ActiveSessions: len(act.Sessions)}
	if act.LastLogin != nil {
		t := *act.LastLogin
		st.LastLogin = &t
	}
	if e.roles.Allowed(act.Role, permission.StatsTotal) {
		users, err := e.users.List(ctx)
		if err != nil {
			return nil, e.mapStoreErr(err)
		}
		st.TotalUsers = len(users)
	}
	return st, nil
}
