package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/MrEthical07/dashauth"
)

func runLogin(ctx context.Context, a *App, fs *flag.FlagSet, args []string) error {
	email := fs.String("email", "", "account email")
	secret := fs.String("password", "", "account password")
	if err := parse(fs, args, "email", "password"); err != nil {
		return err
	}

	res, err := a.engine.Login(ctx, *email, *secret)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "signed in as %s (%s), session %s valid until %s\n",
		res.User.Name, res.User.Role, res.SessionID, res.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}

func runLogout(ctx context.Context, a *App, fs *flag.FlagSet, args []string) error {
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := a.engine.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "signed out")
	return nil
}

func runWhoami(ctx context.Context, a *App, fs *flag.FlagSet, args []string) error {
	if err := parse(fs, args); err != nil {
		return err
	}
	u, err := a.engine.ResolveCurrentUser(ctx)
	if err != nil {
		return err
	}
	if u == nil {
		fmt.Fprintln(a.out, "not signed in")
		return nil
	}
	a.printUser(u)
	fmt.Fprintf(a.out, "perms:    %s\n", joinPerms(a.engine.Permissions(u.Role)))
	return nil
}

func runRegister(ctx context.Context, a *App, fs *flag.FlagSet, args []string) error {
	var req dashauth.RegisterRequest
	fs.StringVar(&req.Name, "name", "", "display name")
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.Password, "password", "", "account password")
	if err := parse(fs, args, "name", "email", "password"); err != nil {
		return err
	}

	u, err := a.engine.Register(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "registered user %d (%s)\n", u.ID, u.Email)
	return nil
}

func runUsers(ctx context.Context, a *App, fs *flag.FlagSet, args []string) error {
	if err := parse(fs, args); err != nil {
		return err
	}
	users, err := a.engine.ListUsers(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tSTATUS\tSESSIONS\tLAST LOGIN")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			u.ID, u.Name, u.Email, u.Role, u.Status, len(u.Sessions), formatTime(u.LastLogin))
	}
	return tw.Flush()
}

func runUserUpdate(ctx context.Context, a *App, fs *flag.FlagSet, args []string) error {
	id := fs.Int64("id", 0, "user id (default: yourself)")
	name := fs.String("name", "", "new display name")
	email := fs.String("email", "", "new email")
	role := fs.String("role", "", "new role (admin only)")
	if err := parse(fs, args); err != nil {
		return err
	}

	var upd dashauth.ProfileUpdate
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			upd.Name = name
		case "email":
			upd.Email = email
		case "role":
			r := dashauth.Role(*role)
			upd.Role = &r
		}
	})

	target, err := a.userOrSelf(ctx, *id)
	if err != nil {
		return err
	}
	u, err := a.engine.UpdateProfile(ctx, target, upd)
	if err != nil {
		return err
	}
	a.printUser(u)
	return nil
}

func runUserStatus(ctx context.Context, a *App, fs *flag.FlagSet, args []string) error {
	id := fs.Int64("id", 0, "user id")
	status := fs.String("status", "", "active or inactive; toggles when empty")
	if err := parse(fs, args, "id"); err != nil {
		return err
	}

	var (
		u   *dashauth.User
		err error
	)
	if *status == "" {
		u, err = a.engine.ToggleStatus(ctx, *id)
	} else {
		u, err = a.engine.SetStatus(ctx, *id, dashauth.Status(*status))
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "user %d is now %s\n", u.ID, u.Status)
	return nil
}

func runUserDelete(ctx context.Context, a *App, fs *flag.FlagSet, args []string) error {
	id := fs.Int64("id", 0, "user id")
	if err := parse(fs, args, "id"); err != nil {
		return err
	}
	if err := a.engine.DeleteUser(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted user %s\n", formatID(*id))
	return nil
}

func runSessions(ctx context.Context, a *App, fs *flag.FlagSet, args []string) error {
	id := fs.Int64("id", 0, "user id (default: yourself)")
	if err := parse(fs, args); err != nil {
		return err
	}
	target, err := a.userOrSelf(ctx, *id)
	if err != nil {
		return err
	}
	sessions, err := a.engine.ListSessions(ctx, target)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDEVICE\tIP\tCREATED\tLAST ACTIVITY")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Device, s.IP, s.CreatedAt.Local().Format(time.RFC3339), s.LastActivity.Local().Format(time.RFC3339))
	}
	return tw.Flush()
}

func runRevoke(ctx context.Context, a *App, fs *flag.FlagSet, args []string) error {
	id := fs.Int64("id", 0, "user id (default: yourself)")
	sid := fs.String("session", "", "session id")
	if err := parse(fs, args, "session"); err != nil {
		return err
	}
	target, err := a.userOrSelf(ctx, *id)
	if err != nil {
		return err
	}
	if err := a.engine.RevokeSession(ctx, target, *sid); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "revoked session %s\n", *sid)
	return nil
}

func runPasswd(ctx context.Context, a *App, fs *flag.FlagSet, args []string) error {
	oldSecret := fs.String("old", "", "current password")
	newSecret := fs.String("new", "", "new password")
	if err := parse(fs, args, "old", "new"); err != nil {
		return err
	}
	u, err := a.self(ctx)
	if err != nil {
		return err
	}
	if err := a.engine.ChangePassword(ctx, u.ID, *oldSecret, *newSecret); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "password changed")
	return nil
}

func runResetRequest(ctx context.Context, a *App, fs *flag.FlagSet, args []string) error {
	email := fs.String("email", "", "account email")
	if err := parse(fs, args, "email"); err != nil {
		return err
	}
	ticket, err := a.engine.RequestReset(ctx, *email)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "reset id %s, code valid until %s\n", ticket.ResetID, ticket.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}

func runResetVerify(ctx context.Context, a *App, fs *flag.FlagSet, args []string) error {
	resetID := fs.String("reset", "", "reset id")
	code := fs.String("code", "", "six digit code")
	if err := parse(fs, args, "reset", "code"); err != nil {
		return err
	}
	res, err := a.engine.VerifyCode(ctx, *resetID, *code)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "code accepted for user %d\n", res.UserID)
	return nil
}

func runResetConfirm(ctx context.Context, a *App, fs *flag.FlagSet, args []string) error {
	resetID := fs.String("reset", "", "reset id")
	secret := fs.String("password", "", "new password")
	if err := parse(fs, args, "reset", "password"); err != nil {
		return err
	}
	if err := a.engine.ResetPassword(ctx, *resetID, *secret); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "password reset, sign in again")
	return nil
}

func runStats(ctx context.Context, a *App, fs *flag.FlagSet, args []string) error {
	if err := parse(fs, args); err != nil {
		return err
	}
	st, err := a.engine.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "total users:     %d\n", st.TotalUsers)
	fmt.Fprintf(a.out, "active sessions: %d\n", st.ActiveSessions)
	fmt.Fprintf(a.out, "last login:      %s\n", formatTime(st.LastLogin))
	return nil
}

func runStrength(_ context.Context, a *App, fs *flag.FlagSet, args []string) error {
	secret := fs.String("password", "", "password to score")
	if err := parse(fs, args, "password"); err != nil {
		return err
	}
	score, label := dashauth.PasswordStrength(*secret)
	fmt.Fprintf(a.out, "%d/5 %s\n", score, label)
	return nil
}
