// Package cli implements the dashauth command-line client. Every command
// runs against the engine's persisted current session, so a login in one
// invocation is visible to the next.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MrEthical07/dashauth"
)

// ErrUsage is returned for an unknown command or malformed arguments.
var ErrUsage = errors.New("usage error")

type command struct {
	args string
	help string
	run  func(ctx context.Context, a *App, fs *flag.FlagSet, args []string) error
}

// App dispatches subcommands to an engine.
type App struct {
	engine *dashauth.Engine
	out    io.Writer
}

// NewApp returns an App writing its output to out.
func NewApp(engine *dashauth.Engine, out io.Writer) *App {
	return &App{engine: engine, out: out}
}

var commands = map[string]command{
	"login":         {"-email E -password P", "sign in and remember the session", runLogin},
	"logout":        {"", "end the current session", runLogout},
	"whoami":        {"", "show the signed-in user", runWhoami},
	"register":      {"-name N -email E -password P", "create an account", runRegister},
	"users":         {"", "list accounts", runUsers},
	"user-update":   {"-id ID [-name N] [-email E] [-role R]", "change a profile", runUserUpdate},
	"user-status":   {"-id ID [-status active|inactive]", "set or toggle an account status", runUserStatus},
	"user-delete":   {"-id ID", "delete an account", runUserDelete},
	"sessions":      {"[-id ID]", "list sessions of a user (default: yourself)", runSessions},
	"revoke":        {"[-id ID] -session SID", "revoke one session", runRevoke},
	"passwd":        {"-old P -new P", "change your password", runPasswd},
	"reset-request": {"-email E", "start a password reset", runResetRequest},
	"reset-verify":  {"-reset ID -code C", "verify a reset code", runResetVerify},
	"reset-confirm": {"-reset ID -password P", "set the new password", runResetConfirm},
	"stats":         {"", "show dashboard counters", runStats},
	"strength":      {"-password P", "score a password", runStrength},
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.Usage()
		return ErrUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		a.Usage()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(a.out)
	return cmd.run(ctx, a, fs, args[1:])
}

// Usage prints the command list.
func (a *App) Usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(a.out, "usage: dashauth [global flags] <command> [flags]")
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, name := range names {
		c := commands[name]
		fmt.Fprintf(tw, "  %s %s\t%s\n", name, c.args, c.help)
	}
	_ = tw.Flush()
}

func parse(fs *flag.FlagSet, args []string, required ...string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	for _, name := range required {
		if f := fs.Lookup(name); f == nil || f.Value.String() == "" || f.Value.String() == "0" {
			return fmt.Errorf("%w: -%s is required", ErrUsage, name)
		}
	}
	return nil
}

// self resolves the signed-in user, failing when nobody is.
func (a *App) self(ctx context.Context) (*dashauth.User, error) {
	u, err := a.engine.ResolveCurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, dashauth.ErrUnauthorized
	}
	return u, nil
}

// userOrSelf returns id, or the signed-in user's id when id is zero.
func (a *App) userOrSelf(ctx context.Context, id int64) (int64, error) {
	if id != 0 {
		return id, nil
	}
	u, err := a.self(ctx)
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

func (a *App) printUser(u *dashauth.User) {
	fmt.Fprintf(a.out, "id:       %d\n", u.ID)
	fmt.Fprintf(a.out, "name:     %s\n", u.Name)
	fmt.Fprintf(a.out, "email:    %s\n", u.Email)
	fmt.Fprintf(a.out, "role:     %s\n", u.Role)
	fmt.Fprintf(a.out, "status:   %s\n", u.Status)
	fmt.Fprintf(a.out, "sessions: %d\n", len(u.Sessions))
	fmt.Fprintf(a.out, "last:     %s\n", formatTime(u.LastLogin))
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(time.RFC3339)
}

func joinPerms(perms []string) string {
	if len(perms) == 0 {
		return "-"
	}
	return strings.Join(perms, ",")
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }
