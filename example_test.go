package dashauth_test

import (
	"context"
	"fmt"

	"github.com/MrEthical07/dashauth"
	"github.com/MrEthical07/dashauth/kv"
)

func exampleConfig() dashauth.Config {
	cfg := dashauth.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Parallelism = 1
	return cfg
}

// ExampleEngine_Login signs in one of the seeded demo accounts and reads
// the session back through the current-session pointer.
func ExampleEngine_Login() {
	ctx := context.Background()
	engine, err := dashauth.New().
		WithConfig(exampleConfig()).
		WithStore(kv.NewMemory()).
		Build(ctx)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer engine.Close()

	if _, err := engine.Login(ctx, "mod@demo.com", "mod123"); err != nil {
		fmt.Println(err)
		return
	}
	u, _ := engine.ResolveCurrentUser(ctx)
	fmt.Println(u.Name, u.Role, u.Avatar, len(u.Sessions))

	_ = engine.Logout(ctx)
	u, _ = engine.ResolveCurrentUser(ctx)
	fmt.Println(u == nil)
	// Output:
	// John Moderator moderator J 1
	// true
}

func ExamplePasswordStrength() {
	for _, s := range []string{"abc", "secret12", "Secret12", "Secret12!"} {
		score, label := dashauth.PasswordStrength(s)
		fmt.Println(s, score, label)
	}
	// Output:
	// abc 1 very-weak
	// secret12 3 medium
	// Secret12 4 strong
	// Secret12! 5 very-strong
}

// ExampleWithAccessToken runs an account operation as the bearer of a
// token instead of the current session.
func ExampleWithAccessToken() {
	ctx := context.Background()
	engine, err := dashauth.New().
		WithConfig(exampleConfig()).
		WithStore(kv.NewMemory()).
		Build(ctx)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer engine.Close()

	res, err := engine.Login(ctx, "user@demo.com", "user123")
	if err != nil {
		fmt.Println(err)
		return
	}
	_, err = engine.ListUsers(dashauth.WithAccessToken(ctx, res.Token))
	fmt.Println(err)
	// Output:
	// permission denied
}
