package dashauth

import (
	"context"

	"github.com/MrEthical07/dashauth/internal/credstore"
)

// seed hashes and writes users when the store holds no accounts yet.
func (e *Engine) seed(ctx context.Context, users []SeedUser) error {
	if len(users) == 0 {
		return nil
	}
	existing, err := e.users.List(ctx)
	if err != nil {
		return e.mapStoreErr(err)
	}
	if len(existing) > 0 {
		return nil
	}

	candidates := make([]credstore.Candidate, 0, len(users))
	for _, u := range users {
		hash, err := e.hasher.Hash(u.Password)
		if err != nil {
			return err
		}
		candidates = append(candidates, credstore.Candidate{
			Name:         u.Name,
			Email:        u.Email,
			PasswordHash: hash,
			Role:         string(u.Role),
		})
	}

	seeded, err := e.users.Seed(ctx, candidates)
	if err != nil {
		return e.mapStoreErr(err)
	}
	if seeded {
		e.logger.Info("dashauth: seeded demo users", "count", len(candidates))
	}
	return nil
}
