package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/data"
)

// seedUsers creates one user per "First Last" name when the store has no
// users yet. It returns the number of users created.
func seedUsers(ctx context.Context, users data.UserRepository, names []string, log *slog.Logger) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}

	existing, err := users.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	if len(existing) > 0 {
		log.Info("users already present; skipping seed", "count", len(existing))
		return 0, nil
	}

	created := 0
	for _, name := range names {
		first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
		if first == "" {
			continue
		}
		u, err := users.CreateUser(ctx, first, last)
		if err != nil {
			return created, fmt.Errorf("seed user %q: %w", name, err)
		}
		log.Info("seeded user", "user_id", u.ID, "name", name)
		created++
	}
	return created, nil
}
