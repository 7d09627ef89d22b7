package service

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Username generation policy. The candidate is derived from the full name;
// collisions get an incrementing suffix up to usernameMaxAttempts, after
// which a timestamp suffix guarantees uniqueness without looping further.
const (
	usernameMinLen      = 3
	usernameFallback    = "user"
	usernameMaxAttempts = 20
)

// usernameBase reduces a full name to lowercase alphanumerics. Names that
// reduce to fewer than usernameMinLen characters fall back to "user".
func usernameBase(fullName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(fullName) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() < usernameMinLen {
		return usernameFallback
	}
	return b.String()
}

// generateUsername probes the store for a free username derived from the
// full name. exists is the store's collision probe.
func generateUsername(ctx context.Context, exists func(context.Context, string) (bool, error), fullName string) (string, error) {
	base := usernameBase(fullName)
	candidate := base
	for i := 1; i <= usernameMaxAttempts; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return fmt.Sprintf("%s%d", base, time.Now().UnixNano()), nil
}
