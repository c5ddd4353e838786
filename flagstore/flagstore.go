// Package flagstore persists moderation flags (private, label-like string
// values) keyed by subject: a user ID or a content ID.
package flagstore

import (
	"context"
)

type FlagStore interface {
	Get(ctx context.Context, key string) ([]string, error)
	Add(ctx context.Context, key string, flags []string) error
	Remove(ctx context.Context, key string, flags []string) error
}

// Subject key helpers, to keep user and content flags from colliding.
func UserKey(userID string) string {
	return "user/" + userID
}

func ContentKey(contentID string) string {
	return "content/" + contentID
}
