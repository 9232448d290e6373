// Package store holds the client-side caches of server-owned records and the
// mutation entry points that keep them in sync.
package store

import (
	"context"

	"helpdesk/internal/failure"
	"helpdesk/internal/models"
	"helpdesk/internal/transport"
)

// API is the transport surface the collections use.
type API interface {
	Get(ctx context.Context, path string, out any, opts ...transport.CallOption) error
	Post(ctx context.Context, path string, body, out any, opts ...transport.CallOption) error
	Patch(ctx context.Context, path string, body, out any, opts ...transport.CallOption) error
	Delete(ctx context.Context, path string, opts ...transport.CallOption) error
}

// Principal yields the session user the authorization gate is asked about.
type Principal interface {
	CurrentUser() *models.User
}

// errReset reports a read whose response arrived after the caches were reset
// by a logout. The records are dropped rather than handed to the next session.
func errReset(op string) error {
	return failure.New(failure.AuthenticationFailure, op, "session ended before the response arrived")
}

type keyed interface {
	Key() int64
}

// indexOf returns the position of id in list or -1.
func indexOf[T keyed](list []T, id int64) int {
	for i, v := range list {
		if v.Key() == id {
			return i
		}
	}
	return -1
}

// appendUnique appends v, or replaces the entry with the same id in place.
func appendUnique[T keyed](list []T, v T) []T {
	if i := indexOf(list, v.Key()); i >= 0 {
		list[i] = v
		return list
	}
	return append(list, v)
}

// prependUnique puts v first, dropping any older entry with the same id.
func prependUnique[T keyed](list []T, v T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, v)
	for _, x := range list {
		if x.Key() != v.Key() {
			out = append(out, x)
		}
	}
	return out
}

func removeID[T keyed](list []T, id int64) []T {
	out := make([]T, 0, len(list))
	for _, x := range list {
		if x.Key() != id {
			out = append(out, x)
		}
	}
	return out
}

// dedupe keeps the first occurrence of every id.
func dedupe[T keyed](list []T) []T {
	seen := make(map[int64]struct{}, len(list))
	out := make([]T, 0, len(list))
	for _, x := range list {
		if _, ok := seen[x.Key()]; ok {
			continue
		}
		seen[x.Key()] = struct{}{}
		out = append(out, x)
	}
	return out
}

func clone[T any](list []T) []T {
	out := make([]T, len(list))
	copy(out, list)
	return out
}
