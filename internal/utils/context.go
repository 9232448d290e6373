package utils

import "context"

type CtxKey string

func GetString(ctx context.Context, key any) (string, bool) {
	v := ctx.Value(key)
	s, ok := v.(string)
	return s, ok
}

func GetInt64(ctx context.Context, key any) (int64, bool) {
	v := ctx.Value(key)
	n, ok := v.(int64)
	return n, ok
}
