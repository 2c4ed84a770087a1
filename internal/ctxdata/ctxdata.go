package ctxdata

import (
	"context"
)

type traceIDKey struct{}
type clientIPKey struct{}

var (
	traceIDKeyInstance  = traceIDKey{}
	clientIPKeyInstance = clientIPKey{}
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKeyInstance, traceID)
}

func GetTraceID(ctx context.Context) (string, bool) {
	v := ctx.Value(traceIDKeyInstance)
	traceID, ok := v.(string)
	return traceID, ok
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKeyInstance, ip)
}

func GetClientIP(ctx context.Context) (string, bool) {
	v := ctx.Value(clientIPKeyInstance)
	ip, ok := v.(string)
	return ip, ok
}
