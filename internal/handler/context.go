package handler

import (
	"context"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
)

type ContextKey string

var (
	RequestIDCtxKey ContextKey = "requestID"
	ActorCtxKey     ContextKey = "actor"
)

// actorFrom 返回 auth 中间件解析出的当前用户
func actorFrom(ctx context.Context) *domain.User {
	actor, _ := ctx.Value(ActorCtxKey).(*domain.User)
	return actor
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDCtxKey).(string)
	return id
}
