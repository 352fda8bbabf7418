package handler

import (
	"context"

	"github.com/sysu-ecnc-dev/job-portal/backend/internal/domain"
)

type ContextKey string

// MyInfoCtx 下保存的是 auth 中间件从账户记录中读取的当前账户
const MyInfoCtx ContextKey = "myInfo"

func withMyInfo(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, MyInfoCtx, user)
}

// 未经过 auth 中间件时返回 nil
func myInfoFrom(ctx context.Context) *domain.User {
	user, _ := ctx.Value(MyInfoCtx).(*domain.User)
	return user
}
