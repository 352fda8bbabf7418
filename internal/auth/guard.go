package auth

import (
	"slices"

	"github.com/samber/oops"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/domain"
)

// Authorize 检查账户的角色是否在 roles 中，roles 为空表示任意已登录账户都可以访问
func Authorize(user *domain.User, roles ...domain.Role) error {
	if user == nil {
		return errUnauthenticated("用户未登录")
	}

	if len(roles) == 0 || slices.Contains(roles, user.Role) {
		return nil
	}

	return oops.Code(CodeForbidden).With("role", string(user.Role)).Errorf("%s 无权访问该资源", user.Role)
}
