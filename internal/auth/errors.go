package auth

import (
	"fmt"

	"github.com/samber/oops"
)

const (
	CodeMissingField       = "MISSING_FIELD"
	CodeInvalidField       = "INVALID_FIELD"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeRoleMismatch       = "ROLE_MISMATCH"
	CodePasswordMismatch   = "PASSWORD_MISMATCH"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeForbidden          = "FORBIDDEN"
	CodeAssetUploadFailed  = "ASSET_UPLOAD_FAILED"
	CodeAssetDeleteFailed  = "ASSET_DELETE_FAILED"
	CodeEditConflict       = "EDIT_CONFLICT"
)

// 账户不存在和密码错误使用同一条信息，避免泄露是哪一部分出错
const invalidCredentialsMessage = "邮箱或密码错误"

// ErrorCode 返回错误链中的错误码，非 oops 错误返回空字符串
func ErrorCode(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		return fmt.Sprint(oopsErr.Code())
	}
	return ""
}

func errMissingField(field, msg string) error {
	return oops.Code(CodeMissingField).With("field", field).Errorf("%s", msg)
}

func errInvalidField(field, msg string) error {
	return oops.Code(CodeInvalidField).With("field", field).Errorf("%s", msg)
}

func errDuplicateEmail(email string) error {
	return oops.Code(CodeDuplicateEmail).With("email", email).Errorf("该邮箱已被注册")
}

func errInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf(invalidCredentialsMessage)
}

func errRoleMismatch() error {
	return oops.Code(CodeRoleMismatch).Errorf("用户角色不匹配")
}

func errPasswordMismatch() error {
	return oops.Code(CodePasswordMismatch).Errorf("两次输入的新密码不一致")
}

func errUnauthenticated(msg string) error {
	return oops.Code(CodeUnauthenticated).Errorf("%s", msg)
}

func errEditConflict(msg string) error {
	return oops.Code(CodeEditConflict).Errorf("%s", msg)
}

// 重置密码时账户不存在与验证码错误使用同一条信息
func errInvalidOTP() error {
	return oops.Code(CodeInvalidField).With("field", "otp").Errorf("验证码错误")
}

func errAssetUploadFailed(err error) error {
	return oops.Code(CodeAssetUploadFailed).Wrapf(err, "简历上传失败")
}
