package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sysu-ecnc-dev/job-portal/backend/internal/domain"
)

type ProfileInput struct {
	Name        string        `json:"name"`
	Email       string        `json:"email" validate:"omitempty,email"`
	Phone       string        `json:"phone"`
	Address     string        `json:"address"`
	Niches      domain.Niches `json:"niches"`
	CoverLetter *string       `json:"coverLetter"`
	Resume      []byte        `json:"-"`
}

// 必填字段为空表示不修改，求职信为 nil 表示不修改、为空字符串表示清空，角色不允许修改
func (in ProfileInput) apply(user *domain.User) {
	if in.Name != "" {
		user.Name = in.Name
	}
	if in.Email != "" {
		user.Email = in.Email
	}
	if in.Phone != "" {
		user.Phone = in.Phone
	}
	if in.Address != "" {
		user.Address = in.Address
	}
	if in.CoverLetter != nil {
		user.CoverLetter = *in.CoverLetter
	}
	if in.Niches.Complete() {
		user.Niches = in.Niches
	}
}

type PasswordInput struct {
	OldPassword     string `json:"oldPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

func accountLockKey(userID int64) string {
	return fmt.Sprintf("lock:account:%d", userID)
}

func (s *Service) lockAccount(ctx context.Context, userID int64) (func(), error) {
	unlock, err := s.locker.Lock(ctx, accountLockKey(userID))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errEditConflict("账户正在被修改，请稍后重试")
		}
		return nil, err
	}
	return unlock, nil
}

// Attach 把简历上传到外部存储并返回新的引用，此时还没有任何账户引用它
func (s *Service) Attach(ctx context.Context, content []byte) (*domain.Resume, error) {
	resume, err := s.assets.Upload(ctx, ResumeNamespace, content)
	if err != nil {
		return nil, errAssetUploadFailed(err)
	}
	return resume, nil
}

// Replace 为账户换上新的简历
func (s *Service) Replace(ctx context.Context, userID int64, content []byte) (*domain.User, error) {
	unlock, err := s.lockAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, s.storeError(err, "")
	}

	if err := s.replaceLocked(ctx, user, content); err != nil {
		return nil, err
	}
	return user, nil
}

// 先上传新简历并写入账户，确认成功后才删除旧简历，失败时账户保留原来的简历
func (s *Service) replaceLocked(ctx context.Context, user *domain.User, content []byte) error {
	previous := user.Resume

	resume, err := s.Attach(ctx, content)
	if err != nil {
		return err
	}

	user.Resume = resume
	if err := s.store.UpdateUser(ctx, user); err != nil {
		user.Resume = previous
		s.deleteAsset(ctx, resume.PublicID)
		return s.storeError(err, user.Email)
	}

	if previous != nil {
		s.deleteAsset(ctx, previous.PublicID)
	}
	return nil
}

// 删除失败只记录日志，不影响调用方
func (s *Service) deleteAsset(ctx context.Context, publicID string) {
	if err := s.assets.Delete(context.WithoutCancel(ctx), publicID); err != nil {
		s.logger.Warn("删除简历失败", slog.String("code", CodeAssetDeleteFailed), slog.String("public_id", publicID), slog.String("error", err.Error()))
	}
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*domain.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, s.validationError(err)
	}

	unlock, err := s.lockAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, s.storeError(err, "")
	}

	if user.Role == domain.RoleJobSeeker && !in.Niches.Complete() {
		return nil, errMissingField("niches", "求职者必须填写三个职位偏好")
	}

	in.apply(user)

	if len(in.Resume) > 0 {
		if err := s.replaceLocked(ctx, user, in.Resume); err != nil {
			return nil, err
		}
		return user, nil
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, s.storeError(err, user.Email)
	}
	return user, nil
}

// UpdatePassword 修改密码后签发新的会话，旧的会话不会被吊销，直到自然过期
func (s *Service) UpdatePassword(ctx context.Context, userID int64, in PasswordInput) (*domain.User, Session, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, Session{}, s.validationError(err)
	}

	unlock, err := s.lockAccount(ctx, userID)
	if err != nil {
		return nil, Session{}, err
	}
	defer unlock()

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, Session{}, s.storeError(err, "")
	}

	ok, err := s.hasher.Verify(in.OldPassword, user.PasswordHash)
	if err != nil {
		return nil, Session{}, err
	}
	if !ok {
		return nil, Session{}, errInvalidCredentials()
	}

	if in.NewPassword != in.ConfirmPassword {
		return nil, Session{}, errPasswordMismatch()
	}

	if err := s.setPassword(ctx, user, in.NewPassword); err != nil {
		return nil, Session{}, err
	}

	session, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, Session{}, err
	}

	return user, session, nil
}

// ResetPassword 用于验证码校验通过之后直接设置新密码
func (s *Service) ResetPassword(ctx context.Context, email, password string) (*domain.User, error) {
	if password == "" {
		return nil, errMissingField("password", "password为必填字段")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, s.resetLookupError(err, email)
	}

	unlock, err := s.lockAccount(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// 拿到锁之后重新读取，避免覆盖期间的修改
	user, err = s.store.GetUserByID(ctx, user.ID)
	if err != nil {
		return nil, s.resetLookupError(err, email)
	}

	if err := s.setPassword(ctx, user, password); err != nil {
		return nil, err
	}
	return user, nil
}

// 重置密码不是会话内的操作，账户不存在时不能回答 UNAUTHENTICATED
func (s *Service) resetLookupError(err error, email string) error {
	if errors.Is(err, domain.ErrRecordNotFound) {
		return errInvalidOTP()
	}
	return s.storeError(err, email)
}

func (s *Service) setPassword(ctx context.Context, user *domain.User, password string) error {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	user.PasswordHash = passwordHash
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return s.storeError(err, user.Email)
	}
	return nil
}
