package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/domain"
)

func registerSeeker(t *testing.T, env *testEnv, resume []byte) *domain.User {
	t.Helper()
	in := jobSeekerInput("seeker@x.com", "secret1")
	in.Resume = resume
	user, _, err := env.svc.Register(context.Background(), in)
	require.NoError(t, err)
	return user
}

func TestAttach(t *testing.T) {
	env := newTestEnv(t)

	resume, err := env.svc.Attach(context.Background(), []byte("content"))
	require.NoError(t, err)
	assert.NotEmpty(t, resume.PublicID)
	assert.NotEmpty(t, resume.URL)
}

func TestReplace_FirstResume(t *testing.T) {
	env := newTestEnv(t)
	user := registerSeeker(t, env, nil)

	updated, err := env.svc.Replace(context.Background(), user.ID, []byte("v1"))
	require.NoError(t, err)
	require.NotNil(t, updated.Resume)
	assert.Empty(t, env.assets.deleted)

	stored, err := env.store.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Resume, stored.Resume)
}

func TestReplace_DeletesPrevious(t *testing.T) {
	env := newTestEnv(t)
	user := registerSeeker(t, env, []byte("v1"))
	old := user.Resume.PublicID

	updated, err := env.svc.Replace(context.Background(), user.ID, []byte("v2"))
	require.NoError(t, err)

	assert.NotEqual(t, old, updated.Resume.PublicID)
	assert.Equal(t, []string{old}, env.assets.deleted)
	assert.Equal(t, []string{updated.Resume.PublicID}, env.assets.liveIDs())
}

func TestReplace_UploadFailureKeepsPrevious(t *testing.T) {
	env := newTestEnv(t)
	user := registerSeeker(t, env, []byte("v1"))
	env.assets.uploadErr = errBoom

	_, err := env.svc.Replace(context.Background(), user.ID, []byte("v2"))
	assert.Equal(t, CodeAssetUploadFailed, ErrorCode(err))

	stored, err := env.store.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Resume, stored.Resume)
	assert.Equal(t, []string{user.Resume.PublicID}, env.assets.liveIDs())
}

func TestReplace_UpdateFailureRemovesNewAsset(t *testing.T) {
	env := newTestEnv(t)
	user := registerSeeker(t, env, []byte("v1"))
	env.store.updateErr = errBoom

	_, err := env.svc.Replace(context.Background(), user.ID, []byte("v2"))
	assert.ErrorIs(t, err, errBoom)

	stored, err := env.store.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Resume, stored.Resume)
	assert.Equal(t, []string{user.Resume.PublicID}, env.assets.liveIDs())
}

func TestReplace_DeleteFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	user := registerSeeker(t, env, []byte("v1"))
	env.assets.deleteErr = errBoom

	updated, err := env.svc.Replace(context.Background(), user.ID, []byte("v2"))
	require.NoError(t, err)
	assert.NotEqual(t, user.Resume.PublicID, updated.Resume.PublicID)
}

func TestReplace_UnknownAccount(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Replace(context.Background(), 999, []byte("v1"))
	assert.Equal(t, CodeUnauthenticated, ErrorCode(err))
	assert.Empty(t, env.assets.liveIDs())
}

func TestReplace_LockTimeout(t *testing.T) {
	env := newTestEnv(t)
	user := registerSeeker(t, env, nil)
	env.locker.err = fmt.Errorf("等待锁超时: %w", context.DeadlineExceeded)

	_, err := env.svc.Replace(context.Background(), user.ID, []byte("v1"))
	assert.Equal(t, CodeEditConflict, ErrorCode(err))
}

// 并发替换结束后只能剩下账户正在引用的那一份简历
func TestReplace_ConcurrentLeavesNoOrphans(t *testing.T) {
	env := newTestEnv(t)
	user := registerSeeker(t, env, []byte("v0"))

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Replace(context.Background(), user.ID, []byte(fmt.Sprintf("v%d", i+1)))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := env.store.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Resume)
	assert.Equal(t, []string{stored.Resume.PublicID}, env.assets.liveIDs())
	assert.Len(t, env.assets.deleted, n)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := registerSeeker(t, env, nil)

	t.Run("job seeker must keep three niches", func(t *testing.T) {
		_, err := env.svc.UpdateProfile(ctx, user.ID, ProfileInput{Name: "新名字"})
		assert.Equal(t, CodeMissingField, ErrorCode(err))
	})

	t.Run("invalid email", func(t *testing.T) {
		_, err := env.svc.UpdateProfile(ctx, user.ID, ProfileInput{Email: "bad", Niches: user.Niches})
		assert.Equal(t, CodeInvalidField, ErrorCode(err))
	})

	t.Run("updates fields and resume", func(t *testing.T) {
		niches := domain.Niches{FirstNiche: "数据分析", SecondNiche: "算法工程师", ThirdNiche: "产品经理"}
		updated, err := env.svc.UpdateProfile(ctx, user.ID, ProfileInput{
			Name:   "新名字",
			Niches: niches,
			Resume: []byte("v1"),
		})
		require.NoError(t, err)

		assert.Equal(t, "新名字", updated.Name)
		assert.Equal(t, "seeker@x.com", updated.Email)
		assert.Equal(t, niches, updated.Niches)
		assert.Equal(t, domain.RoleJobSeeker, updated.Role)
		require.NotNil(t, updated.Resume)
	})
}

func TestUpdateProfile_EmployerAndDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	employer, _, err := env.svc.Register(ctx, employerInput("boss@x.com", "secret1"))
	require.NoError(t, err)
	_, _, err = env.svc.Register(ctx, jobSeekerInput("taken@x.com", "secret1"))
	require.NoError(t, err)

	updated, err := env.svc.UpdateProfile(ctx, employer.ID, ProfileInput{Address: "深圳"})
	require.NoError(t, err)
	assert.Equal(t, "深圳", updated.Address)

	_, err = env.svc.UpdateProfile(ctx, employer.ID, ProfileInput{Email: "taken@x.com"})
	assert.Equal(t, CodeDuplicateEmail, ErrorCode(err))
}

func TestUpdateProfile_CoverLetter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := employerInput("boss@x.com", "secret1")
	in.CoverLetter = "旧的求职信"
	employer, _, err := env.svc.Register(ctx, in)
	require.NoError(t, err)

	updated, err := env.svc.UpdateProfile(ctx, employer.ID, ProfileInput{Address: "深圳"})
	require.NoError(t, err)
	assert.Equal(t, "旧的求职信", updated.CoverLetter)

	empty := ""
	updated, err = env.svc.UpdateProfile(ctx, employer.ID, ProfileInput{CoverLetter: &empty})
	require.NoError(t, err)
	assert.Empty(t, updated.CoverLetter)

	stored, err := env.store.GetUserByID(ctx, employer.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.CoverLetter)
}

func TestUpdatePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := registerSeeker(t, env, nil)

	t.Run("missing field", func(t *testing.T) {
		_, _, err := env.svc.UpdatePassword(ctx, user.ID, PasswordInput{OldPassword: "secret1", NewPassword: "n"})
		assert.Equal(t, CodeMissingField, ErrorCode(err))
	})

	t.Run("wrong old password", func(t *testing.T) {
		_, _, err := env.svc.UpdatePassword(ctx, user.ID, PasswordInput{OldPassword: "wrong", NewPassword: "n", ConfirmPassword: "n"})
		assert.Equal(t, CodeInvalidCredentials, ErrorCode(err))
	})

	t.Run("confirmation mismatch", func(t *testing.T) {
		_, _, err := env.svc.UpdatePassword(ctx, user.ID, PasswordInput{OldPassword: "secret1", NewPassword: "n1", ConfirmPassword: "n2"})
		assert.Equal(t, CodePasswordMismatch, ErrorCode(err))
	})

	t.Run("success", func(t *testing.T) {
		_, session, err := env.svc.UpdatePassword(ctx, user.ID, PasswordInput{OldPassword: "secret1", NewPassword: "secret2", ConfirmPassword: "secret2"})
		require.NoError(t, err)

		verified, err := env.sessions.Verify(ctx, session.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, verified.ID)

		_, _, err = env.svc.Login(ctx, LoginInput{Email: "seeker@x.com", Password: "secret1", Role: domain.RoleJobSeeker})
		assert.Equal(t, CodeInvalidCredentials, ErrorCode(err))

		_, _, err = env.svc.Login(ctx, LoginInput{Email: "seeker@x.com", Password: "secret2", Role: domain.RoleJobSeeker})
		assert.NoError(t, err)
	})
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registerSeeker(t, env, nil)

	_, err := env.svc.ResetPassword(ctx, "seeker@x.com", "")
	assert.Equal(t, CodeMissingField, ErrorCode(err))

	// 与验证码错误的回答一致，不暴露账户是否存在
	_, err = env.svc.ResetPassword(ctx, "nobody@x.com", "secret9")
	assert.Equal(t, CodeInvalidField, ErrorCode(err))
	assert.Equal(t, "验证码错误", err.Error())

	_, err = env.svc.ResetPassword(ctx, "seeker@x.com", "secret9")
	require.NoError(t, err)

	_, _, err = env.svc.Login(ctx, LoginInput{Email: "seeker@x.com", Password: "secret9", Role: domain.RoleJobSeeker})
	assert.NoError(t, err)
}
