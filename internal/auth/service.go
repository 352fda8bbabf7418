package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/validation"
)

// CredentialStore 是账户记录的持久化，邮箱唯一性必须由存储自身的约束保证
type CredentialStore interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, user *domain.User) error
}

// AssetStore 是存放简历文件的外部存储
type AssetStore interface {
	Upload(ctx context.Context, namespace string, content []byte) (*domain.Resume, error)
	Delete(ctx context.Context, publicID string) error
}

// Locker 按 key 串行化对同一个账户的修改，返回的函数用于释放锁
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

const ResumeNamespace = "Job_Seekers_Resume"

type Service struct {
	store      CredentialStore
	assets     AssetStore
	locker     Locker
	hasher     PasswordHasher
	sessions   *SessionManager
	validate   *validator.Validate
	translator ut.Translator
	logger     *slog.Logger

	// 账户不存在时也要做一次哈希比较，使两种失败的耗时一致
	dummyHash string
}

func NewService(store CredentialStore, assets AssetStore, locker Locker, hasher PasswordHasher, sessions *SessionManager, logger *slog.Logger) (*Service, error) {
	validate, trans, err := validation.New()
	if err != nil {
		return nil, err
	}
	validate.RegisterStructValidation(registerStructLevelValidation, RegisterInput{})

	if logger == nil {
		logger = slog.Default()
	}

	dummyHash, err := hasher.Hash("job-portal-unknown-account")
	if err != nil {
		return nil, err
	}

	return &Service{
		store:      store,
		assets:     assets,
		locker:     locker,
		hasher:     hasher,
		sessions:   sessions,
		validate:   validate,
		translator: trans,
		logger:     logger,
		dummyHash:  dummyHash,
	}, nil
}

type RegisterInput struct {
	Name        string        `json:"name" validate:"required"`
	Email       string        `json:"email" validate:"required,email"`
	Phone       string        `json:"phone" validate:"required"`
	Password    string        `json:"password" validate:"required"`
	Address     string        `json:"address" validate:"required"`
	Role        domain.Role   `json:"role" validate:"required"`
	Niches      domain.Niches `json:"niches"`
	CoverLetter string        `json:"coverLetter"`
	Resume      []byte        `json:"-"`
}

// 求职者必须填写全部三个偏好
func registerStructLevelValidation(sl validator.StructLevel) {
	in := sl.Current().Interface().(RegisterInput)

	if in.Role != "" && !in.Role.IsValid() {
		sl.ReportError(in.Role, "role", "Role", "oneof", fmt.Sprintf("%s %s", domain.RoleJobSeeker, domain.RoleEmployer))
		return
	}

	if in.Role != domain.RoleJobSeeker {
		return
	}
	if in.Niches.FirstNiche == "" {
		sl.ReportError(in.Niches.FirstNiche, "firstNiche", "FirstNiche", "required", "")
	}
	if in.Niches.SecondNiche == "" {
		sl.ReportError(in.Niches.SecondNiche, "secondNiche", "SecondNiche", "required", "")
	}
	if in.Niches.ThirdNiche == "" {
		sl.ReportError(in.Niches.ThirdNiche, "thirdNiche", "ThirdNiche", "required", "")
	}
}

type LoginInput struct {
	Email    string      `json:"email" validate:"required"`
	Password string      `json:"password" validate:"required"`
	Role     domain.Role `json:"role" validate:"required"`
}

// 只返回第一个校验错误，required 对应缺少字段，其余对应字段不合法
func (s *Service) validationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return err
	}

	fe := validationErrors[0]
	if fe.Tag() == "required" {
		return errMissingField(fe.Field(), fe.Translate(s.translator))
	}
	return errInvalidField(fe.Field(), fe.Translate(s.translator))
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, Session, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, Session{}, s.validationError(err)
	}

	// 这里的检查只是为了尽早返回，并发注册时由数据库的唯一约束兜底
	_, err := s.store.GetUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, Session{}, errDuplicateEmail(in.Email)
	case !errors.Is(err, domain.ErrRecordNotFound):
		return nil, Session{}, err
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, Session{}, err
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Address:      in.Address,
		Role:         in.Role,
		PasswordHash: passwordHash,
		Niches:       in.Niches,
		CoverLetter:  in.CoverLetter,
	}

	// 先上传简历再写入账户，上传失败时不会留下账户记录
	if len(in.Resume) > 0 {
		resume, err := s.Attach(ctx, in.Resume)
		if err != nil {
			return nil, Session{}, err
		}
		user.Resume = resume
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if user.Resume != nil {
			s.deleteAsset(ctx, user.Resume.PublicID)
		}
		return nil, Session{}, s.storeError(err, user.Email)
	}

	session, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, Session{}, err
	}

	return user, session, nil
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*domain.User, Session, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, Session{}, s.validationError(err)
	}

	user, err := s.store.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			_, _ = s.hasher.Verify(in.Password, s.dummyHash)
			return nil, Session{}, errInvalidCredentials()
		}
		return nil, Session{}, err
	}

	ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return nil, Session{}, err
	}
	if !ok {
		return nil, Session{}, errInvalidCredentials()
	}

	// 即使密码正确，角色不一致也不允许登录
	if user.Role != in.Role {
		return nil, Session{}, errRoleMismatch()
	}

	session, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, Session{}, err
	}

	return user, session, nil
}

// Lookup 按邮箱查找账户，账户不存在时返回 domain.ErrRecordNotFound
func (s *Service) Lookup(ctx context.Context, email string) (*domain.User, error) {
	return s.store.GetUserByEmail(ctx, email)
}

func (s *Service) storeError(err error, email string) error {
	switch {
	case errors.Is(err, domain.ErrDuplicateEmail):
		return errDuplicateEmail(email)
	case errors.Is(err, domain.ErrEditConflict):
		return errEditConflict("账户信息已被修改，请重试")
	case errors.Is(err, domain.ErrRecordNotFound):
		return errUnauthenticated("账户不存在")
	default:
		return err
	}
}
