package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/domain"
)

// SessionConfig 在启动时构造，之后只读
type SessionConfig struct {
	Secret []byte
	TTL    time.Duration
}

// Session 是交给传输层的令牌及其过期时间
type Session struct {
	Token     string
	ExpiresAt time.Time
}

type AccountFinder interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
}

// 令牌中不携带角色，每次验证都从账户记录中重新获取
type SessionManager struct {
	cfg   SessionConfig
	users AccountFinder
	now   func() time.Time
}

func NewSessionManager(cfg SessionConfig, users AccountFinder) (*SessionManager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("session secret must not be empty")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("session ttl must be positive")
	}

	return &SessionManager{
		cfg:   cfg,
		users: users,
		now:   time.Now,
	}, nil
}

func (m *SessionManager) Issue(userID int64) (Session, error) {
	now := m.now()
	expiration := now.Add(m.cfg.TTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiration),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Subject:   strconv.FormatInt(userID, 10),
	})
	ss, err := token.SignedString(m.cfg.Secret)
	if err != nil {
		return Session{}, err
	}

	return Session{Token: ss, ExpiresAt: expiration}, nil
}

func (m *SessionManager) Verify(ctx context.Context, tokenString string) (*domain.User, error) {
	if tokenString == "" {
		return nil, errUnauthenticated("用户未登录")
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errUnauthenticated("登录已过期，请重新登录")
		}
		return nil, errUnauthenticated("无效的令牌")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, errUnauthenticated("无效的令牌")
	}

	user, err := m.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, errUnauthenticated("账户不存在")
		}
		return nil, err
	}

	return user, nil
}

// Revoke 返回一个已经过期的空令牌，传输层收到后会丢弃原有令牌
func (m *SessionManager) Revoke() Session {
	return Session{Token: "", ExpiresAt: m.now().Add(-time.Hour)}
}
