package domain

import (
	"errors"
	"time"
)

type Role string

const (
	RoleJobSeeker Role = "Job Seeker"
	RoleEmployer  Role = "Employer"
)

func (r Role) IsValid() bool {
	return r == RoleJobSeeker || r == RoleEmployer
}

type Niches struct {
	FirstNiche  string `json:"firstNiche"`
	SecondNiche string `json:"secondNiche"`
	ThirdNiche  string `json:"thirdNiche"`
}

// 三个偏好需要全部填写，顺序没有意义
func (n Niches) Complete() bool {
	return n.FirstNiche != "" && n.SecondNiche != "" && n.ThirdNiche != ""
}

// Resume 是存放在外部对象存储中的简历的引用
type Resume struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	Niches       Niches    `json:"niches"`
	CoverLetter  string    `json:"coverLetter"`
	Resume       *Resume   `json:"resume,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}

// 由 repository 返回的错误，上层不需要关心具体使用的是哪种数据库
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateEmail = errors.New("duplicate email")
	ErrEditConflict   = errors.New("edit conflict")
)
