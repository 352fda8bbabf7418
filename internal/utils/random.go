package utils

import (
	"fmt"
	"math/rand"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "欣",
}

var cities = []string{"北京", "上海", "广州", "深圳", "杭州", "成都", "武汉", "南京"}

var niches = []string{
	"后端开发", "前端开发", "移动开发", "测试", "运维",
	"数据分析", "产品经理", "UI 设计", "算法工程师", "技术支持",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for range nameLength {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var roles = []domain.Role{
	domain.RoleJobSeeker,
	domain.RoleEmployer,
}

func GenerateRandomRole() domain.Role {
	return roles[rand.Intn(len(roles))]
}

// 三个偏好互不相同
func GenerateRandomNiches() domain.Niches {
	picked := rand.Perm(len(niches))
	return domain.Niches{
		FirstNiche:  niches[picked[0]],
		SecondNiche: niches[picked[1]],
		ThirdNiche:  niches[picked[2]],
	}
}

var digits = "0123456789"

// 由姓名的拼音前缀加上随机数字组成邮箱的本地部分
func GenerateEmailLocalPart(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	local := ""

	for _, py := range pinyinArray {
		length := rand.Intn(len(py)) + 1
		local += py[:length]
	}

	digitsLength := rand.Intn(3) + 2
	for range digitsLength {
		local += string(digits[rand.Intn(len(digits))])
	}

	return local
}

func GenerateRandomPhone() string {
	phone := "1" + string("3456789"[rand.Intn(7)])
	for range 9 {
		phone += string(digits[rand.Intn(len(digits))])
	}
	return phone
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	name := GenerateRandomChineseName()
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        GenerateEmailLocalPart(name) + "@" + emailDomainName,
		Phone:        GenerateRandomPhone(),
		Address:      cities[rand.Intn(len(cities))],
		Role:         GenerateRandomRole(),
		PasswordHash: string(passwordHash),
	}

	if user.Role == domain.RoleJobSeeker {
		user.Niches = GenerateRandomNiches()
		user.CoverLetter = fmt.Sprintf("你好，我是%s，期待与贵公司合作。", name)
	}

	return user, nil
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}
