package utils

import (
	"math/rand"
	"strings"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "庆",
	"建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1

	var name strings.Builder
	name.WriteString(surname)
	for i := 0; i < nameLength; i++ {
		name.WriteString(commonNameCharacters[rand.Intn(len(commonNameCharacters))])
	}
	return name.String()
}

const (
	digits        = "0123456789"
	upperLetters  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passwordChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"
)

// GenerateLoginName 用姓名拼音的随机前缀加上数字后缀生成登录名
func GenerateLoginName(chineseName string) string {
	var username strings.Builder

	for _, py := range pinyin.LazyConvert(chineseName, nil) {
		length := rand.Intn(len(py)) + 1
		username.WriteString(py[:length])
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username.WriteByte(digits[rand.Intn(len(digits))])
	}

	return username.String()
}

func randomString(alphabet string, length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

func GenerateRandomPassword(length int) string {
	return randomString(passwordChars, length)
}

// GenerateEnrollmentCode 生成由大写字母和数字组成的企业邀请码
func GenerateEnrollmentCode(length int) string {
	return randomString(upperLetters+digits, length)
}

// 种子数据中的用户层级不超过 MANAGER
var seedLevels = []domain.HierarchyLevel{
	domain.LevelCommon,
	domain.LevelCommon,
	domain.LevelSupervisor,
	domain.LevelManager,
}

func GenerateRandomLevel() domain.HierarchyLevel {
	return seedLevels[rand.Intn(len(seedLevels))]
}

// GenerateRandomUser 生成一个随机用户，不包含密码
func GenerateRandomUser(emailDomainName string) *domain.User {
	fullName := GenerateRandomChineseName()
	username := GenerateLoginName(fullName)

	return &domain.User{
		FullName: fullName,
		Username: username,
		Email:    username + "@" + emailDomainName,
		Level:    GenerateRandomLevel(),
		IsActive: true,
	}
}

var (
	workOrderSubjects = []string{"空调", "电梯", "消防通道", "门禁", "配电柜", "给水管道", "监控摄像头", "照明线路"}
	workOrderActions  = []string{"检修", "巡检", "更换", "清洁", "调试"}
	buildings         = []string{"A 座", "B 座", "C 座", "综合楼", "实验楼"}
)

// GenerateRandomWorkOrder 生成一个随机工单的基本内容
func GenerateRandomWorkOrder() *domain.WorkOrder {
	subject := workOrderSubjects[rand.Intn(len(workOrderSubjects))]
	action := workOrderActions[rand.Intn(len(workOrderActions))]
	building := buildings[rand.Intn(len(buildings))]

	return &domain.WorkOrder{
		Title:        subject + action,
		Description:  building + "的" + subject + "需要" + action,
		Location:     building + " " + randomString(digits, 3) + " 室",
		Requirements: "完成后拍照上传并填写" + action + "记录",
	}
}
