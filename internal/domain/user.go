package domain

import (
	"time"
)

// HierarchyLevel 是用户的层级，取值之间存在严格的全序关系
type HierarchyLevel string

const (
	LevelCommon      HierarchyLevel = "COMMON"
	LevelSupervisor  HierarchyLevel = "SUPERVISOR"
	LevelManager     HierarchyLevel = "MANAGER"
	LevelDirector    HierarchyLevel = "DIRECTOR"
	LevelSystemAdmin HierarchyLevel = "SYSTEM_ADMIN"
)

// Levels 按权限从低到高排列
var Levels = []HierarchyLevel{
	LevelCommon,
	LevelSupervisor,
	LevelManager,
	LevelDirector,
	LevelSystemAdmin,
}

// Rank 返回层级在全序中的位置，未知层级返回 -1
func (l HierarchyLevel) Rank() int {
	for i, level := range Levels {
		if level == l {
			return i
		}
	}
	return -1
}

func (l HierarchyLevel) Valid() bool {
	return l.Rank() >= 0
}

func (l HierarchyLevel) AtLeast(other HierarchyLevel) bool {
	return l.Rank() >= other.Rank()
}

func ParseHierarchyLevel(s string) (HierarchyLevel, bool) {
	level := HierarchyLevel(s)
	return level, level.Valid()
}

type User struct {
	ID           int64          `json:"id"`
	CompanyID    int64          `json:"companyId"`
	FullName     string         `json:"fullName"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"`
	Level        HierarchyLevel `json:"level"`
	Title        *string        `json:"title"`
	IsActive     bool           `json:"isActive"`
	CreatedAt    time.Time      `json:"createdAt"`
	Version      int32          `json:"-"`
}

func (u *User) IsSystemAdmin() bool {
	return u.Level == LevelSystemAdmin
}

// CanSeeCompany 表示用户是否能访问指定公司的数据，系统管理员不受公司边界限制
func (u *User) CanSeeCompany(companyID int64) bool {
	return u.IsSystemAdmin() || u.CompanyID == companyID
}
