// Package policy 实现层级授权规则。
//
// Authorize 是纯函数，没有副作用，规则按顺序判定，命中第一条即返回。
package policy

import (
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
)

// Request 描述一次层级授权请求
type Request struct {
	ActorLevel  domain.HierarchyLevel
	TargetLevel domain.HierarchyLevel
	IsUpdate    bool
	// TargetCurrentLevel 仅在更新时有意义，为 nil 表示目标当前层级未知
	TargetCurrentLevel *domain.HierarchyLevel
	ActorTargetsSelf   bool
}

type Decision struct {
	Allowed bool
	// Rule 是命中的规则编号（1-8）
	Rule   int
	Reason string
}

// Err 将拒绝的决定转换为 Forbidden 错误，允许时返回 nil
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return domain.Forbidden("%s", d.Reason)
}

func allow(rule int) Decision {
	return Decision{Allowed: true, Rule: rule}
}

func deny(rule int, reason string) Decision {
	return Decision{Allowed: false, Rule: rule, Reason: reason}
}

func Authorize(req Request) Decision {
	actor := req.ActorLevel.Rank()
	target := req.TargetLevel.Rank()

	// 1. 系统管理员跳过所有规则
	if req.ActorLevel == domain.LevelSystemAdmin {
		return allow(1)
	}

	// 2. 只有系统管理员可以授予系统管理员
	if req.TargetLevel == domain.LevelSystemAdmin {
		return deny(2, "只有系统管理员可以授予系统管理员层级")
	}

	// 3. 不能把自己提升到高于当前的层级
	if req.ActorTargetsSelf && target > actor {
		return deny(3, "不能将自己提升到高于当前的层级")
	}

	// 4. 不能给他人授予与自己相同或更高的层级
	if !req.ActorTargetsSelf && target >= actor {
		return deny(4, "不能为他人授予与自己相同或更高的层级")
	}

	// 5. 总监不能创建或提升其他总监
	if req.ActorLevel == domain.LevelDirector && req.TargetLevel == domain.LevelDirector {
		return deny(5, "总监不能授予总监层级")
	}

	// 6. 经理不能授予经理或总监
	if req.ActorLevel == domain.LevelManager &&
		(req.TargetLevel == domain.LevelManager || req.TargetLevel == domain.LevelDirector) {
		return deny(6, "经理不能授予经理或总监层级")
	}

	// 7. 不能修改当前层级高于自己的用户
	if req.IsUpdate && req.TargetCurrentLevel != nil && req.TargetCurrentLevel.Rank() > actor {
		return deny(7, "不能修改层级高于自己的用户")
	}

	return allow(8)
}
