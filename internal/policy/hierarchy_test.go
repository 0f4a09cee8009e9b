package policy

import (
	"errors"
	"testing"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
)

func levelPtr(l domain.HierarchyLevel) *domain.HierarchyLevel {
	return &l
}

func TestSystemAdminBypassesEveryRule(t *testing.T) {
	for _, target := range domain.Levels {
		for _, current := range domain.Levels {
			for _, isUpdate := range []bool{false, true} {
				for _, self := range []bool{false, true} {
					d := Authorize(Request{
						ActorLevel:         domain.LevelSystemAdmin,
						TargetLevel:        target,
						IsUpdate:           isUpdate,
						TargetCurrentLevel: levelPtr(current),
						ActorTargetsSelf:   self,
					})
					if !d.Allowed || d.Rule != 1 {
						t.Fatalf("target=%s current=%s update=%v self=%v: got %+v, want allowed by rule 1", target, current, isUpdate, self, d)
					}
				}
			}
		}
	}
}

func TestOnlySystemAdminGrantsSystemAdmin(t *testing.T) {
	for _, actor := range domain.Levels[:4] {
		for _, self := range []bool{false, true} {
			d := Authorize(Request{ActorLevel: actor, TargetLevel: domain.LevelSystemAdmin, ActorTargetsSelf: self})
			if d.Allowed || d.Rule != 2 {
				t.Fatalf("actor=%s self=%v: got %+v, want denied by rule 2", actor, self, d)
			}
		}
	}
}

func TestOthersNeverReceiveEqualOrHigherLevel(t *testing.T) {
	for _, actor := range domain.Levels[:4] {
		for _, target := range domain.Levels {
			for _, isUpdate := range []bool{false, true} {
				d := Authorize(Request{ActorLevel: actor, TargetLevel: target, IsUpdate: isUpdate})
				if target.Rank() >= actor.Rank() && d.Allowed {
					t.Fatalf("actor=%s target=%s update=%v: expected denial", actor, target, isUpdate)
				}
				if target.Rank() < actor.Rank() && !d.Allowed {
					t.Fatalf("actor=%s target=%s update=%v: expected approval, got %+v", actor, target, isUpdate, d)
				}
			}
		}
	}
}

func TestSelfPromotionIsBlocked(t *testing.T) {
	for _, actor := range domain.Levels[:4] {
		for _, target := range domain.Levels[:4] {
			d := Authorize(Request{
				ActorLevel:         actor,
				TargetLevel:        target,
				IsUpdate:           true,
				TargetCurrentLevel: levelPtr(actor),
				ActorTargetsSelf:   true,
			})

			switch {
			case target.Rank() > actor.Rank():
				if d.Allowed || d.Rule != 3 {
					t.Fatalf("actor=%s target=%s: got %+v, want denied by rule 3", actor, target, d)
				}
			case target.Rank() < actor.Rank():
				if !d.Allowed {
					t.Fatalf("actor=%s target=%s: got %+v, want allowed", actor, target, d)
				}
			default:
				if want := sameLevelSelfUpdate[actor]; d.Allowed != want.Allowed || d.Rule != want.Rule {
					t.Fatalf("actor=%s keeps own level: got %+v, want allowed=%v rule=%d", actor, d, want.Allowed, want.Rule)
				}
			}
		}
	}
}

// 保持自身层级不变的更新仍要经过规则 5、6，总监和经理因此被拒绝
var sameLevelSelfUpdate = map[domain.HierarchyLevel]Decision{
	domain.LevelCommon:     {Allowed: true, Rule: 8},
	domain.LevelSupervisor: {Allowed: true, Rule: 8},
	domain.LevelManager:    {Allowed: false, Rule: 6},
	domain.LevelDirector:   {Allowed: false, Rule: 5},
}

func TestNamedRules(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		allowed bool
		rule    int
	}{
		{
			name:    "director creates director",
			req:     Request{ActorLevel: domain.LevelDirector, TargetLevel: domain.LevelDirector},
			allowed: false,
			rule:    4,
		},
		{
			name:    "director creates supervisor",
			req:     Request{ActorLevel: domain.LevelDirector, TargetLevel: domain.LevelSupervisor},
			allowed: true,
			rule:    8,
		},
		{
			name:    "director keeps own level",
			req:     Request{ActorLevel: domain.LevelDirector, TargetLevel: domain.LevelDirector, IsUpdate: true, TargetCurrentLevel: levelPtr(domain.LevelDirector), ActorTargetsSelf: true},
			allowed: false,
			rule:    5,
		},
		{
			name:    "manager keeps own level",
			req:     Request{ActorLevel: domain.LevelManager, TargetLevel: domain.LevelManager, IsUpdate: true, TargetCurrentLevel: levelPtr(domain.LevelManager), ActorTargetsSelf: true},
			allowed: false,
			rule:    6,
		},
		{
			name:    "manager creates manager",
			req:     Request{ActorLevel: domain.LevelManager, TargetLevel: domain.LevelManager},
			allowed: false,
			rule:    4,
		},
		{
			name:    "supervisor keeps own level",
			req:     Request{ActorLevel: domain.LevelSupervisor, TargetLevel: domain.LevelSupervisor, IsUpdate: true, TargetCurrentLevel: levelPtr(domain.LevelSupervisor), ActorTargetsSelf: true},
			allowed: true,
			rule:    8,
		},
		{
			name:    "common creates common",
			req:     Request{ActorLevel: domain.LevelCommon, TargetLevel: domain.LevelCommon},
			allowed: false,
			rule:    4,
		},
		{
			name:    "manager demotes director",
			req:     Request{ActorLevel: domain.LevelManager, TargetLevel: domain.LevelCommon, IsUpdate: true, TargetCurrentLevel: levelPtr(domain.LevelDirector)},
			allowed: false,
			rule:    7,
		},
		{
			name:    "manager demotes supervisor",
			req:     Request{ActorLevel: domain.LevelManager, TargetLevel: domain.LevelCommon, IsUpdate: true, TargetCurrentLevel: levelPtr(domain.LevelSupervisor)},
			allowed: true,
			rule:    8,
		},
		{
			name:    "creation ignores current level",
			req:     Request{ActorLevel: domain.LevelManager, TargetLevel: domain.LevelCommon, IsUpdate: false, TargetCurrentLevel: levelPtr(domain.LevelDirector)},
			allowed: true,
			rule:    8,
		},
		{
			name:    "update without known current level",
			req:     Request{ActorLevel: domain.LevelDirector, TargetLevel: domain.LevelManager, IsUpdate: true},
			allowed: true,
			rule:    8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Authorize(tt.req)
			if d.Allowed != tt.allowed || d.Rule != tt.rule {
				t.Fatalf("got %+v, want allowed=%v rule=%d", d, tt.allowed, tt.rule)
			}
		})
	}
}

func TestRuleSevenOverCurrentLevels(t *testing.T) {
	for _, actor := range domain.Levels[:4] {
		for _, current := range domain.Levels {
			d := Authorize(Request{
				ActorLevel:         actor,
				TargetLevel:        domain.LevelCommon,
				IsUpdate:           true,
				TargetCurrentLevel: levelPtr(current),
			})
			if actor == domain.LevelCommon {
				// rule 4 already rejects common actors
				if d.Allowed {
					t.Fatalf("actor=%s current=%s: expected denial", actor, current)
				}
				continue
			}
			wantAllowed := current.Rank() <= actor.Rank()
			if d.Allowed != wantAllowed {
				t.Fatalf("actor=%s current=%s: got %+v, want allowed=%v", actor, current, d, wantAllowed)
			}
		}
	}
}

func TestDecisionErr(t *testing.T) {
	if err := Authorize(Request{ActorLevel: domain.LevelSystemAdmin, TargetLevel: domain.LevelSystemAdmin}).Err(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	err := Authorize(Request{ActorLevel: domain.LevelDirector, TargetLevel: domain.LevelSystemAdmin}).Err()
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}
