package utils

import (
	"strings"
	"testing"
	"unicode"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
)

func TestGenerateLoginName(t *testing.T) {
	for i := 0; i < 50; i++ {
		name := GenerateRandomChineseName()
		login := GenerateLoginName(name)
		if login == "" {
			t.Fatalf("empty login name for %q", name)
		}
		for _, r := range login {
			if r > unicode.MaxASCII || !(unicode.IsLower(r) || unicode.IsDigit(r)) {
				t.Fatalf("login name %q for %q contains %q", login, name, r)
			}
		}
		if !unicode.IsDigit(rune(login[len(login)-1])) {
			t.Fatalf("login name %q should end with a digit", login)
		}
	}
}

func TestGenerateEnrollmentCode(t *testing.T) {
	code := GenerateEnrollmentCode(8)
	if len(code) != 8 {
		t.Fatalf("expected 8 characters, got %q", code)
	}
	if strings.ToUpper(code) != code {
		t.Fatalf("enrollment code %q should be upper case", code)
	}
}

func TestGenerateRandomUser(t *testing.T) {
	for i := 0; i < 50; i++ {
		user := GenerateRandomUser("example.com")
		if !strings.HasSuffix(user.Email, "@example.com") {
			t.Fatalf("unexpected email %q", user.Email)
		}
		if !user.Level.Valid() || user.Level.AtLeast(domain.LevelDirector) {
			t.Fatalf("unexpected level %q", user.Level)
		}
	}
}

func TestGenerateRandomWorkOrder(t *testing.T) {
	order := GenerateRandomWorkOrder()
	if strings.TrimSpace(order.Title) == "" || order.Location == "" {
		t.Fatalf("incomplete work order: %+v", order)
	}
}
