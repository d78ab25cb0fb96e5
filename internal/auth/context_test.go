package auth

import (
	"context"
	"testing"
)

func TestPrincipalRoundTrip(t *testing.T) {
	ctx := WithPrincipal(context.Background(), Principal{UserID: "u-1", Role: RoleVet})
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		t.Fatal("expected principal in context")
	}
	if p.UserID != "u-1" || p.Role != RoleVet {
		t.Fatalf("unexpected principal %+v", p)
	}
}

func TestPrincipalMissing(t *testing.T) {
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Fatal("expected no principal")
	}
	ctx := WithPrincipal(context.Background(), Principal{UserID: "u-1"})
	if _, ok := PrincipalFromContext(ctx); ok {
		t.Fatal("principal without role must not be accepted")
	}
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"pet_owner":  RolePetOwner,
		" VET ":      RoleVet,
		"superadmin": RoleAdmin,
		"admin":      RoleAdmin,
		"guest":      "",
	}
	for in, want := range cases {
		if got := ParseRole(in); got != want {
			t.Errorf("ParseRole(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRequire(t *testing.T) {
	if _, err := Require(context.Background()); err == nil {
		t.Fatal("expected error for anonymous caller")
	}
	ctx := WithPrincipal(context.Background(), Principal{UserID: "u-1", Role: RoleAdmin})
	p, err := Require(ctx)
	if err != nil || !p.IsAdmin() {
		t.Fatalf("unexpected result %+v %v", p, err)
	}
}
