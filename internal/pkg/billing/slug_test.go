package billing

import (
	"strings"
	"testing"
)

func TestDeriveSlugDeterministic(t *testing.T) {
	first := DeriveSlug("Acme Materiais", "u1")
	second := DeriveSlug("Acme Materiais", "u1")
	if first != second {
		t.Fatalf("expected identical slugs for same inputs, got %q and %q", first, second)
	}
}

func TestDeriveSlugDistinctUsers(t *testing.T) {
	a := DeriveSlug("Acme Materiais", "u1")
	b := DeriveSlug("Acme Materiais", "u2")
	if a == b {
		t.Fatalf("expected different slugs for different users, both %q", a)
	}
	if !strings.HasPrefix(a, "acme-materiais-") || !strings.HasPrefix(b, "acme-materiais-") {
		t.Fatalf("expected shared base, got %q and %q", a, b)
	}
}

func TestDeriveSlugNormalization(t *testing.T) {
	tests := []struct {
		name     string
		wantBase string
	}{
		{name: "Construções São João", wantBase: "construcoes-sao-joao"},
		{name: "  Aço & Cia.  ", wantBase: "aco-cia"},
		{name: "--Tijolos___Ltda--", wantBase: "tijolos-ltda"},
		{name: "ELÉTRICA 24h", wantBase: "eletrica-24h"},
		{name: "", wantBase: "loja"},
		{name: "!!!", wantBase: "loja"},
	}

	for _, tt := range tests {
		got := DeriveSlug(tt.name, "user-123")
		want := tt.wantBase + "-"
		if !strings.HasPrefix(got, want) {
			t.Fatalf("DeriveSlug(%q) = %q, want prefix %q", tt.name, got, want)
		}
		suffix := strings.TrimPrefix(got, want)
		if len(suffix) != slugSuffixLen {
			t.Fatalf("DeriveSlug(%q) = %q, want %d-char suffix", tt.name, got, slugSuffixLen)
		}
	}
}

func TestDeriveSlugURLSafe(t *testing.T) {
	got := DeriveSlug("Ferragens Père & Fils (Matriz)", "u-42")
	for _, r := range got {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			t.Fatalf("slug %q contains unsafe rune %q", got, r)
		}
	}
}
