package redisclient

import "testing"

func TestParseURIVariants(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"10.0.0.1", "10.0.0.1:6379"},
		{"10.0.0.1:7000", "10.0.0.1:7000"},
		{"redis://10.0.0.1:7000", "10.0.0.1:7000"},
		{"redis://10.0.0.1", "10.0.0.1:6379"},
		{" 10.0.0.1:7000 ", "10.0.0.1:7000"},
	}
	for _, c := range cases {
		got, err := ParseURI(c.in, 6379)
		if err != nil {
			t.Errorf("ParseURI(%q) error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseURI(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseURIRejectsEmpty(t *testing.T) {
	if _, err := ParseURI("   ", 6379); err == nil {
		t.Fatal("expected error for empty URI")
	}
}

func TestParseURIRejectsBadPort(t *testing.T) {
	if _, err := ParseURI("10.0.0.1:notaport", 6379); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestCanonicalizeMatchesExistingMember(t *testing.T) {
	topology := []NodeInfo{
		{ID: "n1", Addr: "10.0.0.1:7000"},
		{ID: "n2", Addr: "10.0.0.2:7000"},
	}
	got, err := Canonicalize(topology, "redis://10.0.0.1:7000", 6379)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if got != "10.0.0.1:7000" {
		t.Errorf("Canonicalize = %q, want 10.0.0.1:7000", got)
	}
}

func TestCanonicalizeFallsBackForUnknownHost(t *testing.T) {
	topology := []NodeInfo{{ID: "n1", Addr: "10.0.0.1:7000"}}
	got, err := Canonicalize(topology, "10.0.0.9", 6379)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if got != "10.0.0.9:6379" {
		t.Errorf("Canonicalize = %q, want normalized form for a not-yet-member host", got)
	}
}
