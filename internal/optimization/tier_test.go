package optimization

import "testing"

func TestMonotonic(t *testing.T) {
	if !Monotonic() {
		t.Fatalf("tier table violates monotonicity invariant")
	}
}

func TestResolveUnknownDefaultsToBalanced(t *testing.T) {
	p := Resolve(Tier("nonsense"))
	if p.Tier != Balanced {
		t.Fatalf("Resolve(unknown) = %q, want %q", p.Tier, Balanced)
	}
}

func TestFormalityBoundaries(t *testing.T) {
	cases := []struct {
		level int
		want  FormalityBand
	}{
		{0, FormalityFormal},
		{33, FormalityFormal},
		{34, FormalityConversational},
		{66, FormalityConversational},
		{67, FormalityInformal},
		{100, FormalityInformal},
	}
	for _, c := range cases {
		if got := Formality(c.level); got != c.want {
			t.Errorf("Formality(%d) = %q, want %q", c.level, got, c.want)
		}
	}
}

func TestApplyTTLOverride(t *testing.T) {
	p := Resolve(Speed)
	original := p.CacheTTL
	overridden := p.ApplyTTLOverride(0)
	if overridden.CacheTTL != original {
		t.Fatalf("zero override changed CacheTTL")
	}
	overridden = p.ApplyTTLOverride(42)
	if overridden.CacheTTL != 42 {
		t.Fatalf("CacheTTL override = %v, want 42", overridden.CacheTTL)
	}
}
