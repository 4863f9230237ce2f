package di

import "testing"

type counter struct{ n int }

func TestRegisterToken_LazySingleton(t *testing.T) {
	c := NewContainer()
	builds := 0
	tok := NewToken[*counter]("test.Counter")

	RegisterToken(c, tok, func(sr ServiceRegistry) *counter {
		builds++
		return &counter{n: sr.Get("seed").(int)}
	})
	c.Register("seed", 7)

	if builds != 0 {
		t.Fatalf("factory ran before first Get")
	}

	first := GetToken(c, tok)
	second := GetToken(c, tok)

	if builds != 1 {
		t.Errorf("builds = %d, want 1", builds)
	}
	if first != second {
		t.Error("expected the same instance on every Get")
	}
	if first.n != 7 {
		t.Errorf("n = %d, want 7", first.n)
	}
}

func TestGet_UnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown service")
		}
	}()
	NewContainer().Get("missing")
}
