package cache

import "testing"

func TestContextKey(t *testing.T) {
	if got := ContextKey("dev-frontend", "m3"); got != "context:dev-frontend:m3" {
		t.Fatalf("unexpected key %q", got)
	}

	// Pairs that would collide under naive concatenation.
	pairs := [][2]string{
		{"a:b", "c"},
		{"a", "b:c"},
		{`a\`, ":c"},
		{`a\:`, "c"},
	}
	seen := make(map[string][2]string)
	for _, p := range pairs {
		key := ContextKey(p[0], p[1])
		if prev, ok := seen[key]; ok {
			t.Fatalf("key %q shared by %v and %v", key, prev, p)
		}
		seen[key] = p
	}
}
