package auth

import (
	"context"
	"testing"
)

func TestStaticTokens(t *testing.T) {
	p := NewStaticTokens(map[string]string{"abc": "alice", "def": "bob"})
	tests := []struct {
		name   string
		token  string
		want   string
		wantOK bool
	}{
		{"alice", "abc", "alice", true},
		{"bob", "def", "bob", true},
		{"unknown", "xyz", "", false},
		{"prefix_only", "ab", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Authenticate(tt.token)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Authenticate(%q) = %q, %v; want %q, %v", tt.token, got, ok, tt.want, tt.wantOK)
			}
		})
	}
	if p.Len() != 2 {
		t.Errorf("Len = %d, want 2", p.Len())
	}
}

func TestUserContext(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Error("empty context reported a user")
	}
	ctx := WithUser(context.Background(), "alice")
	if u, ok := UserFromContext(ctx); !ok || u != "alice" {
		t.Errorf("UserFromContext = %q, %v", u, ok)
	}
}
