package candidate

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.Cookpad.com/recipe/1/", "https://cookpad.com/recipe/1"},
		{"https://cookpad.com/recipe/1#steps", "https://cookpad.com/recipe/1"},
		{"HTTPS://cookpad.com/recipe/1?x=1", "https://cookpad.com/recipe/1?x=1"},
		{"  not a url/ ", "not a url"},
	}
	for _, tc := range tests {
		if got := NormalizeURL(tc.in); got != tc.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDocument_IdentityAcrossSpellings(t *testing.T) {
	a := New("https://www.kurashiru.com/recipes/abc/", "a", "", Markup{})
	b := New("https://kurashiru.com/recipes/abc", "b", "", Markup{})
	if a.Key() != b.Key() {
		t.Errorf("expected equal keys, got %q and %q", a.Key(), b.Key())
	}
	if a.Domain() != "kurashiru.com" {
		t.Errorf("Domain: got %q", a.Domain())
	}
}

func TestDomainOf_StripsPort(t *testing.T) {
	if got := DomainOf("http://www.example.com:8080/x"); got != "example.com" {
		t.Errorf("DomainOf: got %q", got)
	}
}
