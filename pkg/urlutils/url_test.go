package urlutils

import "testing"

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"https://images.unsplash.com/photo-1", true},
		{"http://localhost:3000/photos", true},
		{"/photos", false},
		{"#", false},
		{"", false},
		{"://bad", false},
	}

	for _, tt := range tests {
		if got := IsValidURL(tt.input); got != tt.want {
			t.Errorf("IsValidURL(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		relative string
		want     string
	}{
		{"relative path", "https://api.unsplash.com", "/photos/random", "https://api.unsplash.com/photos/random"},
		{"base with trailing path", "https://api.unsplash.com/v1/", "photos/random", "https://api.unsplash.com/v1/photos/random"},
		{"absolute stays", "https://api.unsplash.com", "https://other.example/x", "https://other.example/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveURL(tt.base, tt.relative)
			if err != nil {
				t.Fatalf("ResolveURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithReferral(t *testing.T) {
	tests := []struct {
		name string
		link string
		want string
	}{
		{"plain link", "https://unsplash.com/@ansel", "https://unsplash.com/@ansel?utm_source=tabskin&utm_medium=referral"},
		{"link with query", "https://unsplash.com/photos/x?lang=en", "https://unsplash.com/photos/x?lang=en&utm_source=tabskin&utm_medium=referral"},
		{"placeholder untouched", "#", "#"},
		{"empty untouched", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithReferral(tt.link); got != tt.want {
				t.Errorf("WithReferral(%q) = %q, want %q", tt.link, got, tt.want)
			}
		})
	}
}

func TestLinkOrPlaceholder(t *testing.T) {
	if got := LinkOrPlaceholder("  "); got != "#" {
		t.Errorf("LinkOrPlaceholder(blank) = %q", got)
	}
	if got := LinkOrPlaceholder("https://x.test"); got != "https://x.test" {
		t.Errorf("LinkOrPlaceholder(link) = %q", got)
	}
}
