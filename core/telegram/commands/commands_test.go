package commands

import "testing"

func TestName(t *testing.T) {
	tests := map[string]string{
		"/start":                   "/start",
		"/Start@ShodropBot":        "/start",
		"/start deep-link-payload": "/start",
		"  /menu\n":                "/menu",
		"/":                        "",
		"start":                    "",
		"":                         "",
		"hello /start":             "",
	}
	for in, want := range tests {
		if got := Name(in); got != want {
			t.Fatalf("Name(%q) = %q, want %q", in, got, want)
		}
	}
}
