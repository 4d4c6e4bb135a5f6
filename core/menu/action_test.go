package menu

import "testing"

func TestActionString(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{Start(), "start"},
		{Back(), "back"},
		{Navigate("main_seo"), "navigate(main_seo)"},
		{Unrecognized("x|y"), "unrecognized(x|y)"},
		{Unrecognized(""), "unrecognized"},
		{Action{}, "unrecognized"},
	}
	for _, tt := range tests {
		if got := tt.action.String(); got != tt.want {
			t.Fatalf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestMessageRef(t *testing.T) {
	if !(MessageRef{}).IsZero() {
		t.Fatal("zero ref must report IsZero")
	}
	if (MessageRef{ChatID: 5}).Editable() {
		t.Fatal("chat-only ref must not be editable")
	}
	if !(MessageRef{ChatID: 5, MessageID: 7}).Editable() {
		t.Fatal("full ref must be editable")
	}
	a := Navigate("x").WithMessage(MessageRef{ChatID: 1, MessageID: 2})
	if a.MessageRef.MessageID != 2 || a.ID != "x" {
		t.Fatalf("WithMessage lost fields: %+v", a)
	}
}
