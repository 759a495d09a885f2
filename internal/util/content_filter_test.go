package util

import "testing"

func TestContentFilterForbidden(t *testing.T) {
	t.Parallel()
	f := NewContentFilter([]string{"spam", "badword"})

	cases := []struct {
		text string
		want bool
	}{
		{"hello there", false},
		{"this is spam content", true},
		{"SPAM", true},
		{"SpAmMeR", true},
		{"a badword hides here", true},
		{"", false},
		{"spa m", false},
	}
	for _, tc := range cases {
		if got := f.Forbidden(tc.text); got != tc.want {
			t.Errorf("Forbidden(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestContentFilterEmptyDenylist(t *testing.T) {
	t.Parallel()
	f := NewContentFilter(nil)

	if f.Forbidden("anything goes") {
		t.Error("empty denylist rejected text")
	}
}

func TestContentFilterNormalizesWords(t *testing.T) {
	t.Parallel()
	f := NewContentFilter([]string{"  SPAM  ", "", "   "})

	if !f.Forbidden("some spam here") {
		t.Error("padded denylist word not matched")
	}
	if f.Forbidden("clean text") {
		t.Error("blank denylist entries matched everything")
	}
}
