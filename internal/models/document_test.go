package models

import "testing"

func TestComputeSearchText(t *testing.T) {
	cases := []struct {
		name                                     string
		url, title, description, content, notes string
		want                                     string
	}{
		{
			name:  "separators and digraph collapse to single spaces",
			url:   "https://example.com/a-b_c:d",
			title: "Hi.There",
			want:  "https  example com a b c d Hi There   ",
		},
		{
			name: "null fields contribute empty strings",
			url:  "https://example.com",
			want: "https  example com    ",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeSearchText(tc.url, tc.title, tc.description, tc.content, tc.notes)
			if got != tc.want {
				t.Fatalf("ComputeSearchText() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestComputeSearchTextRecomputedOnChange(t *testing.T) {
	a := ComputeSearchText("https://x.com", "Title", "", "", "")
	b := ComputeSearchText("https://x.com", "Other", "", "", "")
	if a == b {
		t.Fatalf("expected search_text to change when title changes")
	}
}
