package utils

import "testing"

func TestPreview(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in    string
		limit int
		want  string
	}{
		"disabled": {in: "Tell me about goroutines", limit: 0, want: ""},
		"fits":     {in: "score: 7", limit: 20, want: "score: 7"},
		"cut":      {in: "describe the GC", limit: 8, want: "describe... (+7)"},
		"multiline response": {
			in:    "{\n  \"score\": 8,\n  \"feedback\": \"ok\"\n}",
			limit: 100,
			want:  `{ "score": 8, "feedback": "ok" }`,
		},
		"counts runes": {in: "задача о рюкзаке", limit: 6, want: "задача... (+10)"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := Preview(tc.in, tc.limit); got != tc.want {
				t.Fatalf("Preview(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
			}
		})
	}
}
