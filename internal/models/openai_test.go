package models

import "testing"

func TestCleanResponse(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no prefix", "今天过得怎么样？", "今天过得怎么样？"},
		{"chinese colon prefix", "助手：今天过得怎么样？", "今天过得怎么样？"},
		{"ascii colon prefix", "助手: 今天过得怎么样？", "今天过得怎么样？"},
		{"ai prefix", "AI: 你好", "你好"},
		{"surrounding whitespace", "  助手: 你好  \n", "你好"},
		{"prefix inside text untouched", "我觉得助手:这个词很有趣", "我觉得助手:这个词很有趣"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cleanResponse(tc.in); got != tc.want {
				t.Fatalf("cleanResponse(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
