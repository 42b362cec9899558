package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectLookupArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"threadlist"},
			want: []string{"threadlist"},
		},
		{
			name: "thread id first token",
			in:   []string{"threadlist", "thr-01abc"},
			want: []string{"threadlist", "show", "thr-01abc"},
		},
		{
			name: "thread id after value flag",
			in:   []string{"threadlist", "--dir", "./tmp-ws", "thr-01abc"},
			want: []string{"threadlist", "--dir", "./tmp-ws", "show", "thr-01abc"},
		},
		{
			name: "thread id after equals flag",
			in:   []string{"threadlist", "--dir=./tmp-ws", "thr-01abc"},
			want: []string{"threadlist", "--dir=./tmp-ws", "show", "thr-01abc"},
		},
		{
			name: "thread id after bool flag",
			in:   []string{"threadlist", "--pretty", "thr-01abc"},
			want: []string{"threadlist", "--pretty", "show", "thr-01abc"},
		},
		{
			name: "thread id after double dash",
			in:   []string{"threadlist", "--format", "edn", "--", "thr-01abc"},
			want: []string{"threadlist", "--format", "edn", "show", "--", "thr-01abc"},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"threadlist", "pin", "thr-01abc"},
			want: []string{"threadlist", "pin", "thr-01abc"},
		},
		{
			name: "bare prefix not rewritten",
			in:   []string{"threadlist", "thr-"},
			want: []string{"threadlist", "thr-"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectLookupArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectLookupArgs(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
