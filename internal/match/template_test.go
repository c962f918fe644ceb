package match

import (
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestExpandTemplate(t *testing.T) {
	tests := map[string]struct {
		tmpl   string
		data   any
		exp    string
		expErr bool
	}{
		"plain text": {
			tmpl: "nothing to expand",
			data: nil,
			exp:  "nothing to expand",
		},
		"field access": {
			tmpl: "{{ .User }} rolled a {{ .Value }}",
			data: struct {
				User  string
				Value int
			}{User: "alice", Value: 4},
			exp: "alice rolled a 4",
		},
		"sprig function": {
			tmpl: "{{ upper .User }} is on fire",
			data: struct{ User string }{User: "bob"},
			exp:  "BOB is on fire",
		},
		"parse error": {
			tmpl:   "{{ .User",
			data:   nil,
			expErr: true,
		},
		"execute error": {
			tmpl:   "{{ .Missing }}",
			data:   struct{ User string }{},
			expErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ExpandTemplate(tt.tmpl, tt.data)

			if tt.expErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "expanded", got, tt.exp)
		})
	}
}
