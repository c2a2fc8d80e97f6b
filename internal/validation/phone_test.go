package validation

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "international with plus", input: "+254712345678", want: "254712345678", ok: true},
		{name: "international without plus", input: "254712345678", want: "254712345678", ok: true},
		{name: "local with leading zero", input: "0712345678", want: "254712345678", ok: true},
		{name: "local landline prefix", input: "0112345678", want: "254112345678", ok: true},
		{name: "bare subscriber number", input: "712345678", want: "254712345678", ok: true},
		{name: "spaces stripped", input: "0712 345 678", want: "254712345678", ok: true},
		{name: "empty", input: "", ok: false},
		{name: "letters", input: "07abc45678", ok: false},
		{name: "too short", input: "07123", ok: false},
		{name: "too long", input: "2547123456789", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePhone(tt.input)
			if ok != tt.ok {
				t.Fatalf("NormalizePhone(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
