package currency

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"KSH", "KES"},
		{"Kshs", "KES"},
		{"K.SH", "KES"},
		{"kes", "KES"},
		{"USD", "USD"},
		{"US$", "USD"},
		{"Dollars", "USD"},
		{"GBP", "GBP"},
		{"Pounds", "GBP"},
		{"euro", "EUR"},
		{"XXX", "XXX"},
		{"  usd ", "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestKenyanAliasesAgree(t *testing.T) {
	// All common spellings of the Kenyan shilling must land on one code.
	spellings := []string{"KSH", "Kshs", "K.SH", "KES", "ksh"}
	for _, s := range spellings {
		if !Equal(s, "KES") {
			t.Errorf("Equal(%q, KES) = false", s)
		}
	}
}

func TestEqualUnknownCurrencies(t *testing.T) {
	if !Equal("ZZZ", "z.z.z") {
		t.Error("identical unknown currencies should compare equal after cleaning")
	}
	if Equal("KES", "USD") {
		t.Error("KES and USD must not compare equal")
	}
}
