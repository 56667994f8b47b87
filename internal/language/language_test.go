package language

import "testing"

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{" eng ", "en"},
		{"fre", "fr"},
		{"ger", "de"},
		{"chi", "zh"},
		{"english", "en"},
		{"Japanese", "ja"},
		{"en-US", "en"},
		{"pt_BR", "pt"},
		{"cy", "cy"},
		{"", ""},
		{"not a language", ""},
	}
	for _, tt := range tests {
		if got := ToISO2(tt.input); got != tt.expected {
			t.Errorf("ToISO2(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "auto-detect"},
		{"en", "English"},
		{"deu", "German"},
		{"es-MX", "Spanish"},
		{"cy", "Welsh"},
		{"klingonese", "KLINGONESE"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
