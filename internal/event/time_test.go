package event

import "testing"

func TestNormalizeClock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"colon with meridiem", "7:30pm", "19:30", true},
		{"dot with meridiem", "7.30pm", "19:30", true},
		{"spaced uppercase meridiem", "7:30 PM", "19:30", true},
		{"24 hour", "19:30", "19:30", true},
		{"24 hour unpadded", "7:30", "07:30", true},
		{"bare hour with meridiem", "7pm", "19:00", true},
		{"morning meridiem", "9am", "09:00", true},
		{"midnight", "12:00am", "00:00", true},
		{"noon", "12:00pm", "12:00", true},
		{"military four digits", "1930", "19:30", true},
		{"military three digits", "730", "07:30", true},
		{"bare hour", "7", "07:00", true},
		{"unparseable passes through", "evening", "evening", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeClock(tt.input)
			if got != tt.want || ok != tt.ok {
				t.Errorf("NormalizeClock(%q) = (%q, %t), want (%q, %t)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		start, end string
		ok         bool
	}{
		{"hyphen range", "7:30pm - 9:30pm", "19:30", "21:30", true},
		{"word range", "7pm to 9pm", "19:00", "21:00", true},
		{"en dash range", "19:30–21:30", "19:30", "21:30", true},
		{"single time infers end", "7:30pm", "19:30", "21:30", true},
		{"late single time wraps midnight", "11pm", "23:00", "01:00", true},
		{"garbage", "whenever", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, ok := ParseTimeRange(tt.input)
			if start != tt.start || end != tt.end || ok != tt.ok {
				t.Errorf("ParseTimeRange(%q) = (%q, %q, %t), want (%q, %q, %t)",
					tt.input, start, end, ok, tt.start, tt.end, tt.ok)
			}
		})
	}
}
