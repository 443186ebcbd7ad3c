package sanitize

import (
	"strings"
	"testing"
)

func TestHTML(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		keep    []string
		dropped []string
	}{
		{
			name:    "script removed",
			input:   `<p>Kerja bakti</p><script>alert(1)</script>`,
			keep:    []string{"<p>Kerja bakti</p>"},
			dropped: []string{"<script", "alert(1)"},
		},
		{
			name:    "event handler removed",
			input:   `<img src="https://desa.example/a.jpg" onerror="steal()">`,
			keep:    []string{`src="https://desa.example/a.jpg"`},
			dropped: []string{"onerror"},
		},
		{
			name:    "javascript url removed",
			input:   `<a href="javascript:steal()">klik</a>`,
			keep:    []string{"klik"},
			dropped: []string{"javascript:"},
		},
		{
			name:  "tables and alignment kept",
			input: `<table><tr><td colspan="2" class="center">Dana Desa</td></tr></table>`,
			keep:  []string{"<table>", `colspan="2"`, `class="center"`},
		},
		{
			name:    "iframe removed",
			input:   `<iframe src="https://evil.example"></iframe><p>ok</p>`,
			keep:    []string{"<p>ok</p>"},
			dropped: []string{"iframe"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HTML(tt.input)
			for _, s := range tt.keep {
				if !strings.Contains(got, s) {
					t.Errorf("HTML(%q) = %q, missing %q", tt.input, got, s)
				}
			}
			for _, s := range tt.dropped {
				if strings.Contains(got, s) {
					t.Errorf("HTML(%q) = %q, should not contain %q", tt.input, got, s)
				}
			}
		})
	}
}

func TestHTML_Empty(t *testing.T) {
	if got := HTML(""); got != "" {
		t.Errorf("HTML(\"\") = %q", got)
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"  Musyawarah Desa  ", "Musyawarah Desa"},
		{"<b>Kepala</b> Desa", "Kepala Desa"},
		{"<script>x</script>Sekdes", "Sekdes"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Text(tt.input); got != tt.want {
			t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
