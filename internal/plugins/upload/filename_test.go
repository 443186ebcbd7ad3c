package upload

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Rapat Desa: 2024!  ", "rapat-desa-2024"},
		{"Kepala--Dusun", "kepala-dusun"},
		{"!!!", ""},
		{"", ""},
		{"Café Ünïcode", "caf-n-code"},
		{strings.Repeat("a", 60), strings.Repeat("a", 50)},
		{strings.Repeat("a", 49) + " b", strings.Repeat("a", 49)},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	inputs := []string{"Hello World", "a--b--c", "  x  ", strings.Repeat("ab ", 30), "Ünïcode-Ünïcode"}
	for _, in := range inputs {
		once := Slugify(in)
		if twice := Slugify(once); twice != once {
			t.Errorf("Slugify(Slugify(%q)) = %q, want %q", in, twice, once)
		}
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		kind  Kind
		extra string
		want  string
	}{
		{"news", "Hello World", KindNews, "", "berita-hello-world-[timestamp].jpg"},
		{"official with position", "Budi Santoso", KindOfficial, "Kepala Desa", "pejabat-budi-santoso-kepala-desa-[timestamp].jpg"},
		{"official without position", "Budi", KindOfficial, "", "pejabat-budi-[timestamp].jpg"},
		{"hero", "Panen Raya", KindHeroSlider, "", "hero-panen-raya-[timestamp].jpg"},
		{"logo ignores name", "anything", KindLogo, "", LogoPreview},
		{"struktur ignores name", "anything", KindStruktur, "", "struktur-organisasi-[timestamp].jpg"},
		{"generic", "Foto Kegiatan", KindGeneric, "", "foto-kegiatan-[timestamp].jpg"},
		{"empty name falls back", "", KindNews, "", "berita-file-[timestamp].jpg"},
		{"symbols fall back", "!!!", KindHeroSlider, "", "hero-file-[timestamp].jpg"},
		{"extra ignored for news", "Judul", KindNews, "Kepala", "berita-judul-[timestamp].jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.raw, tt.kind, tt.extra); got != tt.want {
				t.Errorf("Preview() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPreview_Deterministic(t *testing.T) {
	for _, k := range Kinds {
		a := Preview("Rapat Koordinasi", k, "Sekretaris")
		b := Preview("Rapat Koordinasi", k, "Sekretaris")
		if a != b {
			t.Errorf("kind %s: %q != %q", k, a, b)
		}
	}
}
