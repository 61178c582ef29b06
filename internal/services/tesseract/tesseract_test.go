package tesseract

import "testing"

func TestNewDefaults(t *testing.T) {
	e := New(Options{})
	if e.language != DefaultLanguage {
		t.Errorf("language = %q, want %q", e.language, DefaultLanguage)
	}
	if e.clientFactory == nil {
		t.Error("nil client factory")
	}
}

func TestNewOverrides(t *testing.T) {
	e := New(Options{Language: "chi_sim", DPI: 300})
	if e.language != "chi_sim" {
		t.Errorf("language = %q", e.language)
	}
	if e.dpi != 300 {
		t.Errorf("dpi = %d", e.dpi)
	}
}

func TestNormalizeColumnText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"天 地 玄 黃\n宇 宙", "天地玄黃宇宙"},
		{"  學而時習之  ", "學而時習之"},
		{"", ""},
		{"\n\t\n", ""},
	}
	for _, tc := range cases {
		if got := normalizeColumnText(tc.in); got != tc.want {
			t.Errorf("normalizeColumnText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
