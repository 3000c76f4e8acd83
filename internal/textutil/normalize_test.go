package textutil

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", " \t\n ", ""},
		{"case and accents", "Cien años de Soledad", "cien anos de soledad"},
		{"author accents", "Gabriel García Márquez", "gabriel garcia marquez"},
		{"markup", "  <b>Cien  años</b> de&nbsp;Soledad ", "cien anos de soledad"},
		{"entities", "Pride &amp; Prejudice", "pride & prejudice"},
		{"escaped markup", "&lt;i&gt;Emma&lt;/i&gt;", "emma"},
		{"script body", "<script>alert(1)</script>Dune", "dune"},
		{"punctuation kept", "J.R.R. Tolkien", "j.r.r. tolkien"},
		{"uppercase dotted i", "İstanbul", "istanbul"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"Cien años de soledad",
		"&amp;lt;b&amp;gt;Nested&amp;lt;/b&amp;gt;",
		"<p>Le Petit Prince</p> Antoine de Saint-Exupéry",
		"ÀÉÎÕÜ ñ ç",
		"a  <  b > c",
		"1984",
		"Ｆｕｌｌｗｉｄｔｈ",
		"&#x3C;em&#x3E;Ficciones&#x3C;/em&#x3E;",
		"&" + strings.Repeat("amp;", 10) + "lt;b&gt;X",
		"&" + strings.Repeat("amp;", 40) + "lt;i&" + strings.Repeat("amp;", 40) + "gt;Rayuela",
	}
	for _, input := range inputs {
		once := Normalize(input)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", input, once, twice)
		}
	}
	if got := Normalize("&" + strings.Repeat("amp;", 10) + "lt;b&gt;X"); got != "x" {
		t.Errorf("deeply escaped markup: got %q, want %q", got, "x")
	}
}

func TestMatchKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Julio César", "cesar julio"},
		{"César, Julio", "cesar julio"},
		{"The Lord of the Rings", "lord rings"},
		{"El amor en los tiempos del cólera", "amor colera tiempos"},
		{"", ""},
		{"The", ""},
	}
	for _, tt := range tests {
		if got := MatchKey(tt.input); got != tt.want {
			t.Errorf("MatchKey(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
