package snapshot

import (
	"testing"

	"github.com/domreplay/recorder/internal/domcore"
	"github.com/domreplay/recorder/internal/domfake"
)

// maskValue and maskTextValue must preserve rune length by default
// (the masking invariant a reader of the masked stream still needs
// enough signal to see how long the original value was), for both
// ASCII and multi-byte input.
func TestMaskValuePreservesLength(t *testing.T) {
	doc := domfake.NewDocument(100, 100)
	el := doc.NewElement("input")

	cases := []string{"", "a", "hello world", "héllo", "日本語"}
	for _, in := range cases {
		out := maskValue(Options{}, el, in)
		if got, want := len([]rune(out)), len([]rune(in)); got != want {
			t.Errorf("maskValue(%q) = %q, rune length %d, want %d", in, out, got, want)
		}
		for _, r := range out {
			if r != defaultMaskChar {
				t.Errorf("maskValue(%q) contains a non-mask rune: %q", in, out)
				break
			}
		}
	}
	for _, in := range cases {
		out := maskTextValue(Options{}, el, in)
		if got, want := len([]rune(out)), len([]rune(in)); got != want {
			t.Errorf("maskTextValue(%q) = %q, rune length %d, want %d", in, out, got, want)
		}
	}
}

// An override MaskInputFn/MaskTextFn replaces the masking entirely,
// including when it does not preserve length.
func TestMaskValueOverrideFn(t *testing.T) {
	doc := domfake.NewDocument(100, 100)
	el := doc.NewElement("input")
	opts := Options{MaskInputFn: func(v string, el domcore.Element) string { return "REDACTED" }}
	if got := maskValue(opts, el, "secret"); got != "REDACTED" {
		t.Fatalf("maskValue with an override fn = %q, want %q", got, "REDACTED")
	}
}

func TestShouldMaskInputClassification(t *testing.T) {
	doc := domfake.NewDocument(100, 100)

	pw := doc.NewElement("input")
	pw.SetAttribute("type", "password")
	if mask, kind := shouldMaskInput(pw); !mask || kind != "password" {
		t.Fatalf("password input: mask=%v kind=%q", mask, kind)
	}

	plain := doc.NewElement("input")
	if mask, kind := shouldMaskInput(plain); !mask || kind != "text" {
		t.Fatalf("typeless input defaults to text: mask=%v kind=%q", mask, kind)
	}

	ta := doc.NewElement("textarea")
	if mask, kind := shouldMaskInput(ta); !mask || kind != "textarea" {
		t.Fatalf("textarea: mask=%v kind=%q", mask, kind)
	}

	div := doc.NewElement("div")
	if mask, _ := shouldMaskInput(div); mask {
		t.Fatal("a <div> must never be classified as maskable")
	}
}

// inputMaskEnabled masks a password input by default, matching the
// live InputObserver's sensitiveInputTypes fallback, so the same field
// is never unmasked in a FullSnapshot just because it was masked only
// on the incremental path. A non-sensitive kind still requires an
// explicit MaskAllInputs or per-kind MaskInputOptions entry.
func TestInputMaskEnabledPasswordDefaultOtherKindsExplicit(t *testing.T) {
	doc := domfake.NewDocument(100, 100)
	pw := doc.NewElement("input")
	pw.SetAttribute("type", "password")

	if !inputMaskEnabled(pw, Options{}) {
		t.Fatal("password input must be masked by default, absent any explicit config")
	}
	if !inputMaskEnabled(pw, Options{MaskAllInputs: true}) {
		t.Fatal("MaskAllInputs must mask every maskable input")
	}
	if !inputMaskEnabled(pw, Options{MaskInputOptions: map[string]bool{"password": true}}) {
		t.Fatal("a per-kind MaskInputOptions entry must enable masking for that kind")
	}

	email := doc.NewElement("input")
	email.SetAttribute("type", "email")
	if inputMaskEnabled(email, Options{}) {
		t.Fatal("a non-sensitive kind must not be masked absent any explicit config")
	}
	if inputMaskEnabled(email, Options{MaskInputOptions: map[string]bool{"password": true}}) {
		t.Fatal("a MaskInputOptions entry for a different kind must not mask this input")
	}
	if !inputMaskEnabled(email, Options{MaskInputOptions: map[string]bool{"email": true}}) {
		t.Fatal("a per-kind MaskInputOptions entry must enable masking for that kind")
	}
}

func TestMatchesSelectorCompoundForms(t *testing.T) {
	doc := domfake.NewDocument(100, 100)
	el := doc.NewElement("div")
	el.SetAttribute("id", "foo")
	el.SetAttribute("class", "a b")
	el.SetAttribute("data-x", "1")

	cases := []struct {
		selector string
		want     bool
	}{
		{"#foo", true},
		{"#bar", false},
		{".a", true},
		{".c", false},
		{"div", true},
		{"span", false},
		{"[data-x]", true},
		{"[data-x=1]", true},
		{"[data-x=2]", false},
		{"div#foo.a", true},
		{"span, #foo", true},
	}
	for _, c := range cases {
		if got := matchesSelector(el, c.selector); got != c.want {
			t.Errorf("matchesSelector(%q) = %v, want %v", c.selector, got, c.want)
		}
	}
}
