package i18n

import "testing"

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	// default is en
	if msg := T("set_membership", nil); msg == "set_membership" || msg == "" {
		t.Fatalf("expected a human message, got %q", msg)
	}

	SetLanguage("ja")
	if msg := T("set_membership", nil); msg == "does not satisfy set membership" {
		t.Fatalf("expected japanese message, got %q", msg)
	}

	// reset to en
	SetLanguage("en")
}

func TestTranslator_EmbedsSpecFragments(t *testing.T) {
	msg := T("does_not_satisfy", map[string]string{"spec": "isEven"})
	if msg != "does not satisfy isEven" {
		t.Fatalf("expected spec fragment embedded, got %q", msg)
	}
	msg = T("interval_between", map[string]string{"lower": "5", "upper": "9"})
	if msg != "not in the interval from 5 to 9" {
		t.Fatalf("unexpected interval message: %q", msg)
	}
}

func TestTranslator_UnknownCodeFallsBack(t *testing.T) {
	if msg := T("no_such_code", nil); msg != "no_such_code" {
		t.Fatalf("expected code passthrough, got %q", msg)
	}
}
