package i18n

import (
	"context"
	"strings"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "tutor.welcome")
	if !strings.Contains(got, "AI tutor") {
		t.Errorf("T(tutor.welcome) = %q, want welcome text", got)
	}

	got = T(ctx, "tutor.closing")
	if !strings.Contains(got, "ended") {
		t.Errorf("T(tutor.closing) = %q, want closing text", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := T(ctx, "tutor.welcome")
	if !strings.Contains(got, "репетитор") {
		t.Errorf("T(tutor.welcome) = %q, want Russian welcome text", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "diagnostic.correct_count", 1)
	if got1 != "You answered 1 question correctly." {
		t.Errorf("Tp(diagnostic.correct_count, 1) = %q", got1)
	}

	got5 := Tp(ctx, "diagnostic.correct_count", 5)
	if got5 != "You answered 5 questions correctly." {
		t.Errorf("Tp(diagnostic.correct_count, 5) = %q", got5)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "tutor.welcome_titled", map[string]any{"Title": "Fractions"})
	if !strings.Contains(got, "Fractions") {
		t.Errorf("Td(tutor.welcome_titled) = %q, want title embedded", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestFallbackWithoutLocalizer(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// No localizer in context: English fallback applies.
	got := T(context.Background(), "tutor.closing")
	if !strings.Contains(got, "ended") {
		t.Errorf("T without localizer = %q, want English fallback", got)
	}
}
