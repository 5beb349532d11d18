package errors_test

import (
	"errors"
	"testing"

	pkgerrors "github.com/joe/device-explorer/pkg/errors"
)

func TestEnricher_EnrichAlreadyActionableError(t *testing.T) {
	t.Parallel()

	enricher := pkgerrors.NewEnricher()
	originalActionable := pkgerrors.NewActionableError(
		errors.New("permission denied"),
		pkgerrors.CategoryPermission,
		[]string{"existing suggestion"},
		"/original/path",
	)

	enriched := enricher.Enrich(originalActionable, "/new/path")

	var actionableErr pkgerrors.ActionableError
	if !errors.As(enriched, &actionableErr) {
		t.Fatalf("expected ActionableError, got %T", enriched)
	}

	if actionableErr != originalActionable {
		t.Error("expected same ActionableError instance when enriching ActionableError")
	}
}

func TestEnricher_EnrichRemoteError(t *testing.T) {
	t.Parallel()

	enricher := pkgerrors.NewEnricher()
	err := pkgerrors.Remote("download", "/sdcard/a.txt", errors.New("connection lost"))

	enriched := enricher.Enrich(err, "")

	var actionableErr pkgerrors.ActionableError
	if !errors.As(enriched, &actionableErr) {
		t.Fatalf("expected ActionableError, got %T", enriched)
	}

	if actionableErr.Category() != pkgerrors.CategoryRemoteIO {
		t.Errorf("expected category %q, got %q", pkgerrors.CategoryRemoteIO, actionableErr.Category())
	}

	if actionableErr.AffectedPath() != "/sdcard/a.txt" {
		t.Errorf("expected extracted path /sdcard/a.txt, got %q", actionableErr.AffectedPath())
	}

	if !errors.Is(enriched, pkgerrors.ErrRemoteIO) {
		t.Error("enriched error should still match ErrRemoteIO")
	}
}

func TestEnricher_EnrichPermissionBeatsKind(t *testing.T) {
	t.Parallel()

	enricher := pkgerrors.NewEnricher()
	err := pkgerrors.Remote("delete", "/system/app", errors.New("permission denied"))

	enriched := enricher.Enrich(err, "/system/app")

	var actionableErr pkgerrors.ActionableError
	if !errors.As(enriched, &actionableErr) {
		t.Fatalf("expected ActionableError, got %T", enriched)
	}

	if actionableErr.Category() != pkgerrors.CategoryPermission {
		t.Errorf("expected category %q, got %q", pkgerrors.CategoryPermission, actionableErr.Category())
	}

	if len(actionableErr.Suggestions()) == 0 {
		t.Error("expected suggestions for a permission error")
	}
}

func TestEnricher_NilError(t *testing.T) {
	t.Parallel()

	if pkgerrors.NewEnricher().Enrich(nil, "/x") != nil {
		t.Error("enriching nil should return nil")
	}
}

func TestFormatSuggestions(t *testing.T) {
	t.Parallel()

	err := pkgerrors.NewActionableError(
		errors.New("boom"),
		pkgerrors.CategoryUnknown,
		[]string{"first", "second"},
		"",
	)

	got := pkgerrors.FormatSuggestions(err)
	want := "  • first\n  • second"

	if got != want {
		t.Errorf("FormatSuggestions() = %q, want %q", got, want)
	}

	if pkgerrors.FormatSuggestions(errors.New("plain")) != "" {
		t.Error("plain errors have no suggestions")
	}
}
