package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/iabetor/taigivoice/internal/config"
	"github.com/iabetor/taigivoice/internal/lexicon"
)

func TestBuildTiers_ReportsLoadErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Lexicon.PhraseTSV = filepath.Join(t.TempDir(), "missing.tsv")

	tiers, errs := buildTiers(cfg, nil)
	if len(errs) != 1 {
		t.Fatalf("expected 1 load error, got %v", errs)
	}
	var loadErr *lexicon.DictionaryLoadError
	if !errors.As(errs[0], &loadErr) || loadErr.Tier != lexicon.TierPhrase {
		t.Errorf("unexpected error: %v", errs[0])
	}
	if tiers.Get(lexicon.TierManual).Len() == 0 {
		t.Error("builtin tiers should still load")
	}
}

func TestBuildTiers_DefaultSkipWords(t *testing.T) {
	cfg := config.Default()
	if len(cfg.Lexicon.SkipWords) != len(lexicon.DefaultSkipWords) {
		t.Fatalf("skip words = %d, want %d", len(cfg.Lexicon.SkipWords), len(lexicon.DefaultSkipWords))
	}
	if _, errs := buildTiers(cfg, nil); len(errs) != 0 {
		t.Errorf("default config should load cleanly: %v", errs)
	}
}
