package mpmconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/andewx/mlsmpm/mpmerr"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading embedded defaults failed: %v", err)
	}
	if cfg.Grid.Dx <= 0 {
		t.Fatalf("expected positive default dx, got %v", cfg.Grid.Dx)
	}
	if cfg.Materials.Water.Gamma <= 0 {
		t.Fatalf("expected positive default water gamma")
	}
}

func TestLoadOverlayFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	content := "grid:\n  dx: 0.5\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing temp override: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading overlay failed: %v", err)
	}
	if cfg.Grid.Dx != 0.5 {
		t.Fatalf("expected overlay dx 0.5, got %v", cfg.Grid.Dx)
	}
	// Fields not mentioned in the overlay must keep their embedded default.
	if cfg.Materials.Water.Gamma <= 0 {
		t.Fatalf("expected default water gamma to survive overlay")
	}
}

func TestValidateRejectsBadPoissonRatio(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	cfg.Materials.Elastic.PoissonRatio = 0.5
	if err := cfg.Validate(); !mpmerr.Is(err, mpmerr.InvalidConfig) {
		t.Fatalf("expected InvalidConfig for poisson_ratio=0.5, got %v", err)
	}
}

func TestValidateRejectsBadFrictionAngle(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	cfg.Materials.Sand.FrictionAngle = 0
	if err := cfg.Validate(); !mpmerr.Is(err, mpmerr.InvalidConfig) {
		t.Fatalf("expected InvalidConfig for friction_angle=0, got %v", err)
	}
}

func TestBuildMaterialTableCoversAllTags(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	tbl := cfg.BuildMaterialTable()
	for i, m := range tbl {
		if m == nil {
			t.Fatalf("material table entry %d is nil", i)
		}
	}
}
