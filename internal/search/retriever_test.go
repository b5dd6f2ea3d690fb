package search

import (
	"testing"

	"github.com/google/uuid"
)

func TestBuildConfigDefaults(t *testing.T) {
	cfg := buildConfig(nil)
	if cfg.limit != DefaultLimit {
		t.Errorf("limit = %d, want %d", cfg.limit, DefaultLimit)
	}
	if cfg.threshold != DefaultThreshold {
		t.Errorf("threshold = %v, want %v", cfg.threshold, DefaultThreshold)
	}
	if cfg.exclude != nil {
		t.Errorf("exclude = %v, want nil", cfg.exclude)
	}
}

func TestBuildConfigOverrides(t *testing.T) {
	id := uuid.New()
	cfg := buildConfig([]Option{
		WithLimit(5),
		WithThreshold(0.3),
		WithExcludeIDs([]uuid.UUID{id}),
	})
	if cfg.limit != 5 {
		t.Errorf("limit = %d, want 5", cfg.limit)
	}
	if cfg.threshold != 0.3 {
		t.Errorf("threshold = %v, want 0.3", cfg.threshold)
	}
	if len(cfg.exclude) != 1 || cfg.exclude[0] != id {
		t.Errorf("exclude = %v, want [%s]", cfg.exclude, id)
	}
}

func TestExcludeParamNeverNil(t *testing.T) {
	if got := excludeParam(nil); got == nil {
		t.Fatal("excludeParam(nil) returned nil, want empty slice")
	}
	ids := []uuid.UUID{uuid.New()}
	if got := excludeParam(ids); len(got) != 1 {
		t.Fatalf("excludeParam(ids) = %v, want the ids back", got)
	}
}
