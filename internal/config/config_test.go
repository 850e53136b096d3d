package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.HTTPPort)
	}
	if cfg.LivenessThreshold != 0.8 {
		t.Fatalf("expected liveness threshold 0.8, got %g", cfg.LivenessThreshold)
	}
	if cfg.MatchThreshold != 0.6 {
		t.Fatalf("expected match threshold 0.6, got %g", cfg.MatchThreshold)
	}
	if cfg.StddevDivisor != 30.0 {
		t.Fatalf("expected stddev divisor 30.0, got %g", cfg.StddevDivisor)
	}
	if cfg.AuthRequired {
		t.Fatal("auth must default to off")
	}
	if cfg.TokenIssueSecret != "" {
		t.Fatal("token issue secret must default to unset")
	}
	if cfg.RedisTimeout <= 0 {
		t.Fatalf("expected positive redis timeout default, got %v", cfg.RedisTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("LIVENESS_THRESHOLD", "0.9")
	t.Setenv("RATE_LIMIT_PER_MIN", "5")
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("FACE_SKIP", "1")

	cfg := Load()
	if cfg.HTTPPort != "9999" {
		t.Fatalf("expected port override, got %s", cfg.HTTPPort)
	}
	if cfg.LivenessThreshold != 0.9 {
		t.Fatalf("expected threshold override, got %g", cfg.LivenessThreshold)
	}
	if cfg.RateLimitPerMin != 5 {
		t.Fatalf("expected rate limit override, got %d", cfg.RateLimitPerMin)
	}
	if !cfg.AuthRequired || !cfg.FaceSkip {
		t.Fatalf("expected bool overrides, got %+v", cfg)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("LIVENESS_THRESHOLD", "not-a-number")
	t.Setenv("RATE_LIMIT_PER_MIN", "many")
	t.Setenv("AUTH_REQUIRED", "maybe")

	cfg := Load()
	if cfg.LivenessThreshold != 0.8 {
		t.Fatalf("expected fallback threshold, got %g", cfg.LivenessThreshold)
	}
	if cfg.RateLimitPerMin != 120 {
		t.Fatalf("expected fallback rate limit, got %d", cfg.RateLimitPerMin)
	}
	if cfg.AuthRequired {
		t.Fatal("expected fallback auth flag")
	}
}
