package shared

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadPortalConfig(t *testing.T) {
	// --- Test 1: Defaults use the memory store and a dev secret ---
	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("PORTAL_STORE", "")
		t.Setenv("JWT_SECRET", "")
		t.Setenv("ENVIRONMENT", "")

		cfg, err := LoadPortalConfig()
		if err != nil {
			t.Fatalf("LoadPortalConfig failed: %v", err)
		}
		if cfg.Store != StoreMemory || cfg.HTTPPort != DefaultPortalHTTPPort {
			t.Errorf("Unexpected defaults: %+v", cfg)
		}
		if cfg.Security.JWTSecret == "" {
			t.Errorf("Expected development secret")
		}
		if err := ValidatePortalConfig(cfg); err != nil {
			t.Errorf("Expected defaults to validate, got %v", err)
		}
	})

	// --- Test 2: Production requires a secret ---
	t.Run("Production Secret", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("JWT_SECRET", "")

		if _, err := LoadPortalConfig(); err == nil {
			t.Errorf("Expected error without JWT_SECRET in production")
		}
	})

	// --- Test 3: Mongo store requires a URI ---
	t.Run("Mongo Store", func(t *testing.T) {
		t.Setenv("PORTAL_STORE", "Mongo")
		t.Setenv("MONGO_URI", "")
		if _, err := LoadPortalConfig(); err == nil {
			t.Fatalf("Expected error without MONGO_URI")
		}

		t.Setenv("MONGO_URI", "mongodb://localhost:27017")
		t.Setenv("MONGO_MAX_POOL_SIZE", "7")
		cfg, err := LoadPortalConfig()
		if err != nil {
			t.Fatalf("LoadPortalConfig failed: %v", err)
		}
		if cfg.Store != StoreMongo || cfg.MongoDB.MaxPoolSize != 7 || cfg.MongoDB.Database != "UniPortal" {
			t.Errorf("Unexpected mongo config: %+v", cfg.MongoDB)
		}
	})

	// --- Test 4: Unknown store and bad bcrypt cost fail validation ---
	t.Run("Validation", func(t *testing.T) {
		cfg := &PortalConfig{HTTPPort: "8000", Store: "redis", Security: SecurityConfig{BCryptCost: 10}}
		if err := ValidatePortalConfig(cfg); err == nil {
			t.Errorf("Expected unknown store rejected")
		}

		cfg.Store = StoreMemory
		cfg.Security.BCryptCost = 2
		if err := ValidatePortalConfig(cfg); err == nil {
			t.Errorf("Expected low bcrypt cost rejected")
		}
	})
}

func TestLoadClientConfig(t *testing.T) {
	t.Setenv("PORTAL_URL", "http://portal.test:9000/")
	t.Setenv("RECONCILE_MIN_FLAG_DURATION", "")

	cfg := LoadClientConfig()
	if cfg.BaseURL != "http://portal.test:9000" {
		t.Errorf("Expected trailing slash trimmed, got %q", cfg.BaseURL)
	}
	if cfg.MinFlagDuration != 300*time.Millisecond {
		t.Errorf("Expected 300ms floor, got %v", cfg.MinFlagDuration)
	}
	if err := ValidateClientConfig(cfg); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}

	cfg.BaseURL = "portal.test"
	if err := ValidateClientConfig(cfg); err == nil {
		t.Errorf("Expected scheme-less URL rejected")
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_DURATION", "2s")
	t.Setenv("TEST_SLICE", " a, ,b ")

	if got := GetIntEnv("TEST_INT", 5); got != 5 {
		t.Errorf("Expected default on invalid int, got %d", got)
	}
	if !GetBoolEnv("TEST_BOOL", false) {
		t.Errorf("Expected true")
	}
	if got := GetDurationEnv("TEST_DURATION", time.Second); got != 2*time.Second {
		t.Errorf("Expected 2s, got %v", got)
	}
	if got := GetStringSliceEnv("TEST_SLICE", nil); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Expected [a b], got %v", got)
	}
}
