package config

import (
	"testing"
	"time"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("RISK_FAIL_OPEN", "false")
	t.Setenv("IMEI_REQUIRE_CHECKSUM", "true")
	t.Setenv("INVENTORY_URL", "http://inventory.local/")
	t.Setenv("INVENTORY_TIMEOUT", "2s")
	t.Setenv("APP_TIMEZONE", "Asia/Jakarta")

	cfg := Load()
	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected port 9090 got %s", cfg.HTTPPort)
	}
	if cfg.Risk.FailOpen {
		t.Fatalf("expected fail-open disabled")
	}
	if !cfg.IMEI.RequireChecksum {
		t.Fatalf("expected checksum to be required")
	}
	if cfg.InventoryURL != "http://inventory.local" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.InventoryURL)
	}
	if cfg.InventoryTimeout != 2*time.Second {
		t.Fatalf("expected 2s timeout got %s", cfg.InventoryTimeout)
	}
	if cfg.Timezone.String() != "Asia/Jakarta" {
		t.Fatalf("expected Asia/Jakarta got %s", cfg.Timezone)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("RISK_FAIL_OPEN", "")
	t.Setenv("APP_TIMEZONE", "Not/AZone")

	cfg := Load()
	if !cfg.Risk.FailOpen {
		t.Fatalf("expected fail-open by default")
	}
	if cfg.Timezone != time.UTC {
		t.Fatalf("expected UTC fallback got %s", cfg.Timezone)
	}
	if cfg.InventoryCacheTTL != 10*time.Minute {
		t.Fatalf("expected default cache ttl got %s", cfg.InventoryCacheTTL)
	}
}
