package config

import "testing"

func TestLoadRequiresRPCURL(t *testing.T) {
	t.Setenv("BITCOIND_RPC_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when BITCOIND_RPC_URL is unset")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BITCOIND_RPC_URL", "http://127.0.0.1:8332")
	t.Setenv("OXTU_PORT", "")
	t.Setenv("OXTU_LISTEN", "")
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("MAX_COUNT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Listen != "0.0.0.0" {
		t.Errorf("Listen = %q, want 0.0.0.0", cfg.Listen)
	}
	if cfg.DataPath != "./data" {
		t.Errorf("DataPath = %q, want ./data", cfg.DataPath)
	}
	if cfg.MaxCount != DefaultMaxCount {
		t.Errorf("MaxCount = %d, want %d", cfg.MaxCount, DefaultMaxCount)
	}
}

func TestLoadPasswordRequiresUsername(t *testing.T) {
	t.Setenv("BITCOIND_RPC_URL", "http://127.0.0.1:8332")
	t.Setenv("BITCOIND_RPC_USERNAME", "")
	t.Setenv("BITCOIND_RPC_PASSWORD", "hunter2")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when password is set without username")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BITCOIND_RPC_URL", "http://127.0.0.1:8332")
	t.Setenv("OXTU_PORT", "9090")
	t.Setenv("MAX_COUNT", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.MaxCount != 25 {
		t.Errorf("MaxCount = %d, want 25", cfg.MaxCount)
	}
}
