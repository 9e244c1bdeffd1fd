package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LANFORGE_DEVICE_ID", "")
	t.Setenv("LANFORGE_SERVER_URL", "")
	t.Setenv("LANFORGE_CLIENT_NAME", "")
	t.Setenv("LANFORGE_COORDINATOR_PORT", "")
	t.Setenv("LANFORGE_DISCOVERY_PORT", "")

	cfg := Load()

	if cfg.DeviceID != "" {
		t.Errorf("DeviceID = %q, want empty", cfg.DeviceID)
	}
	if cfg.ServerURL != "ws://localhost:8080" {
		t.Errorf("ServerURL = %q, want %q", cfg.ServerURL, "ws://localhost:8080")
	}
	if cfg.CoordinatorPort != "8080" {
		t.Errorf("CoordinatorPort = %q, want %q", cfg.CoordinatorPort, "8080")
	}
	if cfg.DiscoveryPort != 42069 {
		t.Errorf("DiscoveryPort = %d, want %d", cfg.DiscoveryPort, 42069)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("LANFORGE_DEVICE_ID", "dev-A")
	t.Setenv("LANFORGE_SERVER_URL", "ws://10.0.0.5:9000")
	t.Setenv("LANFORGE_CLIENT_NAME", "Alice")
	t.Setenv("LANFORGE_COORDINATOR_PORT", "9000")
	t.Setenv("LANFORGE_DISCOVERY_PORT", "5000")

	cfg := Load()

	if cfg.DeviceID != "dev-A" {
		t.Errorf("DeviceID = %q, want %q", cfg.DeviceID, "dev-A")
	}
	if cfg.ServerURL != "ws://10.0.0.5:9000" {
		t.Errorf("ServerURL = %q, want %q", cfg.ServerURL, "ws://10.0.0.5:9000")
	}
	if cfg.ClientName != "Alice" {
		t.Errorf("ClientName = %q, want %q", cfg.ClientName, "Alice")
	}
	if cfg.CoordinatorPort != "9000" {
		t.Errorf("CoordinatorPort = %q, want %q", cfg.CoordinatorPort, "9000")
	}
	if cfg.DiscoveryPort != 5000 {
		t.Errorf("DiscoveryPort = %d, want %d", cfg.DiscoveryPort, 5000)
	}
}

func TestLoad_InvalidDiscoveryPort(t *testing.T) {
	t.Setenv("LANFORGE_DISCOVERY_PORT", "not-a-port")

	cfg := Load()

	if cfg.DiscoveryPort != 42069 {
		t.Errorf("DiscoveryPort = %d, want %d (fallback)", cfg.DiscoveryPort, 42069)
	}
}
