//nolint:varnamelen // Test files use idiomatic short variable names (t, tt, etc.)
package config_test

import (
	"strings"
	"testing"

	"github.com/joe/device-explorer/internal/config"
)

// TestValidateDevice tests device URL validation through PostProcessConfig
func TestValidateDevice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		device  string
		wantErr bool
		errMsg  string
	}{
		{name: "valid SFTP URL", device: "sftp://user@host/path"},
		{name: "valid SFTP URL with port", device: "sftp://user@host:2222/sdcard"},
		{name: "SFTP URL without root", device: "sftp://admin@server.com"},
		{name: "memory device", device: "mem://demo"},
		{name: "empty falls back to demo", device: ""},
		{name: "missing user", device: "sftp://host/path", wantErr: true, errMsg: "must include username"},
		{name: "missing host", device: "sftp://user@/path", wantErr: true, errMsg: "must include host"},
		{name: "invalid port", device: "sftp://user@host:abc/path", wantErr: true, errMsg: "invalid"},
		{name: "unsupported scheme", device: "ftp://user@host/path", wantErr: true, errMsg: "unsupported device URL"},
		{name: "local path", device: "/mnt/phone", wantErr: true, errMsg: "unsupported device URL"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Defaults()
			cfg.Device = tt.device
			cfg.MirrorRoot = "/tmp/mirror"

			_, err := config.PostProcessConfig(cfg)

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got nil", tt.device)
					return
				}

				if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
				}

				return
			}

			if err != nil {
				t.Errorf("unexpected error for %q: %v", tt.device, err)
			}
		})
	}
}
