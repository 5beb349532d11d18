//nolint:varnamelen // Test files use idiomatic short variable names (t, etc.)
package filesystem_test

import (
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/device-explorer/pkg/filesystem"
)

func TestParseDeviceURL_SFTP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		wantErr  bool
		wantUser string
		wantHost string
		wantPort int
		wantRoot string
	}{
		{
			name:     "basic SFTP URL",
			input:    "sftp://user@host/sdcard",
			wantUser: "user",
			wantHost: "host",
			wantPort: 22,
			wantRoot: "/sdcard",
		},
		{
			name:     "custom port and nested root",
			input:    "sftp://admin@device.local:2222/data/local/tmp/",
			wantUser: "admin",
			wantHost: "device.local",
			wantPort: 2222,
			wantRoot: "/data/local/tmp",
		},
		{
			name:     "no root",
			input:    "sftp://admin@device.local",
			wantUser: "admin",
			wantHost: "device.local",
			wantPort: 22,
			wantRoot: "/",
		},
		{
			name:    "missing username",
			input:   "sftp://host/path",
			wantErr: true,
		},
		{
			name:    "bad port",
			input:   "sftp://u@host:abc/path",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			result, err := filesystem.ParseDeviceURL(tt.input)
			if tt.wantErr {
				g.Expect(err).To(HaveOccurred())
				return
			}

			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(result.Kind).To(Equal(filesystem.DeviceKindSFTP))
			g.Expect(result.User).To(Equal(tt.wantUser))
			g.Expect(result.Host).To(Equal(tt.wantHost))
			g.Expect(result.Port).To(Equal(tt.wantPort))
			g.Expect(result.Root).To(Equal(tt.wantRoot))
		})
	}
}

func TestParseDeviceURL_Memory(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	result, err := filesystem.ParseDeviceURL("mem://demo/sdcard")

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(result.Kind).To(Equal(filesystem.DeviceKindMemory))
	g.Expect(result.Root).To(Equal("/sdcard"))
	g.Expect(result.Name()).To(Equal("mem-demo"))
}

func TestParseDeviceURL_Unsupported(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	_, err := filesystem.ParseDeviceURL("/local/path")

	g.Expect(err).To(MatchError(ContainSubstring("unsupported device URL")))
}

func TestDeviceURL_Name(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	d := &filesystem.DeviceURL{Kind: filesystem.DeviceKindSFTP, User: "u", Host: "h", Port: 22}

	g.Expect(d.Name()).To(Equal("u@h:22"))
}
