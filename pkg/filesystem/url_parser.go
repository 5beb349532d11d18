package filesystem

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Device kinds accepted in a device URL.
const (
	DeviceKindMemory = "mem"
	DeviceKindSFTP   = "sftp"
)

// DefaultSFTPPort is used when an sftp:// URL carries no port.
const DefaultSFTPPort = 22

// DeviceURL identifies the device to explore.
type DeviceURL struct {
	Kind string

	// For SFTP devices
	Host string
	Port int
	User string

	// Root is the absolute remote path the explorer tree starts at.
	Root string
}

// Name returns a stable identifier for the device, used to namespace local
// mirror paths.
func (d *DeviceURL) Name() string {
	if d.Kind == DeviceKindMemory {
		if d.Host != "" {
			return "mem-" + d.Host
		}

		return "mem"
	}

	return fmt.Sprintf("%s@%s:%d", d.User, d.Host, d.Port)
}

// ParseDeviceURL parses a device URL.
// Supported formats:
//   - sftp://user@host[:port][/root]   (port defaults to 22, root to /)
//   - mem://[name][/root]              (in-memory demo device)
func ParseDeviceURL(raw string) (*DeviceURL, error) {
	switch {
	case strings.HasPrefix(raw, DeviceKindSFTP+"://"):
		return parseSFTPURL(raw)
	case strings.HasPrefix(raw, DeviceKindMemory+"://"):
		u, err := url.Parse(raw) //nolint:varnamelen // u is idiomatic for URL
		if err != nil {
			return nil, fmt.Errorf("invalid device URL: %w", err)
		}

		return &DeviceURL{Kind: DeviceKindMemory, Host: u.Hostname(), Root: rootPath(u.Path)}, nil
	default:
		return nil, fmt.Errorf("unsupported device URL %q (expected sftp:// or mem://)", raw) //nolint:err113 // URL validation with actual input
	}
}

// parseSFTPURL parses an SFTP URL into its components.
func parseSFTPURL(sftpURL string) (*DeviceURL, error) {
	u, err := url.Parse(sftpURL) //nolint:varnamelen // u is idiomatic for URL
	if err != nil {
		return nil, fmt.Errorf("invalid SFTP URL: %w", err)
	}

	if u.User == nil || u.User.Username() == "" {
		return nil, fmt.Errorf("SFTP URL must include username (sftp://user@host/path)") //nolint:err113,perfsprint // URL validation with format guidance
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("SFTP URL must include host") //nolint:err113,perfsprint // URL validation error
	}

	port := DefaultSFTPPort
	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid port number: %w", err)
		}
		port = p
	}

	return &DeviceURL{
		Kind: DeviceKindSFTP,
		Host: host,
		Port: port,
		User: u.User.Username(),
		Root: rootPath(u.Path),
	}, nil
}

func rootPath(p string) string {
	if p == "" {
		return Separator
	}

	return JoinPath(Separator, p)
}
