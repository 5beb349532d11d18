package filesystem

import (
	"context"
	"fmt"
)

// OpenDevice connects to the device described by device and returns its
// RemoteFileSystem plus a closer to call when done.
func OpenDevice(
	ctx context.Context, device *DeviceURL, local LocalFileStore, opts ConnectOptions,
) (RemoteFileSystem, func(), error) {
	switch device.Kind {
	case DeviceKindMemory:
		return NewDemoDevice(local), func() {}, nil
	case DeviceKindSFTP:
		conn, err := Connect(ctx, device, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to %s: %w", device.Name(), err)
		}

		remote, err := NewSFTPFileSystem(conn, local, DefaultPoolSize)
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}

		closer := func() {
			_ = remote.Close()
			_ = conn.Close()
		}

		return remote, closer, nil
	default:
		return nil, nil, fmt.Errorf("unsupported device kind %q", device.Kind) //nolint:err113 // Input validation with actual value
	}
}

var (
	_ RemoteFileSystem = (*SFTPFileSystem)(nil)
	_ RemoteFileSystem = (*MockRemoteFileSystem)(nil)
	_ LocalFileStore   = (*BillyStore)(nil)
)
