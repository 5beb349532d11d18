package filesystem

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ConnectOptions controls how the SSH session to a device is authenticated.
type ConnectOptions struct {
	// KnownHostsFile defaults to ~/.ssh/known_hosts.
	KnownHostsFile string
	// Insecure skips host key verification. Intended for throwaway devices.
	Insecure bool
}

// SFTPConnection holds an active SSH connection to a device.
type SFTPConnection struct {
	sshClient *ssh.Client
	device    *DeviceURL
}

// Connect establishes an SSH connection to the device.
// It uses SSH agent and default SSH keys for authentication.
func Connect(ctx context.Context, device *DeviceURL, opts ConnectOptions) (*SFTPConnection, error) {
	authMethods := getSSHAuthMethods()
	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no SSH authentication methods available (tried SSH agent and default keys)") //nolint:err113,perfsprint // Setup error with guidance
	}

	hostKeyCallback, err := hostKeyCallback(opts)
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User:            device.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
	}

	addr := net.JoinHostPort(device.Host, strconv.Itoa(device.Port))

	var dialer net.Dialer

	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("SSH connection failed: %w", err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
	if err != nil {
		_ = netConn.Close()
		return nil, fmt.Errorf("SSH handshake failed: %w", err)
	}

	return &SFTPConnection{
		sshClient: ssh.NewClient(sshConn, chans, reqs),
		device:    device,
	}, nil
}

// Close closes the SSH connection. Pools built on it must be closed first.
func (c *SFTPConnection) Close() error {
	if c.sshClient == nil {
		return nil
	}

	return c.sshClient.Close() //nolint:wrapcheck // Close error passes through unchanged
}

// Device returns the device this connection was opened for.
func (c *SFTPConnection) Device() *DeviceURL {
	return c.device
}

// SSHClient returns the underlying SSH client.
func (c *SFTPConnection) SSHClient() *ssh.Client {
	return c.sshClient
}

func hostKeyCallback(opts ConnectOptions) (ssh.HostKeyCallback, error) {
	if opts.Insecure {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // Explicitly requested by the user
	}

	file := opts.KnownHostsFile
	if file == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate known_hosts: %w", err)
		}

		file = filepath.Join(homeDir, ".ssh", "known_hosts")
	}

	callback, err := knownhosts.New(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts from %s: %w", file, err)
	}

	return callback, nil
}

// getSSHAuthMethods returns SSH authentication methods in priority order:
// 1. SSH agent
// 2. Default SSH keys
func getSSHAuthMethods() []ssh.AuthMethod {
	var authMethods []ssh.AuthMethod

	if agentAuth := trySSHAgent(); agentAuth != nil {
		authMethods = append(authMethods, agentAuth)
	}

	return append(authMethods, tryDefaultSSHKeys()...)
}

// trySSHAgent attempts to connect to the SSH agent.
func trySSHAgent() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil
	}

	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers)
}

// tryDefaultSSHKeys loads unencrypted keys from the default locations.
func tryDefaultSSHKeys() []ssh.AuthMethod {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	sshDir := filepath.Join(homeDir, ".ssh")

	var authMethods []ssh.AuthMethod

	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		keyData, err := os.ReadFile(filepath.Join(sshDir, name)) //nolint:gosec // Fixed key locations
		if err != nil {
			continue
		}

		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			// passphrase-protected keys are left to the agent
			continue
		}

		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	return authMethods
}

func newSFTPClient(sshClient *ssh.Client) (*sftp.Client, error) {
	return sftp.NewClient(sshClient) //nolint:wrapcheck // Wrapped by the pool
}
