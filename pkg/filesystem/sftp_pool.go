package filesystem

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("sftp client pool is closed")

// SFTPClientPool manages a fixed set of SFTP sessions over a single SSH
// connection. The channel doubles as a semaphore: Acquire blocks until a
// session is returned or ctx is done.
type SFTPClientPool struct {
	sshClient *ssh.Client
	clients   chan *sftp.Client
	size      int
	mu        sync.Mutex
	closed    bool
}

// NewSFTPClientPool opens size SFTP sessions on sshClient.
func NewSFTPClientPool(sshClient *ssh.Client, size int) (*SFTPClientPool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size must be greater than 0, got %d", size) //nolint:err113 // Validation error with actual value
	}

	pool := &SFTPClientPool{
		sshClient: sshClient,
		clients:   make(chan *sftp.Client, size),
		size:      size,
	}

	for i := 0; i < size; i++ { //nolint:varnamelen // i is idiomatic loop counter
		client, err := newSFTPClient(sshClient)
		if err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("failed to create client %d/%d: %w", i+1, size, err)
		}

		pool.clients <- client
	}

	return pool, nil
}

// Acquire takes a session from the pool, waiting until one is free.
func (p *SFTPClientPool) Acquire(ctx context.Context) (*sftp.Client, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		return nil, ErrPoolClosed
	}

	select {
	case client, ok := <-p.clients:
		if !ok {
			return nil, ErrPoolClosed
		}

		return client, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for sftp session: %w", ctx.Err())
	}
}

// Release returns a session to the pool. After Close the session is closed
// instead.
func (p *SFTPClientPool) Release(client *sftp.Client) {
	if client == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = client.Close()
		return
	}

	select {
	case p.clients <- client:
	default:
		_ = client.Close()
	}
}

// Close closes every idle session. Sessions still checked out are closed on
// Release. Close is idempotent and does not close the SSH connection.
func (p *SFTPClientPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}

	p.closed = true
	close(p.clients)
	p.mu.Unlock()

	var firstErr error

	for client := range p.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Size returns the configured number of sessions.
func (p *SFTPClientPool) Size() int {
	return p.size
}
