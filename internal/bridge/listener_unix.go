//go:build !windows

package bridge

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
)

func (s *Server) setupListener() error {
	// Remove stale socket file
	os.Remove(s.socketPath)

	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.socketPath, err)
	}

	// Owner-only: the bridge carries share-control events for this user's
	// session.
	if err := os.Chmod(s.socketPath, 0700); err != nil {
		listener.Close()
		return fmt.Errorf("chmod %s: %w", s.socketPath, err)
	}

	s.listener = listener
	return nil
}
