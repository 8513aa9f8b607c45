//go:build windows

package bridge

import (
	"fmt"

	"github.com/Microsoft/go-winio"
)

// SDDL: SYSTEM gets full control, Interactive Users get read/write.
// Renderer surfaces run in the interactive session; service accounts and
// network logons are excluded.
const pipeSecurity = "D:P(A;;GA;;;SY)(A;;GRGW;;;IU)"

func (s *Server) setupListener() error {
	cfg := &winio.PipeConfig{
		SecurityDescriptor: pipeSecurity,
		InputBufferSize:    64 * 1024,
		OutputBufferSize:   64 * 1024,
	}

	listener, err := winio.ListenPipe(s.socketPath, cfg)
	if err != nil {
		return fmt.Errorf("listen pipe %s: %w", s.socketPath, err)
	}

	s.listener = listener
	return nil
}
