// Package shutdown runs registered cleanup steps when the process is asked
// to stop.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Manager runs shutdown functions in reverse registration order, each with
// its own timeout.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger
	mu      sync.Mutex
	funcs   []shutdownFunc
}

type shutdownFunc struct {
	name string
	fn   func(context.Context) error
}

func New(timeout time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		timeout: timeout,
		logger:  logger,
	}
}

// Add registers fn. Register dependencies first: they are stopped last.
func (m *Manager) Add(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, shutdownFunc{name: name, fn: fn})
}

// Wait blocks until SIGINT/SIGTERM or ctx is done, then shuts down.
func (m *Manager) Wait(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	m.logger.Info("shutdown signal received")
	m.Shutdown()
}

// Shutdown runs every registered function. Failures are logged and do not
// stop the remaining functions.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	funcs := make([]shutdownFunc, len(m.funcs))
	copy(funcs, m.funcs)
	m.mu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		f := funcs[i]

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		start := time.Now()
		err := f.fn(ctx)
		cancel()

		if err != nil {
			m.logger.Error("shutdown step failed",
				zap.String("name", f.name), zap.Duration("duration", time.Since(start)), zap.Error(err))
			continue
		}
		m.logger.Info("shutdown step completed",
			zap.String("name", f.name), zap.Duration("duration", time.Since(start)))
	}

	m.logger.Info("graceful shutdown completed")
}

// Closer adapts io.Closer style resources
func Closer(c interface{ Close() error }) func(context.Context) error {
	return func(context.Context) error {
		return c.Close()
	}
}
