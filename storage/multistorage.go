package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/secret-sharing-service/interfaces"
	"github.com/ruteri/secret-sharing-service/metrics"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// MultiStorageBackend implements interfaces.StorageBackend over several backends.
// Store writes to every available backend concurrently; Fetch reads from the first
// backend that has the content.
type MultiStorageBackend struct {
	backends []interfaces.StorageBackend
	log      *slog.Logger
}

// NewMultiStorageBackend creates a new multi-storage backend with fallback
func NewMultiStorageBackend(backends []interfaces.StorageBackend, logger *slog.Logger) *MultiStorageBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStorageBackend{
		backends: backends,
		log:      logger,
	}
}

// Fetch tries backends in order. It returns ErrContentNotFound when every available
// backend reports the content missing, and ErrBackendUnavailable when none is reachable.
func (m *MultiStorageBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	start := time.Now()
	var errs []error
	contentIDStr := fmt.Sprintf("%x", id[:8])
	notFound := 0

	for _, backend := range m.backends {
		if !m.available(ctx, backend) {
			m.log.Debug("Backend unavailable",
				slog.String("backend_name", backend.Name()),
				slog.String("content_id", contentIDStr))
			continue
		}

		data, err := backend.Fetch(ctx, id, contentType)
		if err == nil {
			m.log.Debug("Fetched content",
				slog.String("backend_name", backend.Name()),
				slog.String("content_id", contentIDStr),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		if errors.Is(err, interfaces.ErrContentNotFound) {
			notFound++
		}
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		m.log.Debug("Failed to fetch from backend",
			slog.String("backend_name", backend.Name()),
			slog.String("content_id", contentIDStr),
			"err", err)
	}

	switch {
	case len(errs) == 0:
		return nil, fmt.Errorf("%w: no backend available to fetch %s", interfaces.ErrBackendUnavailable, contentIDStr)
	case notFound == len(errs):
		return nil, fmt.Errorf("%w: %s", interfaces.ErrContentNotFound, contentIDStr)
	default:
		m.log.Error("All backends failed to fetch content",
			slog.String("content_id", contentIDStr),
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: all backends failed to fetch %s: %w", interfaces.ErrBackendUnavailable, contentIDStr, errors.Join(errs...))
	}
}

// Store saves data to all available backends concurrently. It succeeds when at
// least one backend stored the data.
func (m *MultiStorageBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	start := time.Now()
	expected := interfaces.ComputeID(data)

	// One slot per backend, so goroutines never share a write target.
	errs := make([]error, len(m.backends))
	successes := atomic.NewInt32(0)

	var g errgroup.Group
	for i, backend := range m.backends {
		i, backend := i, backend
		g.Go(func() error {
			if !m.available(ctx, backend) {
				m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
				return nil
			}

			id, err := backend.Store(ctx, data, contentType)
			if err != nil {
				m.log.Warn("Failed to store to backend",
					slog.String("backend_name", backend.Name()),
					"err", err)
				errs[i] = fmt.Errorf("%s: %w", backend.Name(), err)
				return errs[i]
			}
			if id != expected {
				m.log.Warn("Inconsistent hashes from backends",
					slog.String("backend_name", backend.Name()),
					slog.String("expected_id", expected.String()),
					slog.String("actual_id", id.String()))
				errs[i] = fmt.Errorf("%s: content ID mismatch", backend.Name())
				return errs[i]
			}
			successes.Inc()
			return nil
		})
	}

	// Wait reports the first failure only; errs holds all of them.
	if err := g.Wait(); err != nil {
		if successes.Load() == 0 {
			m.log.Error("All backends failed to store data",
				slog.Int("failed_backends", countErrors(errs)),
				slog.Duration("duration", time.Since(start)))
			return expected, fmt.Errorf("%w: all backends failed to store data: %w", interfaces.ErrBackendUnavailable, errors.Join(errs...))
		}
		m.log.Warn("Stored content on a subset of backends",
			slog.String("content_id", expected.String()),
			slog.Int("failed_backends", countErrors(errs)),
			"err", errors.Join(errs...))
	}

	if successes.Load() == 0 {
		return expected, fmt.Errorf("%w: no backend available to store data", interfaces.ErrBackendUnavailable)
	}

	m.log.Debug("Stored content",
		slog.String("content_id", expected.String()),
		slog.Int("backends", int(successes.Load())),
		slog.Duration("duration", time.Since(start)))

	return expected, nil
}

func countErrors(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}

func (m *MultiStorageBackend) available(ctx context.Context, backend interfaces.StorageBackend) bool {
	ok := backend.Available(ctx)
	metrics.SetBackendAvailable(backend.Name(), ok)
	return ok
}

// Available checks if any backend is available
func (m *MultiStorageBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if m.available(ctx, backend) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend
func (m *MultiStorageBackend) Name() string {
	return "multi-storage"
}

// LocationURI returns the URI of this backend
func (m *MultiStorageBackend) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}
