// Package gc removes orphaned blobs from the content store.
//
// A blob is orphaned when no tree node references it anymore. Orphans can
// accumulate after a crash between a blob write and its node update, after
// a failed delete, or through interrupted chunked uploads. The collector
// walks the hierarchy to gather every referenced object id, lists the blob
// store, and deletes the difference.
package gc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/radium-data/radium/internal/logger"
	"github.com/radium-data/radium/pkg/namespace"
	"github.com/radium-data/radium/pkg/store/blob"
	"github.com/radium-data/radium/pkg/store/node"
)

// Config contains configuration for the garbage collector.
type Config struct {
	// Enabled controls whether background collection runs (default: false)
	Enabled bool

	// Interval is how often to run garbage collection (default: 24h)
	Interval time.Duration

	// DryRun mode logs what would be deleted without actually deleting
	// (default: false)
	DryRun bool

	// Scheme is the URL scheme marking blob-store content (default:
	// namespace.DefaultScheme)
	Scheme string
}

// Collector performs periodic garbage collection on the blob store.
//
// Thread safety: safe for concurrent use.
type Collector struct {
	nodes  node.Store
	blobs  blob.Scannable
	remove func(ctx context.Context, id string) error
	config Config
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewCollector returns an initialized collector. Call Start to begin
// background collection. The blob store must be Scannable.
func NewCollector(nodes node.Store, blobs blob.Store, config Config) (*Collector, error) {
	scannable, ok := blobs.(blob.Scannable)
	if !ok {
		return nil, fmt.Errorf("blob store does not support scanning")
	}

	if config.Interval == 0 {
		config.Interval = 24 * time.Hour
	}
	if config.Scheme == "" {
		config.Scheme = namespace.DefaultScheme
	}

	return &Collector{
		nodes:  nodes,
		blobs:  scannable,
		remove: blobs.DeleteAll,
		config: config,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}, nil
}

// Start begins background garbage collection. Does nothing when collection
// is disabled.
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("Garbage collection disabled")
		return
	}

	logger.Info("Starting garbage collector: interval=%s dry_run=%v",
		c.config.Interval, c.config.DryRun)

	go c.worker()
}

// Stop stops the garbage collector and waits for it to finish any
// in-progress run, bounded by the context.
func (c *Collector) Stop(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	logger.Info("Stopping garbage collector...")
	close(c.stopCh)

	select {
	case <-c.doneCh:
		logger.Info("Garbage collector stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Garbage collector shutdown timeout")
		return ctx.Err()
	}
}

// RunNow triggers an immediate collection run and blocks until it completes
// or the context is cancelled.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	return c.collect(ctx)
}

func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			stats, err := c.collect(ctx)
			cancel()

			if err != nil {
				logger.Error("Garbage collection failed: %v", err)
			} else {
				logger.Info("Garbage collection completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			return
		}
	}
}

// collect performs a single run: gather the object ids referenced by the
// hierarchy, list the blob store, delete what only the blob store knows.
func (c *Collector) collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	referenced, err := c.referencedIDs(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to gather referenced objects: %w", err)
	}
	stats.ReferencedCount = uint64(len(referenced))

	existing, err := c.blobs.ListIDs(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list stored objects: %w", err)
	}
	stats.ExistingCount = uint64(len(existing))

	orphaned := make([]string, 0)
	for _, id := range existing {
		if _, ok := referenced[id]; !ok {
			orphaned = append(orphaned, id)
		}
	}
	stats.OrphanedCount = uint64(len(orphaned))

	if len(orphaned) == 0 {
		stats.EndTime = time.Now()
		return stats, nil
	}

	if c.config.DryRun {
		logger.Info("GC dry run: would delete %d objects", len(orphaned))
		for _, id := range orphaned {
			logger.Debug("GC dry run: orphan %s", id)
		}
		stats.EndTime = time.Now()
		return stats, nil
	}

	for _, id := range orphaned {
		if err := ctx.Err(); err != nil {
			stats.EndTime = time.Now()
			return stats, err
		}
		if err := c.remove(ctx, id); err != nil {
			logger.Warn("GC: failed to delete orphan %s: %v", id, err)
			stats.FailedCount++
			continue
		}
		stats.DeletedCount++
	}

	stats.EndTime = time.Now()
	return stats, nil
}

// referencedIDs walks the whole hierarchy breadth-first and returns the set
// of object ids referenced by any stored version of any resource. External
// references carry a foreign scheme and are skipped.
func (c *Collector) referencedIDs(ctx context.Context) (map[string]struct{}, error) {
	referenced := make(map[string]struct{})
	seen := map[string]struct{}{node.RootContainer: {}}
	queue := []string{node.RootContainer}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		container := queue[0]
		queue = queue[1:]

		rows, err := c.nodes.List(ctx, container)
		if err != nil {
			return nil, fmt.Errorf("failed to list %q: %w", container, err)
		}
		for _, row := range rows {
			if row.IsRoot() {
				continue
			}
			if row.IsObject {
				if strings.HasPrefix(row.ObjectURL, c.config.Scheme) {
					referenced[strings.TrimPrefix(row.ObjectURL, c.config.Scheme)] = struct{}{}
				}
				continue
			}
			// collection rows repeat per stored version
			if _, ok := seen[row.Path()]; !ok {
				seen[row.Path()] = struct{}{}
				queue = append(queue, row.Path())
			}
		}
	}
	return referenced, nil
}

// Stats contains statistics from a garbage collection run.
type Stats struct {
	StartTime       time.Time
	EndTime         time.Time
	ReferencedCount uint64 // object ids referenced by the hierarchy
	ExistingCount   uint64 // object ids present in the blob store
	OrphanedCount   uint64 // orphans found
	DeletedCount    uint64 // orphans deleted
	FailedCount     uint64 // orphans that failed to delete
}

// Duration returns the total collection duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the collection.
func (s *Stats) Summary() string {
	return fmt.Sprintf("referenced=%d existing=%d orphaned=%d deleted=%d failed=%d duration=%s",
		s.ReferencedCount, s.ExistingCount, s.OrphanedCount,
		s.DeletedCount, s.FailedCount, s.Duration())
}
