// Package backup snapshots the vector store into portable tar.gz
// archives and coordinates writers so a snapshot never captures a
// half-written store.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"github.com/lexicon-id/putusan/internal/config"
	"github.com/lexicon-id/putusan/internal/knowledge"
	"github.com/lexicon-id/putusan/internal/metrics"
)

// Sentinel errors for snapshot and restore operations.
var (
	// ErrBackupInProgress indicates another process holds the backup lock.
	ErrBackupInProgress = errors.New("backup already in progress")

	// ErrBackendMismatch indicates the archive was taken from a
	// different vector backend than the one configured.
	ErrBackendMismatch = errors.New("archive backend does not match configured backend")
)

const (
	archivePrefix = "putusan-backup-"
	archiveSuffix = ".tar.gz"
	storeEntryDir = "vectorstore"
	lockFilename  = ".backup.lock"
)

// DocumentCounter reports the current vector store document count,
// recorded in the manifest for operator visibility.
type DocumentCounter interface {
	Count(ctx context.Context) (int, error)
}

// Result summarizes a completed snapshot.
type Result struct {
	ArchivePath string
	SizeBytes   int64
	Documents   int
	Duration    time.Duration
}

// Config carries coordinator dependencies.
type Config struct {
	// Dir is where archives are written.
	Dir string

	// Backend is the configured vector backend ("local" or "postgres").
	Backend string

	// VectorPath is the local store directory. Required for the local
	// backend, ignored otherwise.
	VectorPath string

	// Store reports document counts for the manifest. Optional.
	Store DocumentCounter

	// Gate quiesces writers during a snapshot. Required.
	Gate *Gate

	// Schedule is a cron expression for periodic snapshots. Empty
	// disables scheduling.
	Schedule string

	// Retain is how many archives to keep. Zero keeps all.
	Retain int

	// ServiceVersion is recorded in the manifest.
	ServiceVersion string

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Coordinator creates and restores vector store snapshots.
type Coordinator struct {
	dir            string
	backend        string
	vectorPath     string
	store          DocumentCounter
	gate           *Gate
	schedule       string
	retain         int
	serviceVersion string
	metrics        *metrics.Metrics
	logger         *slog.Logger
	cron           *cron.Cron
}

// New creates a backup coordinator.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("backup directory is required")
	}
	if cfg.Gate == nil {
		return nil, fmt.Errorf("write gate is required")
	}
	if cfg.Backend == config.VectorBackendLocal && cfg.VectorPath == "" {
		return nil, fmt.Errorf("vector path is required for the local backend")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		dir:            cfg.Dir,
		backend:        cfg.Backend,
		vectorPath:     cfg.VectorPath,
		store:          cfg.Store,
		gate:           cfg.Gate,
		schedule:       cfg.Schedule,
		retain:         cfg.Retain,
		serviceVersion: cfg.ServiceVersion,
		metrics:        cfg.Metrics,
		logger:         logger,
	}, nil
}

// Snapshot creates a new archive in the backup directory.
//
// Writers are paused for the duration: the snapshot waits for in-flight
// write batches to finish, and new batches block until the archive is
// sealed. Concurrent snapshots (including from other processes) are
// rejected via a lock file in the backup directory.
func (c *Coordinator) Snapshot(ctx context.Context) (*Result, error) {
	start := time.Now()

	res, err := c.snapshot(ctx)
	c.metrics.RecordBackup(err, sizeOf(res), time.Now().Unix())
	if err != nil {
		c.logger.Error("snapshot failed", "error", err)
		return nil, err
	}

	res.Duration = time.Since(start)
	c.logger.Info("snapshot complete",
		"archive", res.ArchivePath,
		"size_bytes", res.SizeBytes,
		"documents", res.Documents,
		"duration", res.Duration,
	)
	return res, nil
}

// acquireLock takes the backup-dir flock shared by snapshots and
// restores, across processes. Returns ErrBackupInProgress when held.
func (c *Coordinator) acquireLock() (*flock.Flock, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}

	lock := flock.New(filepath.Join(c.dir, lockFilename))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire backup lock: %w", err)
	}
	if !locked {
		return nil, ErrBackupInProgress
	}
	return lock, nil
}

func (c *Coordinator) snapshot(ctx context.Context) (*Result, error) {
	lock, err := c.acquireLock()
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	resume := c.gate.quiesce()
	defer resume()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	documents := 0
	if c.store != nil {
		n, err := c.store.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count documents: %w", err)
		}
		documents = n
	}

	manifest := &Manifest{
		Version:         ManifestVersion,
		CreatedAt:       time.Now().UTC(),
		ServiceVersion:  c.serviceVersion,
		Backend:         c.backend,
		Collection:      knowledge.CollectionName,
		Documents:       documents,
		VectorDimension: knowledge.VectorDimension,
	}

	name := archivePrefix + manifest.CreatedAt.Format("20060102-150405") + archiveSuffix
	path := filepath.Join(c.dir, name)

	if err := c.writeArchive(path, manifest); err != nil {
		return nil, err
	}

	if err := c.prune(); err != nil {
		c.logger.Warn("pruning old archives failed", "error", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	return &Result{
		ArchivePath: path,
		SizeBytes:   info.Size(),
		Documents:   documents,
	}, nil
}

// writeArchive builds the archive in a temp file first so a crash never
// leaves a truncated archive under the final name.
func (c *Coordinator) writeArchive(path string, manifest *Manifest) error {
	tmp, err := os.CreateTemp(c.dir, ".putusan-backup-*")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := c.fillArchive(tmp, manifest); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

func (c *Coordinator) fillArchive(w io.Writer, manifest *Manifest) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	data, err := manifest.Marshal()
	if err != nil {
		return err
	}
	if err := writeTarBytes(tw, manifestFilename, data, 0o644); err != nil {
		return err
	}

	switch c.backend {
	case config.VectorBackendLocal:
		if err := writeTarDir(tw, c.vectorPath, storeEntryDir); err != nil {
			return fmt.Errorf("archive vector store: %w", err)
		}
	default:
		// Postgres data lives outside this process; the archive records
		// the manifest so operators can correlate with pg_dump output.
		c.logger.Warn("postgres backend: archive contains manifest only, use pg_dump for data")
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}
	return nil
}

// Restore replaces the local vector store with the archive contents.
//
// Run this while the service is stopped: the store swap is not
// coordinated with live readers.
func (c *Coordinator) Restore(ctx context.Context, archivePath string) error {
	if c.backend != config.VectorBackendLocal {
		return fmt.Errorf("restore is only supported for the local backend, use pg_restore for postgres")
	}

	manifest, err := readManifestFromArchive(archivePath)
	if err != nil {
		return err
	}
	if err := manifest.Validate(); err != nil {
		return err
	}
	if manifest.Backend != c.backend {
		return fmt.Errorf("%w: archive is %q, configured %q", ErrBackendMismatch, manifest.Backend, c.backend)
	}

	lock, err := c.acquireLock()
	if err != nil {
		return err
	}
	defer lock.Unlock()

	resume := c.gate.quiesce()
	defer resume()

	if err := ctx.Err(); err != nil {
		return err
	}

	// Extract next to the store directory, then swap. A failed extract
	// leaves the live store untouched.
	parent := filepath.Dir(c.vectorPath)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create store parent: %w", err)
	}
	staging, err := os.MkdirTemp(parent, ".putusan-restore-*")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := extractStore(archivePath, staging); err != nil {
		return err
	}

	if err := os.RemoveAll(c.vectorPath); err != nil {
		return fmt.Errorf("remove old store: %w", err)
	}
	if err := os.Rename(staging, c.vectorPath); err != nil {
		return fmt.Errorf("swap in restored store: %w", err)
	}

	c.logger.Info("restore complete",
		"archive", archivePath,
		"documents", manifest.Documents,
		"created_at", manifest.CreatedAt,
	)
	return nil
}

// extractStore unpacks the vectorstore/ entries of the archive into dest.
func extractStore(archivePath, dest string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("read gzip: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}

		rel, ok := strings.CutPrefix(hdr.Name, storeEntryDir+"/")
		if !ok || rel == "" {
			continue
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		target, err := safeJoin(dest, rel)
		if err != nil {
			return err
		}
		if err := extractFile(tr, hdr, target); err != nil {
			return err
		}
	}
}

// prune deletes the oldest archives beyond the retention count.
func (c *Coordinator) prune() error {
	if c.retain <= 0 {
		return nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read backup directory: %w", err)
	}

	var archives []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, archivePrefix) && strings.HasSuffix(name, archiveSuffix) {
			archives = append(archives, name)
		}
	}
	if len(archives) <= c.retain {
		return nil
	}

	// Timestamped names sort oldest first.
	sort.Strings(archives)
	for _, name := range archives[:len(archives)-c.retain] {
		path := filepath.Join(c.dir, name)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		c.logger.Info("pruned old archive", "archive", path)
	}
	return nil
}

// Start begins periodic snapshots on the configured cron schedule.
// It is a no-op when no schedule is set.
func (c *Coordinator) Start() error {
	if c.schedule == "" {
		return nil
	}

	c.cron = cron.New()
	_, err := c.cron.AddFunc(c.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := c.Snapshot(ctx); err != nil && !errors.Is(err, ErrBackupInProgress) {
			c.logger.Error("scheduled snapshot failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", c.schedule, err)
	}

	c.cron.Start()
	c.logger.Info("scheduled snapshots started", "schedule", c.schedule)
	return nil
}

// Stop halts the snapshot scheduler and waits for a running job.
func (c *Coordinator) Stop() {
	if c.cron == nil {
		return
	}
	<-c.cron.Stop().Done()
}

func sizeOf(r *Result) int64 {
	if r == nil {
		return 0
	}
	return r.SizeBytes
}
