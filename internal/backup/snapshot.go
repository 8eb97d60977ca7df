package backup

import (
	"bufio"
	"os"
	"time"

	"github.com/eternalApril/moonstone/internal/backend"
	"go.uber.org/zap"
)

// Snapshotter copies the live database to a standalone backup file.
// The copy is taken inside a single read transaction, so it is a consistent
// point-in-time image even while writes continue
type Snapshotter struct {
	filename string
	logger   *zap.Logger
}

func New(filename string, logger *zap.Logger) *Snapshotter {
	return &Snapshotter{
		filename: filename,
		logger:   logger,
	}
}

// Save performs an atomic save operation: write to a temp file, fsync,
// then rename over the target
func (s *Snapshotter) Save(b *backend.Backend) error {
	start := time.Now()
	tmpFile := s.filename + ".tmp"

	f, err := os.Create(tmpFile)
	if err != nil {
		return err
	}
	defer f.Close()
	writer := bufio.NewWriterSize(f, 4*1024*1024)

	written, err := b.Snapshot(writer)
	if err != nil {
		return err
	}

	if err := writer.Flush(); err != nil {
		return err
	}

	if err := f.Sync(); err != nil {
		return err
	}
	f.Close()

	if err := os.Rename(tmpFile, s.filename); err != nil {
		return err
	}

	s.logger.Info("snapshot saved",
		zap.String("file", s.filename),
		zap.Int64("bytes", written),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
