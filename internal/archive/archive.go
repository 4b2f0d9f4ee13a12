// Package archive persists cleaned season frames as Parquet files in a local
// directory or an S3 bucket.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"footballetl/internal/frame"
	"footballetl/internal/logging"
	"footballetl/internal/season"
)

// DefaultLocalRoot is the LocalStore root when none is configured.
const DefaultLocalRoot = "data"

// ErrEmptyFrame is returned when asked to archive a frame without rows.
var ErrEmptyFrame = errors.New("archive: frame has no rows")

// Key returns the object key for one season of one division.
func Key(label season.Label, division season.Division) string {
	return fmt.Sprintf("raw/%s_%s.parquet", label, division)
}

// Writer encodes frames and hands the files to a Store.
type Writer struct {
	store   Store
	tempDir string
	log     logrus.FieldLogger
}

// NewWriter returns a Writer over store. Temporary files go to tempDir, or
// the system default when empty.
func NewWriter(store Store, tempDir string, log logrus.FieldLogger) *Writer {
	return &Writer{store: store, tempDir: tempDir, log: logging.Component(log, "archive")}
}

// Archive writes f under key, overwriting any previous object.
func (w *Writer) Archive(ctx context.Context, key string, f *frame.Frame) error {
	if f.Len() == 0 {
		return ErrEmptyFrame
	}
	start := time.Now()
	tmp, err := w.tempPath()
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	if err := Encode(f, tmp); err != nil {
		return err
	}
	if err := w.store.Put(ctx, key, tmp); err != nil {
		return err
	}
	w.log.WithFields(logrus.Fields{
		logging.FieldKey:      key,
		logging.FieldRows:     f.Len(),
		logging.FieldDuration: time.Since(start).Truncate(time.Millisecond),
	}).Info("raw data archived")
	return nil
}

// Read fetches and decodes the frame stored under key.
func (w *Writer) Read(ctx context.Context, key string) (*frame.Frame, error) {
	tmp, err := w.tempPath()
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	if err := w.store.Get(ctx, key, tmp); err != nil {
		return nil, err
	}
	return Decode(tmp)
}

func (w *Writer) tempPath() (string, error) {
	f, err := os.CreateTemp(w.tempDir, "footballetl-*.parquet")
	if err != nil {
		return "", fmt.Errorf("archive: temp file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}
