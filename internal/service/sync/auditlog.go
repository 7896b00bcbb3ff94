package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/domain"
)

// Audit record framing, fixed by the downstream consumer: fields separated
// by the ASCII Record Separator, records terminated by the Unit Separator.
const (
	fieldSep  = '\x1e'
	recordEnd = '\x1f'
)

// AuditLog appends EVSE status changes to a monthly log file,
// EVSEStatusChanges_<year>-<month>.log, one record per changed status.
type AuditLog struct {
	dir string
	mu  sync.Mutex
	log *zap.Logger
}

func NewAuditLog(dir string, log *zap.Logger) (*AuditLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	return &AuditLog{dir: dir, log: log}, nil
}

// Append writes the batch of changes, routing each record to the file of its
// own timestamp's calendar month.
func (a *AuditLog) Append(changes []domain.StatusChange) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	files := make(map[string]*os.File)
	defer func() {
		for _, f := range files {
			if err := f.Close(); err != nil {
				a.log.Error("Failed to close audit log file", zap.Error(err))
			}
		}
	}()

	for i := range changes {
		c := &changes[i]
		name := a.fileFor(c.Timestamp)
		f, ok := files[name]
		if !ok {
			var err error
			f, err = os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("failed to open audit log %s: %w", name, err)
			}
			files[name] = f
		}

		record := fmt.Sprintf("%s%c%s%c%s%c",
			c.Timestamp.UTC().Format(time.RFC3339),
			fieldSep, c.EVSEID,
			fieldSep, c.Status,
			recordEnd,
		)
		if _, err := f.WriteString(record); err != nil {
			return fmt.Errorf("failed to append audit record: %w", err)
		}
	}

	return nil
}

func (a *AuditLog) fileFor(ts time.Time) string {
	ts = ts.UTC()
	return filepath.Join(a.dir, fmt.Sprintf("EVSEStatusChanges_%d-%02d.log", ts.Year(), int(ts.Month())))
}
