// Package ledger persists the last-seen build of each tracked app in a CSV
// file with the header appid,buildid,date.
//
// Reads take a shared lock and writes an exclusive lock on <path>.lock, so
// overlapping runs never see a half-written ledger. Writes go through a temp
// file and a rename.
package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// Header is the column order written by Write.
var Header = []string{"appid", "buildid", "date"}

// ErrLocked is returned when the lock could not be taken before the
// context ended.
var ErrLocked = errors.New("ledger is locked by another run")

const lockRetry = 100 * time.Millisecond

// Record is the last-seen build of one app.
type Record struct {
	AppID   string
	BuildID string
	// Date is the build's update day, YYYY-MM-DD, or empty when unknown.
	Date string
}

// Ledger is an ordered app id to record mapping.
type Ledger struct {
	records []Record
	index   map[string]int
}

// New creates a ledger holding records. Later duplicates replace earlier ones.
func New(records ...Record) *Ledger {
	l := &Ledger{index: make(map[string]int)}
	for _, r := range records {
		l.Put(r)
	}
	return l
}

// Get returns the record for appID.
func (l *Ledger) Get(appID string) (Record, bool) {
	i, ok := l.index[appID]
	if !ok {
		return Record{}, false
	}
	return l.records[i], true
}

// Put inserts or replaces the record for r.AppID, keeping its position.
func (l *Ledger) Put(r Record) {
	if i, ok := l.index[r.AppID]; ok {
		l.records[i] = r
		return
	}
	l.index[r.AppID] = len(l.records)
	l.records = append(l.records, r)
}

// AppIDs lists the tracked app ids in ledger order.
func (l *Ledger) AppIDs() []string {
	ids := make([]string, 0, len(l.records))
	for _, r := range l.records {
		ids = append(ids, r.AppID)
	}
	return ids
}

// Records returns a copy of the records in ledger order.
func (l *Ledger) Records() []Record {
	return slices.Clone(l.records)
}

// Len is the number of tracked apps.
func (l *Ledger) Len() int {
	return len(l.records)
}

// Store reads and writes a ledger file.
type Store struct {
	path string
	lock *flock.Flock
}

// NewStore creates a store for the ledger at path.
func NewStore(path string) *Store {
	return &Store{path: path, lock: flock.New(path + ".lock")}
}

// Path is the ledger file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the ledger under a shared lock.
func (s *Store) Load(ctx context.Context) (*Ledger, error) {
	ok, err := s.lock.TryRLockContext(ctx, lockRetry)
	if err != nil {
		return nil, fmt.Errorf("lock ledger: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.read()
}

// Update reads the ledger, applies fn and writes the result back, holding
// the exclusive lock throughout. Nothing is written when fn fails.
func (s *Store) Update(ctx context.Context, fn func(*Ledger) error) error {
	if err := s.exclusive(ctx); err != nil {
		return err
	}
	defer func() { _ = s.lock.Unlock() }()

	l, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(l); err != nil {
		return err
	}
	return s.write(l)
}

func (s *Store) exclusive(ctx context.Context) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger directory: %w", err)
		}
	}
	ok, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("lock ledger: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

func (s *Store) read() (*Ledger, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	l, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", s.path, err)
	}
	return l, nil
}

func (s *Store) write(l *Ledger) error {
	tmpPath := s.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	if err := Write(f, l); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp ledger: %w", err)
	}
	return nil
}

// Read parses a ledger. Columns are located by header name; appid and
// buildid are required, date is optional. Rows with a blank appid are
// skipped.
func Read(r io.Reader) (*Ledger, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range []string{"appid", "buildid"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing %q column", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	l := New()
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rec := Record{
			AppID:   field(row, "appid"),
			BuildID: field(row, "buildid"),
			Date:    field(row, "date"),
		}
		if rec.AppID == "" {
			continue
		}
		l.Put(rec)
	}
	return l, nil
}

// Write encodes the ledger with Header.
func Write(w io.Writer, l *Ledger) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write ledger header: %w", err)
	}
	for _, r := range l.records {
		if err := cw.Write([]string{r.AppID, r.BuildID, r.Date}); err != nil {
			return fmt.Errorf("write ledger row %s: %w", r.AppID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
