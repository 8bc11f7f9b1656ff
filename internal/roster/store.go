package roster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/signroll/internal/kv"
)

// Logger receives diagnostics about unreadable slots. It matches
// logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

// Store mediates every read and write of the table against its kv slot.
type Store struct {
	kv     kv.Store
	roster Roster
	key    string
	logger Logger
}

// StoreOption customizes a Store during construction.
type StoreOption func(*Store)

// WithSlotKey overrides DefaultSlotKey.
func WithSlotKey(key string) StoreOption {
	return func(s *Store) {
		if key = strings.TrimSpace(key); key != "" {
			s.key = key
		}
	}
}

// WithLogger routes load diagnostics to l.
func WithLogger(l Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore binds a roster to a kv store.
func NewStore(store kv.Store, r Roster, opts ...StoreOption) *Store {
	s := &Store{
		kv:     store,
		roster: r,
		key:    DefaultSlotKey,
		logger: nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Roster returns the roster this store is aligned with.
func (s *Store) Roster() Roster {
	return s.roster
}

// Key returns the slot key.
func (s *Store) Key() string {
	return s.key
}

// Load reads the slot. An absent, unreadable, or malformed slot yields a
// fresh all-empty table; Load never fails.
func (s *Store) Load(ctx context.Context) Table {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.logger.Printf("roster: read %s: %v", s.key, err)
		return s.roster.Empty()
	}
	if !ok {
		return s.roster.Empty()
	}
	table, err := Decode(raw, s.roster.Len())
	if err != nil {
		s.logger.Printf("roster: treating %s as absent: %v", s.key, err)
		return s.roster.Empty()
	}
	return table
}

// Save persists table to the slot.
func (s *Store) Save(ctx context.Context, table Table) error {
	if len(table) != s.roster.Len() {
		return fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(table), s.roster.Len())
	}
	data, err := Encode(table)
	if err != nil {
		return err
	}
	if err := s.kv.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("roster: save %s: %w", s.key, err)
	}
	return nil
}

// Revision reports the slot revision, or 0 when it cannot be read.
func (s *Store) Revision(ctx context.Context) int64 {
	rev, err := s.kv.Revision(ctx, s.key)
	if err != nil {
		s.logger.Printf("roster: revision %s: %v", s.key, err)
		return 0
	}
	return rev
}

// Encode serializes a table as a JSON array of records.
func Encode(table Table) ([]byte, error) {
	if table == nil {
		table = Table{}
	}
	data, err := json.Marshal(table)
	if err != nil {
		return nil, fmt.Errorf("roster: encode table: %w", err)
	}
	return data, nil
}

var errMalformed = errors.New("roster: malformed table")

// Decode parses a persisted table and checks it has want rows. Each row is
// either a record object or a one-cell array holding a record, the layout
// older browser-based sheets wrote.
func Decode(data []byte, want int) (Table, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: empty value", errMalformed)
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if len(rows) != want {
		return nil, fmt.Errorf("%w: %d rows, want %d", ErrLengthMismatch, len(rows), want)
	}
	table := make(Table, len(rows))
	for i, row := range rows {
		rec, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", errMalformed, i, err)
		}
		table[i] = rec
	}
	return table, nil
}

func decodeRow(row json.RawMessage) (Record, error) {
	row = bytes.TrimSpace(row)
	if len(row) == 0 {
		return Record{}, errors.New("empty row")
	}
	switch row[0] {
	case '{':
		var rec Record
		if err := json.Unmarshal(row, &rec); err != nil {
			return Record{}, err
		}
		return rec, nil
	case '[':
		var cells []Record
		if err := json.Unmarshal(row, &cells); err != nil {
			return Record{}, err
		}
		if len(cells) == 0 {
			return Record{}, errors.New("row has no cells")
		}
		return cells[0], nil
	default:
		return Record{}, fmt.Errorf("unexpected row %s", string(row))
	}
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
