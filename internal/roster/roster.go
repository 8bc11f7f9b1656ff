// Package roster tracks which participants of a fixed, ordered roster have
// signed. The table lives in a shared kv slot; nothing here keeps a copy
// between calls, so every read reflects whatever another instance last saved.
package roster

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultSlotKey is the slot the table is persisted under.
const DefaultSlotKey = "spreadsheetData"

var (
	// ErrConflict means the participant already has a signature on record.
	ErrConflict = errors.New("roster: signature already exists")
	// ErrIndexOutOfRange means the participant index is not on the roster.
	ErrIndexOutOfRange = errors.New("roster: participant index out of range")
	// ErrEmptyArtifact means an empty artifact was offered for commit.
	ErrEmptyArtifact = errors.New("roster: artifact is empty")
	// ErrLengthMismatch means a table does not line up with the roster.
	ErrLengthMismatch = errors.New("roster: table length does not match roster")
)

// Record is one participant's entry. Text is reserved and always empty in
// the capture flow; Image holds the encoded artifact or "".
type Record struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// Signed reports whether the record carries an artifact.
func (r Record) Signed() bool {
	return r.Image != ""
}

// Table is index-aligned with a Roster.
type Table []Record

// Clone returns an independent copy of the table.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	copy(out, t)
	return out
}

// Participant is a roster entry; Index is its identity.
type Participant struct {
	Index int
	Name  string
}

// Roster is the fixed ordered list of participant names.
type Roster []string

// New validates names and returns them as a Roster. Names are trimmed;
// blanks and duplicates are rejected.
func New(names []string) (Roster, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("roster: at least one name is required")
	}
	seen := make(map[string]int, len(names))
	out := make(Roster, 0, len(names))
	for i, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, fmt.Errorf("roster: name %d is blank", i)
		}
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("roster: %q listed twice (positions %d and %d)", name, prev, i)
		}
		seen[name] = i
		out = append(out, name)
	}
	return out, nil
}

// Len returns the number of participants.
func (r Roster) Len() int {
	return len(r)
}

// Empty synthesizes an all-unsigned table of the roster's length.
func (r Roster) Empty() Table {
	return make(Table, len(r))
}

// IndexOf returns the position of the exact name, or -1.
func (r Roster) IndexOf(name string) int {
	for i, candidate := range r {
		if candidate == name {
			return i
		}
	}
	return -1
}

// ListUnsigned returns the participants whose record has no image, in
// roster order. The slice is built fresh on every call.
func (r Roster) ListUnsigned(table Table) []Participant {
	out := make([]Participant, 0, len(r))
	for i, name := range r {
		if i < len(table) && table[i].Signed() {
			continue
		}
		out = append(out, Participant{Index: i, Name: name})
	}
	return out
}

// IsComplete reports whether every record carries an image.
func IsComplete(table Table) bool {
	for _, rec := range table {
		if !rec.Signed() {
			return false
		}
	}
	return true
}

// CommitSignature returns a copy of table with the artifact stored at index.
// The input is never modified; callers persist the result themselves.
func CommitSignature(table Table, index int, artifact string) (Table, error) {
	if index < 0 || index >= len(table) {
		return table, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if artifact == "" {
		return table, ErrEmptyArtifact
	}
	if table[index].Signed() {
		return table, ErrConflict
	}
	next := table.Clone()
	next[index].Image = artifact
	return next, nil
}

// CheckAvailable reports ErrConflict when index is already signed, without
// producing a new table.
func CheckAvailable(table Table, index int) error {
	if index < 0 || index >= len(table) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if table[index].Signed() {
		return ErrConflict
	}
	return nil
}
