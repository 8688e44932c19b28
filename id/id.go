// Package id defines TypeID-based identifiers for audit activities and runs.
//
// IDs are K-sortable (UUIDv7-based), globally unique and URL-safe in the
// format "prefix_suffix". Enrollments, exams and submissions keep the
// integer keys of the school database.
package id

import (
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix is the entity tag carried in front of the underscore.
type Prefix string

const (
	PrefixActivity Prefix = "act"
	PrefixRun      Prefix = "run"
)

// ErrEmpty is returned when parsing an empty identifier.
var ErrEmpty = errors.New("id: empty identifier")

// ID is a prefixed TypeID. The zero value is the unset ID and renders as
// the empty string.
//
//nolint:recvcheck // UnmarshalText needs a pointer receiver.
type ID struct {
	tid typeid.TypeID
	set bool
}

// ActivityID identifies one audit activity row.
type ActivityID = ID

// RunID identifies one execution of the job.
type RunID = ID

// New mints an ID under prefix. Prefixes are package constants, so a
// rejected prefix panics.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: generate %q: %v", prefix, err))
	}
	return ID{tid: tid, set: true}
}

func NewActivityID() ActivityID { return New(PrefixActivity) }

func NewRunID() RunID { return New(PrefixRun) }

// Parse decodes any well-formed TypeID.
func Parse(s string) (ID, error) {
	if s == "" {
		return ID{}, ErrEmpty
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("id: %q: %w", s, err)
	}
	return ID{tid: tid, set: true}, nil
}

// ParseActivityID decodes s and requires the "act" prefix.
func ParseActivityID(s string) (ActivityID, error) { return parseAs(s, PrefixActivity) }

// ParseRunID decodes s and requires the "run" prefix.
func ParseRunID(s string) (RunID, error) { return parseAs(s, PrefixRun) }

func parseAs(s string, want Prefix) (ID, error) {
	v, err := Parse(s)
	if err != nil {
		return ID{}, err
	}
	if got := v.Prefix(); got != want {
		return ID{}, fmt.Errorf("id: %q has prefix %q, want %q", s, got, want)
	}
	return v, nil
}

func (i ID) String() string {
	if !i.set {
		return ""
	}
	return i.tid.String()
}

// Prefix reports the entity tag, or "" for the unset ID.
func (i ID) Prefix() Prefix {
	if !i.set {
		return ""
	}
	return Prefix(i.tid.Prefix())
}

// MarshalText encodes the ID for JSON run summaries and activity dumps.
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText accepts an empty input as the unset ID.
func (i *ID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*i = ID{}
		return nil
	}
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*i = v
	return nil
}
