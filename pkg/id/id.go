// Package id generates the identifiers of journal records.
package id

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Source hands out ULIDs stamped with a caller supplied time. IDs from one
// Source increase strictly, also within a millisecond.
type Source struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewSource returns a Source drawing entropy from r, or crypto/rand when r
// is nil.
func NewSource(r io.Reader) *Source {
	if r == nil {
		r = rand.Reader
	}
	return &Source{entropy: ulid.Monotonic(r, 0)}
}

// At returns an id stamped with t.
func (s *Source) At(t time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := ulid.New(ulid.Timestamp(t.UTC()), s.entropy)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

var std = NewSource(nil)

// At returns an id stamped with t from the process wide source. Record ids
// sort by the CreatedAt they were generated for.
func At(t time.Time) string {
	s, err := std.At(t)
	if err != nil {
		// only an exhausted monotonic counter or a broken entropy reader
		panic(err)
	}
	return s
}

// New returns an id stamped with the current time.
func New() string { return At(time.Now()) }

// Time extracts the timestamp of an id.
func Time(s string) (time.Time, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()).UTC(), nil
}

// AggregateLen is the length of an aggregate trade id.
const AggregateLen = 8

// NewAggregate returns a short random id shared by every leg of one
// aggregate trade.
func NewAggregate() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:AggregateLen]
}
