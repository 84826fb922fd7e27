// Package journal records mapping calls in a bbolt database so a run can be
// inspected after the fact.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketCalls = []byte("calls")

// ErrClosed is returned by operations on a closed journal.
var ErrClosed = errors.New("journal: closed")

// Entry is one journaled call. Result is the raw syscall return value: an
// address or 0 on success, a negated errno on failure.
type Entry struct {
	Seq    uint64    `json:"-"`
	Time   time.Time `json:"time"`
	PID    int       `json:"pid"`
	Op     string    `json:"op"`
	Addr   uint64    `json:"addr"`
	Length uint64    `json:"length"`
	Prot   string    `json:"prot,omitempty"`
	Flags  string    `json:"flags,omitempty"`
	FD     int       `json:"fd"`
	Offset int64     `json:"offset"`
	Result int64     `json:"result"`
}

func (e Entry) String() string {
	if e.Op == "munmap" {
		return fmt.Sprintf("%6d pid=%d munmap(%#x, %d) = %d", e.Seq, e.PID, e.Addr, e.Length, e.Result)
	}
	return fmt.Sprintf("%6d pid=%d %s(%#x, %d, %s, %s, %d, %d) = %#x",
		e.Seq, e.PID, e.Op, e.Addr, e.Length, e.Prot, e.Flags, e.FD, e.Offset, e.Result)
}

// Journal is an append-only log of calls.
type Journal struct {
	db *bolt.DB
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCalls)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &Journal{db: db}, nil
}

// Append stores e under the next sequence number and returns it.
func (j *Journal) Append(e Entry) (uint64, error) {
	if j.db == nil {
		return 0, ErrClosed
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	var seq uint64
	err := j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCalls)
		var err error
		if seq, err = b.NextSequence(); err != nil {
			return err
		}
		val, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), val)
	})
	if err != nil {
		return 0, fmt.Errorf("journal: append: %w", err)
	}
	return seq, nil
}

// Entries returns every entry with sequence number >= from, in order.
func (j *Journal) Entries(from uint64) ([]Entry, error) {
	if j.db == nil {
		return nil, ErrClosed
	}
	var out []Entry
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketCalls).Cursor()
		for k, v := c.Seek(seqKey(from)); k != nil; k, v = c.Next() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			e.Seq = binary.BigEndian.Uint64(k)
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return out, nil
}

// Len returns the number of entries.
func (j *Journal) Len() (int, error) {
	if j.db == nil {
		return 0, ErrClosed
	}
	var n int
	err := j.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketCalls).Stats().KeyN
		return nil
	})
	return n, err
}

// Close closes the database. Close is idempotent.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

func seqKey(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}
