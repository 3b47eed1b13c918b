package ledger

import (
	"sync/atomic"
	"time"
)

// ClockOracle supplies the unix timestamp a transaction observes.
//
// The runtime reads it exactly once per transaction, so every write a
// transaction makes carries the same time. The value is recorded in the
// receipt and replay feeds it back instead of reading the oracle.
type ClockOracle interface {
	Now() int64
}

// SystemClock reads wall-clock time in whole seconds.
type SystemClock struct{}

// Now returns the current unix time.
func (SystemClock) Now() int64 {
	return time.Now().Unix()
}

// FixedClock always returns the same time.
type FixedClock int64

// Now returns the fixed time.
func (c FixedClock) Now() int64 {
	return int64(c)
}

// Sequencer is the logical clock that orders the transaction log.
//
// Every logged transaction is stamped with a strictly increasing seq. Log
// reads order by seq, never by timestamp, so two transactions in the same
// second still replay in submission order.
//
// Thread-safety: Sequencer is safe for concurrent use (atomic operations).
type Sequencer struct {
	seq atomic.Int64
}

// NewSequencer creates a sequencer starting at 0.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// NewSequencerAt creates a sequencer resuming after start.
// Used when reopening a ledger whose log already holds start entries.
func NewSequencerAt(start int64) *Sequencer {
	s := &Sequencer{}
	s.seq.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequencer) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last issued sequence number.
func (s *Sequencer) Current() int64 {
	return s.seq.Load()
}

// observe moves the sequencer forward to at least seq.
func (s *Sequencer) observe(seq int64) {
	for {
		cur := s.seq.Load()
		if cur >= seq || s.seq.CompareAndSwap(cur, seq) {
			return
		}
	}
}
