package status

import "time"

// Result is what happened to a press.
type Result string

// Results recorded in the history.
const (
	ResultFired      Result = "FIRED"
	ResultFailed     Result = "FAILED"
	ResultSuppressed Result = "SUPPRESSED"
	ResultDropped    Result = "DROPPED"
)

// Record is one entry in the recent-activity history.
type Record struct {
	Time   time.Time
	Button string
	Action string
	Result Result
	Error  string
}

// DefaultHistorySize is the number of records kept when none is configured.
const DefaultHistorySize = 20

// history is a fixed-capacity FIFO that keeps the most recent records.
// Not safe for concurrent use; Tracker synchronizes access.
type history struct {
	buf      []Record
	capacity int
	head     int // next write position
	count    int
}

func newHistory(capacity int) *history {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &history{
		buf:      make([]Record, capacity),
		capacity: capacity,
	}
}

func (h *history) push(rec Record) {
	h.buf[h.head] = rec
	h.head = (h.head + 1) % h.capacity
	if h.count < h.capacity {
		h.count++
	}
}

// list returns the records oldest first.
func (h *history) list() []Record {
	if h.count == 0 {
		return nil
	}

	result := make([]Record, h.count)
	// Oldest item is at (head - count) mod capacity
	start := (h.head - h.count + h.capacity) % h.capacity
	for i := 0; i < h.count; i++ {
		result[i] = h.buf[(start+i)%h.capacity]
	}
	return result
}

func (h *history) len() int {
	return h.count
}
