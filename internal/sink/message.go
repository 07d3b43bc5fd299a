package sink

import (
	"encoding/json"
	"time"

	"github.com/sweeney/tv-remote/internal/keys"
)

// Message is the wire form of one key report, shared by the network sinks.
type Message struct {
	Key KeyReport `json:"key"`
}

// KeyReport contains the key report details.
type KeyReport struct {
	Timestamp string   `json:"timestamp"`
	Op        string   `json:"op"`
	Code      uint32   `json:"code,omitempty"`
	Name      string   `json:"name,omitempty"`
	Media     bool     `json:"media,omitempty"`
	Report    *[2]byte `json:"report,omitempty"` // consumer report bytes for media keys
}

// FormatMessage creates the JSON payload for a key report. code is ignored
// for OpReleaseAll.
func FormatMessage(op Op, code keys.Code, ts time.Time) ([]byte, error) {
	kr := KeyReport{
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
		Op:        string(op),
	}
	if op != OpReleaseAll {
		kr.Code = uint32(code)
		kr.Name = code.String()
		if code.IsMedia() {
			r := code.MediaReport()
			kr.Media = true
			kr.Report = &r
		}
	}
	return json.Marshal(Message{Key: kr})
}
