package fetch

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sweeney/weather-epd/internal/network"
)

// StatusOK is the only successful fetch status.
const StatusOK = http.StatusOK

// Transport-level statuses. These match the HTTP client error numbering
// shown on the error screen.
const (
	ConnectionRefused = -1
	SendHeaderFailed  = -2
	SendPayloadFailed = -3
	NotConnected      = -4
	ConnectionLost    = -5
	NoStream          = -6
	NoHTTPServer      = -7
	TooLessRAM        = -8
	Encoding          = -9
	StreamWrite       = -10
	ReadTimeout       = -11
)

// Parse error codes, offset by ParseErrorBase.
const (
	ParseEmptyInput      = 1
	ParseIncompleteInput = 2
	ParseInvalidInput    = 3
	ParseNoMemory        = 4
	ParseTooDeep         = 5
)

// Reserved offsets separating parse failures and link loss from transport
// and HTTP statuses.
const (
	ParseErrorBase = -256
	LinkLostBase   = -512
)

// ParseStatus returns the status for a parse error code.
func ParseStatus(code int) int { return ParseErrorBase - code }

// LinkLostStatus returns the status for a link that dropped before an attempt.
func LinkLostStatus(s network.Status) int { return LinkLostBase - int(s) }

// IsLinkLost reports whether status is in the link-lost range.
func IsLinkLost(status int) bool { return status <= LinkLostBase && status > LinkLostBase-256 }

// IsParseError reports whether status is in the parse-error range.
func IsParseError(status int) bool { return status <= ParseErrorBase && status > LinkLostBase }

// IsTransportError reports whether status is a transport-level failure.
func IsTransportError(status int) bool { return status < 0 && status > ParseErrorBase }

// Error is a failed fetch with its status.
type Error struct {
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch status %d: %s", e.Status, Phrase(e.Status))
	}
	return fmt.Sprintf("fetch status %d: %s: %v", e.Status, Phrase(e.Status), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Status extracts the fetch status from err. A nil error is StatusOK; an
// error carrying no status is reported as ConnectionLost.
func Status(err error) int {
	if err == nil {
		return StatusOK
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Status
	}
	return ConnectionLost
}

var transportPhrases = map[int]string{
	ConnectionRefused: "Connection refused",
	SendHeaderFailed:  "Send header failed",
	SendPayloadFailed: "Send payload failed",
	NotConnected:      "Not connected",
	ConnectionLost:    "Connection lost",
	NoStream:          "No stream",
	NoHTTPServer:      "No HTTP server",
	TooLessRAM:        "Too less RAM",
	Encoding:          "Transfer encoding error",
	StreamWrite:       "Stream write error",
	ReadTimeout:       "Read timeout",
}

var parsePhrases = map[int]string{
	ParseEmptyInput:      "Empty input",
	ParseIncompleteInput: "Incomplete input",
	ParseInvalidInput:    "Invalid input",
	ParseNoMemory:        "No memory",
	ParseTooDeep:         "Too deep",
}

var linkPhrases = map[network.Status]string{
	network.Idle:           "WiFi idle",
	network.NoSSID:         "SSID not available",
	network.ConnectFailed:  "WiFi connection failed",
	network.ConnectionLost: "WiFi connection lost",
	network.Disconnected:   "WiFi disconnected",
}

// Phrase returns a short human-readable description of status for the
// error screen.
func Phrase(status int) string {
	switch {
	case status > 0:
		if p := http.StatusText(status); p != "" {
			return p
		}
	case IsTransportError(status):
		if p, ok := transportPhrases[status]; ok {
			return p
		}
	case IsParseError(status):
		if p, ok := parsePhrases[ParseErrorBase-status]; ok {
			return p
		}
	case IsLinkLost(status):
		if p, ok := linkPhrases[network.Status(LinkLostBase-status)]; ok {
			return p
		}
	}
	return "Unknown error"
}
