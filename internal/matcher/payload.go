package matcher

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ssematimba/gate-check/internal/attendance"
)

// codePayload is the structured form of a scanned identifier.
type codePayload struct {
	PersonID int64 `json:"personId"`
}

// ParsePayload extracts a person id from a scanned code payload.
//
// Three forms are accepted, tried in order: a JSON object {"personId": N},
// a bare integer, and a prefixed identifier whose last dash-separated segment
// is an integer (printed ID cards encode ids as e.g. "GC-STU-42"). Anything
// else fails with attendance.ErrMalformedPayload.
func ParsePayload(payload string) (int64, error) {
	s := strings.TrimSpace(payload)
	if s == "" {
		return 0, attendance.ErrMalformedPayload
	}

	if strings.HasPrefix(s, "{") {
		var cp codePayload
		if err := json.Unmarshal([]byte(s), &cp); err == nil && cp.PersonID > 0 {
			return cp.PersonID, nil
		}
	}

	if id, err := strconv.ParseInt(s, 10, 64); err == nil && id > 0 {
		return id, nil
	}

	if i := strings.LastIndex(s, "-"); i > 0 && i < len(s)-1 {
		if id, err := strconv.ParseInt(s[i+1:], 10, 64); err == nil && id > 0 {
			return id, nil
		}
	}

	return 0, attendance.ErrMalformedPayload
}
