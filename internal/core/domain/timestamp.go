package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// epochMillisThreshold separates Unix seconds from Unix milliseconds.
// 1e12 seconds is far past year 30000, 1e12 milliseconds is 2001.
const epochMillisThreshold = 1e12

// ParseTimestamp reads an instant sent by the indexing service. It accepts an
// RFC 3339 string, or a Unix epoch in seconds or milliseconds given as a JSON
// number or a numeric string. Null, empty and unrecognised values yield the
// zero time.
func ParseTimestamp(raw json.RawMessage) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}
	}

	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
		text = s
	}

	n, err := strconv.ParseFloat(text, 64)
	if err != nil || n <= 0 || math.IsInf(n, 0) || math.IsNaN(n) {
		return time.Time{}
	}
	if n >= epochMillisThreshold {
		return time.UnixMilli(int64(n)).UTC()
	}
	sec, frac := math.Modf(n)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
