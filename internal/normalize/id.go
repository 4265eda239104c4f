package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Remote identifiers sometimes arrive with a resource prefix baked in.
var idPrefixes = []string{"phone_", "file_", "agent_"}

var ErrIDOutOfRange = errors.New("normalize: identifier exceeds remote numeric range")

// ExtractID turns a remote identifier of any JSON type into an opaque
// string. Identifiers stay strings locally: remote numeric IDs can
// exceed 32-bit range, and a lossy cast would corrupt the mirror key.
func ExtractID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return StripIDPrefix(strings.TrimSpace(id))
	case float64:
		if id == math.Trunc(id) {
			return strconv.FormatInt(int64(id), 10)
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return ""
	}
}

// StripIDPrefix removes a known textual resource prefix, if present.
func StripIDPrefix(s string) string {
	for _, p := range idPrefixes {
		if strings.HasPrefix(s, p) {
			return strings.TrimPrefix(s, p)
		}
	}
	return s
}

// BoundedInt32ID parses a locally stored identifier for use at the
// remote call boundary, which only accepts signed 32-bit integers.
// The parse fails closed: callers skip the outbound call and log.
func BoundedInt32ID(s string) (int32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty identifier", ErrIDOutOfRange)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not numeric", ErrIDOutOfRange, s)
	}
	if n < 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d", ErrIDOutOfRange, n)
	}
	return int32(n), nil
}
