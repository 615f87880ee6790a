package api

import (
	"fmt"
	"strconv"
	"strings"
)

// parseRange parses a single-range "bytes=start-end" Range header against a
// file of the given total size, per spec.md §4.F. Suffix ranges
// ("bytes=-500") and open-ended ranges ("bytes=500-") are both supported;
// multi-range requests are rejected since the Range Stream Engine only ever
// serves one chunk per request.
func parseRange(header string, size int64) (start, end int64, err error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0, 0, fmt.Errorf("unsupported range unit")
	}
	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		return 0, 0, fmt.Errorf("multi-range requests are not supported")
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed range")
	}

	switch {
	case parts[0] == "" && parts[1] != "":
		// Suffix range: last N bytes.
		n, perr := strconv.ParseInt(parts[1], 10, 64)
		if perr != nil || n <= 0 {
			return 0, 0, fmt.Errorf("malformed suffix range")
		}
		start = size - n
		if start < 0 {
			start = 0
		}
		end = size - 1
	case parts[0] != "":
		s, perr := strconv.ParseInt(parts[0], 10, 64)
		if perr != nil || s < 0 {
			return 0, 0, fmt.Errorf("malformed range start")
		}
		start = s
		if parts[1] == "" {
			end = size - 1
		} else {
			e, perr := strconv.ParseInt(parts[1], 10, 64)
			if perr != nil || e < s {
				return 0, 0, fmt.Errorf("malformed range end")
			}
			end = e
		}
	default:
		return 0, 0, fmt.Errorf("malformed range")
	}

	if start >= size || start < 0 {
		return 0, 0, fmt.Errorf("range start out of bounds")
	}
	if end >= size {
		end = size - 1
	}
	return start, end, nil
}
