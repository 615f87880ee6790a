package upload

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/nekostore/neko-object/internal/apierr"
)

// resolveChunkIndex determines the 0-based chunk index for an incoming
// chunk write (spec.md §4.D, §9). Resolution order:
//  1. X-Chunk-Number header, 1-based.
//  2. Content-Range header, using chunk0Size (the already-stored size of
//     chunk 0) to divide the start offset into an index.
//  3. 0, when neither header is present.
//
// If Content-Range is the only signal and chunk 0 has not been uploaded
// yet (chunk0Size <= 0) while the range's start is beyond byte 0, resolution
// fails with Validation rather than silently defaulting to index 0 — the
// spec's own open question flags that default as a corruption risk.
func resolveChunkIndex(header http.Header, chunk0Size int64) (int, error) {
	if raw := header.Get("X-Chunk-Number"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return 0, apierr.Validation("invalid X-Chunk-Number header")
		}
		return n - 1, nil
	}

	if raw := header.Get("Content-Range"); raw != "" {
		start, err := parseContentRangeStart(raw)
		if err != nil {
			return 0, apierr.Validation("invalid Content-Range header")
		}
		if start == 0 {
			return 0, nil
		}
		if chunk0Size <= 0 {
			return 0, apierr.Validation("cannot resolve chunk index from Content-Range: chunk 0 has not been uploaded yet")
		}
		return int(start / chunk0Size), nil
	}

	return 0, nil
}

// parseContentRangeStart extracts the start offset from a byte Content-Range
// header of the form "bytes start-end/total" or "bytes start-end/*".
func parseContentRangeStart(header string) (int64, error) {
	const prefix = "bytes "
	rest := strings.TrimSpace(header)
	if !strings.HasPrefix(rest, prefix) {
		return 0, apierr.Validation("Content-Range must use the bytes unit")
	}
	rest = strings.TrimPrefix(rest, prefix)

	dash := strings.Index(rest, "-")
	if dash < 0 {
		return 0, apierr.Validation("malformed Content-Range")
	}
	start, err := strconv.ParseInt(rest[:dash], 10, 64)
	if err != nil {
		return 0, apierr.Validation("malformed Content-Range start")
	}
	return start, nil
}
