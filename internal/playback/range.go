package playback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errInvalidRange  = errors.New("invalid range format")
	errUnsatisfiable = errors.New("range not satisfiable")
)

// byteRange is a satisfiable span of a file: length bytes from start.
type byteRange struct {
	start  int64
	length int64
}

func (b byteRange) contentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", b.start, b.start+b.length-1, size)
}

// parseByteRange resolves a Range header against a file of size bytes.
// ok is false when the header is absent. Only the first range of a
// multi-range header is served; the rest are ignored.
func parseByteRange(header string, size int64) (r byteRange, ok bool, err error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return byteRange{}, false, nil
	}

	unit, spec, found := strings.Cut(header, "=")
	if !found || !strings.EqualFold(strings.TrimSpace(unit), "bytes") {
		return byteRange{}, false, errInvalidRange
	}
	spec, _, _ = strings.Cut(spec, ",")

	first, last, found := strings.Cut(strings.TrimSpace(spec), "-")
	if !found {
		return byteRange{}, false, errInvalidRange
	}
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)

	var start, end int64
	switch {
	case first == "":
		// suffix form: the final n bytes
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return byteRange{}, false, errInvalidRange
		}
		if size == 0 {
			return byteRange{}, false, errUnsatisfiable
		}
		start, end = max(size-n, 0), size-1
	default:
		start, err = strconv.ParseInt(first, 10, 64)
		if err != nil || start < 0 {
			return byteRange{}, false, errInvalidRange
		}
		end = size - 1
		if last != "" {
			end, err = strconv.ParseInt(last, 10, 64)
			if err != nil || end < start {
				return byteRange{}, false, errInvalidRange
			}
		}
		if start >= size {
			return byteRange{}, false, errUnsatisfiable
		}
		end = min(end, size-1)
	}

	return byteRange{start: start, length: end - start + 1}, true, nil
}
