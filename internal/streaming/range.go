package streaming

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrRangeNotSatisfiable = errors.New("range not satisfiable")

// Range is an inclusive byte span of a file.
type Range struct {
	Start int64
	End   int64
}

func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

func (r Range) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseRange parses a single "bytes=start-end" header against a file of size
// bytes. An open end means the end of the file. The span is clamped to chunk
// bytes when chunk is positive. Suffix ranges, multiple ranges and bounds
// outside the file are rejected with ErrRangeNotSatisfiable.
func ParseRange(header string, size, chunk int64) (Range, error) {
	spec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return Range{}, ErrRangeNotSatisfiable
	}

	startStr, endStr, ok := strings.Cut(strings.TrimSpace(spec), "-")
	if !ok || startStr == "" {
		return Range{}, ErrRangeNotSatisfiable
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 || start >= size {
		return Range{}, ErrRangeNotSatisfiable
	}

	end := size - 1
	if endStr = strings.TrimSpace(endStr); endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end >= size || end < start {
			return Range{}, ErrRangeNotSatisfiable
		}
	}

	if chunk > 0 && end-start+1 > chunk {
		end = start + chunk - 1
	}
	return Range{Start: start, End: end}, nil
}
