// Package runner replays block traces against a firmware and the virtual
// storage device it runs on.
package runner

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Record is one request of a trace.
type Record struct {
	Tag      string
	Reserved uint32
	LBA      uint32
	Sectors  uint32
	Read     bool
}

// ParseTrace reads trace lines of the form
// "<tag> <reserved> <lba> <sector_count> <rw>". A zero rw field is a write,
// anything else a read. Blank lines are skipped.
func ParseTrace(r io.Reader) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		rec, err := parseRecord(fields)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: %w", lineNo, err)
		}

		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}

	return records, nil
}

// LoadTrace parses the trace file at path.
func LoadTrace(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open trace file: %w", err)
	}
	defer f.Close()

	return ParseTrace(f)
}

func parseRecord(fields []string) (Record, error) {
	if len(fields) != 5 {
		return Record{}, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}

	var nums [4]uint32
	names := [4]string{"reserved", "lba", "sector count", "rw"}

	for i := range nums {
		v, err := strconv.ParseUint(fields[i+1], 10, 32)
		if err != nil {
			return Record{}, fmt.Errorf("invalid %s %q", names[i], fields[i+1])
		}

		nums[i] = uint32(v)
	}

	return Record{
		Tag:      fields[0],
		Reserved: nums[0],
		LBA:      nums[1],
		Sectors:  nums[2],
		Read:     nums[3] != 0,
	}, nil
}
