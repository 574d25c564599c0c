package gaze

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// ReadCSV parses gaze samples with columns timestamp_ns, x, y and an
// optional worn flag. A header row is skipped when its first field is not a
// number. Rows are returned in file order.
func ReadCSV(r io.Reader) ([]Point, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var points []Point
	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return points, nil
		}
		if err != nil {
			return nil, fmt.Errorf("gaze csv: %w", err)
		}
		if line == 1 && !numeric(record[0]) {
			continue
		}

		p, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("gaze csv line %d: %w", line, err)
		}
		points = append(points, p)
	}
}

// LoadCSV reads gaze samples from a file.
func LoadCSV(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func parseRecord(record []string) (Point, error) {
	if len(record) < 3 {
		return Point{}, fmt.Errorf("want at least 3 fields, got %d", len(record))
	}
	ns, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return Point{}, fmt.Errorf("timestamp: %w", err)
	}
	x, err := strconv.ParseFloat(record[1], 64)
	if err != nil {
		return Point{}, fmt.Errorf("x: %w", err)
	}
	y, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return Point{}, fmt.Errorf("y: %w", err)
	}

	valid := true
	if len(record) > 3 && record[3] != "" {
		valid, err = parseWorn(record[3])
		if err != nil {
			return Point{}, fmt.Errorf("worn: %w", err)
		}
	}
	return Point{X: x, Y: y, Valid: valid, Timestamp: time.Unix(0, ns)}, nil
}

func parseWorn(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "1.0", "true", "yes":
		return true, nil
	case "0", "0.0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized value %q", s)
}

func numeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}
