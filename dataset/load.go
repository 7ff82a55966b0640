package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// LoadCSV reads a CSV file with a header row into a frame. A column is
// numeric when every non-empty cell parses as a float; empty cells in
// numeric columns become NaN.
func LoadCSV(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV %s: %w", path, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("dataset %s is empty", path)
	}

	header := records[0]
	rows := records[1:]
	cols := make([]*Column, len(header))
	for ci, name := range header {
		cols[ci] = buildColumn(strings.TrimSpace(name), rows, ci)
	}
	return NewFrame(cols)
}

func buildColumn(name string, rows [][]string, ci int) *Column {
	numeric := len(rows) > 0
	nonEmpty := 0
	for _, row := range rows {
		cell := strings.TrimSpace(row[ci])
		if cell == "" {
			continue
		}
		nonEmpty++
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			numeric = false
			break
		}
	}
	if nonEmpty == 0 {
		numeric = false
	}

	c := &Column{Name: name, Numeric: numeric}
	for _, row := range rows {
		cell := strings.TrimSpace(row[ci])
		if numeric {
			if cell == "" {
				c.Floats = append(c.Floats, math.NaN())
				continue
			}
			v, _ := strconv.ParseFloat(cell, 64)
			c.Floats = append(c.Floats, v)
		} else {
			c.Strings = append(c.Strings, cell)
		}
	}
	return c
}
