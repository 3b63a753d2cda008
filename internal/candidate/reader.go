package candidate

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Columns is the Heimdall candidate file layout, one whitespace separated
// row per candidate.
var Columns = []string{
	"snr", "samp_idx", "time", "filter", "dm_trial", "dm", "members",
	"begin", "end", "nbeams", "beam_mask", "prim_beam", "max_snr", "beam",
}

// ParseError reports a row that could not be decoded.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %s: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ReadFile loads a candidate file from disk.
func ReadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candidate file: %w", err)
	}
	defer f.Close()

	table, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return table, nil
}

// ReadTable decodes Heimdall candidate rows from r. Blank lines and lines
// starting with '#' are skipped. The file's 1-based beam and prim_beam
// columns are converted to 0-based indices.
func ReadTable(r io.Reader) (Table, error) {
	var table Table

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		c, err := parseRow(strings.Fields(line))
		if err != nil {
			err.Line = lineNo
			return nil, err
		}
		table = append(table, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan candidates: %w", err)
	}

	return table, nil
}

type rowParser struct {
	fields []string
	err    *ParseError
}

func (p *rowParser) float(i int) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.fields[i], 64)
	if err != nil {
		p.err = &ParseError{Column: Columns[i], Err: err}
	} else if math.IsNaN(v) || math.IsInf(v, 0) {
		p.err = &ParseError{Column: Columns[i], Err: fmt.Errorf("%q is not a finite number", p.fields[i])}
	}
	return v
}

func (p *rowParser) int(i int) int64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseInt(p.fields[i], 10, 64)
	if err != nil {
		p.err = &ParseError{Column: Columns[i], Err: err}
	}
	return v
}

func (p *rowParser) uint(i int) uint64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseUint(p.fields[i], 10, 64)
	if err != nil {
		p.err = &ParseError{Column: Columns[i], Err: err}
	}
	return v
}

func parseRow(fields []string) (Candidate, *ParseError) {
	if len(fields) < len(Columns) {
		return Candidate{}, &ParseError{
			Err: fmt.Errorf("expected %d columns, found %d", len(Columns), len(fields)),
		}
	}

	p := &rowParser{fields: fields}
	c := Candidate{
		SNR:      p.float(0),
		SampIdx:  p.int(1),
		Time:     p.float(2),
		Filter:   int(p.int(3)),
		DMTrial:  int(p.int(4)),
		DM:       p.float(5),
		Members:  int(p.int(6)),
		Begin:    p.int(7),
		End:      p.int(8),
		NBeams:   int(p.int(9)),
		BeamMask: p.uint(10),
		PrimBeam: int(p.int(11)) - 1,
		MaxSNR:   p.float(12),
		Beam:     int(p.int(13)) - 1,
	}
	if p.err != nil {
		return Candidate{}, p.err
	}
	return c, nil
}
