package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrEmptyFile is returned for a zero-byte input.
	ErrEmptyFile = errors.New("empty file")
	// ErrNoHeader is returned when the input has no header record.
	ErrNoHeader = errors.New("no header row")
)

// Options controls how records are read.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// KeepSpace disables trimming of surrounding whitespace in cells.
	KeepSpace bool
}

// Table is a whole CSV file held in memory.
//
// Rows and Lines are aligned: Lines[i] is the source text of Rows[i]. Blank
// records (every cell empty after trimming) are dropped from both.
type Table struct {
	Encoding Encoding
	Headers  []string
	Rows     [][]string
	Lines    []string
}

// ReadFile detects the encoding of path, decodes it and reads it into a Table.
func ReadFile(ctx context.Context, path string, opt Options) (*Table, error) {
	enc, err := DetectEncoding(path)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyFile
	}

	data, err := enc.Decode(raw)
	if err != nil {
		return nil, err
	}

	t, err := ReadTable(ctx, data, opt)
	if err != nil {
		return nil, err
	}
	t.Encoding = enc
	return t, nil
}

// ReadTable parses decoded CSV text. Records may have any number of fields;
// quotes are handled leniently.
func ReadTable(ctx context.Context, data []byte, opt Options) (*Table, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	comma := opt.Comma
	if comma == 0 {
		comma = ','
	}
	trim := !opt.KeepSpace

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = comma
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var line int

	hdr, err := cr.Read()
	line++
	if err != nil {
		if err == io.EOF {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &Table{
		Headers: hdr,
		Rows:    make([][]string, 0, 1024),
		Lines:   make([]string, 0, 1024),
	}

	start := cr.InputOffset()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rec, err := cr.Read()
		line++
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csv read at record %d: %w", line, err)
		}
		end := cr.InputOffset()
		src := data[start:end]
		start = end

		if trim {
			for i := range rec {
				if hasEdgeSpace(rec[i]) {
					rec[i] = strings.TrimSpace(rec[i])
				}
			}
		}
		if isBlank(rec) {
			continue
		}

		t.Rows = append(t.Rows, rec)
		t.Lines = append(t.Lines, strings.Trim(string(src), "\r\n"))
	}
}

// isBlank reports whether every cell is empty after trimming.
func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// hasEdgeSpace reports whether s starts or ends with ASCII whitespace, so
// TrimSpace can be skipped for the common case.
func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	isSpace := func(b byte) bool {
		return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1]) || !isASCII(s[0]) || !isASCII(s[len(s)-1])
}

func isASCII(b byte) bool { return b < 0x80 }
