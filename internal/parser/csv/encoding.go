// Package csv reads whole CSV files into memory for profiling.
//
// Inputs are UTF-8, with or without a byte-order mark. The BOM decides the
// decoding strategy: with a BOM the file is decoded BOM-aware and the mark is
// removed from the text; without one it is decoded as plain UTF-8. Anything
// that is not valid UTF-8 is rejected for the whole file.
package csv

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names as recorded in the catalog.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-sig"
)

// ErrInvalidUTF8 is returned when a file does not decode as UTF-8.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encoding is the decoding strategy chosen for a file.
type Encoding struct {
	Name   string
	HasBOM bool
}

// DetectEncoding inspects the first three bytes of path.
func DetectEncoding(path string) (Encoding, error) {
	f, err := os.Open(path)
	if err != nil {
		return Encoding{}, fmt.Errorf("detect encoding: %w", err)
	}
	defer f.Close()

	head := make([]byte, len(utf8BOM))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Encoding{}, fmt.Errorf("detect encoding: %w", err)
	}
	return EncodingOf(head[:n]), nil
}

// EncodingOf picks the decoding strategy from the leading bytes of a file.
func EncodingOf(head []byte) Encoding {
	if bytes.HasPrefix(head, utf8BOM) {
		return Encoding{Name: EncodingUTF8BOM, HasBOM: true}
	}
	return Encoding{Name: EncodingUTF8, HasBOM: false}
}

func (e Encoding) decoder() *encoding.Decoder {
	if e.HasBOM {
		return unicode.UTF8BOM.NewDecoder()
	}
	return unicode.UTF8.NewDecoder()
}

// Decode validates raw as UTF-8 and decodes it with the encoding's strategy.
func (e Encoding) Decode(raw []byte) ([]byte, error) {
	if !utf8.Valid(raw) {
		return nil, ErrInvalidUTF8
	}
	out, _, err := transform.Bytes(e.decoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", e.Name, err)
	}
	return out, nil
}
