package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"ebay-sales-analytics/models"
)

var (
	// ErrStructural marks a source that cannot be read as a delimited table at
	// all. It is terminal for that source only.
	ErrStructural = errors.New("structural parse failure")
	// ErrNoValidData is returned when an upload produced no records.
	ErrNoValidData = errors.New("no valid data")
)

var (
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// DecodeContent turns uploaded bytes into text. UTF-16 files with a BOM are
// transcoded, a UTF-8 BOM is dropped, and anything else must be valid UTF-8.
func DecodeContent(b []byte) (string, error) {
	hasUTF16BOM := bytes.HasPrefix(b, utf16LEBOM) || bytes.HasPrefix(b, utf16BEBOM)
	if !hasUTF16BOM && !utf8.Valid(b) {
		return "", fmt.Errorf("%w: content is not valid UTF-8", ErrStructural)
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), b)
	if err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrStructural, err)
	}

	text := string(out)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty content", ErrStructural)
	}
	return text, nil
}

// ReadRows splits comma-delimited text into raw rows. Lines the csv reader
// cannot parse are skipped and counted rather than failing the whole source.
func ReadRows(text string) ([]models.RawRow, int, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows []models.RawRow
	skipped := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("%w: %v", ErrStructural, err)
		}
		rows = append(rows, models.RawRow(rec))
	}
	return rows, skipped, nil
}
