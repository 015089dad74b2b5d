package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// CSVParser reads inventory import files: UTF-8 text with an optional
// leading BOM, CR/CRLF/LF line endings, RFC 4180 quoting, and a
// required header row. Header names are matched case-insensitively.
type CSVParser struct {
	delimiter  rune
	trimSpace  bool
	headerMap  map[string]int
	headers    []string
	currentRow int
	reader     *csv.Reader
}

// ParserOption is a functional option for CSVParser configuration
type ParserOption func(*CSVParser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
	}
}

// WithTrimSpace controls trimming of leading/trailing spaces from fields
func WithTrimSpace(trim bool) ParserOption {
	return func(p *CSVParser) {
		p.trimSpace = trim
	}
}

// NewCSVParser creates a parser over the raw file content. Line
// endings are normalized and the encoding is verified up front so row
// reads only ever fail on CSV structure.
func NewCSVParser(data []byte, opts ...ParserOption) (*CSVParser, error) {
	parser := &CSVParser{
		delimiter: ',',
		trimSpace: true,
		headerMap: make(map[string]int),
	}

	for _, opt := range opts {
		opt(parser)
	}

	data = stripBOM(data)
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(data) {
		return nil, ErrInvalidEncoding
	}
	data = normalizeLineEndings(data)

	parser.reader = csv.NewReader(bufio.NewReader(bytes.NewReader(data)))
	parser.reader.Comma = parser.delimiter
	parser.reader.TrimLeadingSpace = parser.trimSpace
	parser.reader.FieldsPerRecord = -1

	return parser, nil
}

// stripBOM removes a leading UTF-8 byte order mark
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// normalizeLineEndings rewrites CRLF and bare CR to LF so files from
// any platform parse identically
func normalizeLineEndings(data []byte) []byte {
	if !bytes.ContainsRune(data, '\r') {
		return data
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
}

// ParseHeader reads the header row and builds the case-insensitive
// column map. Empty and duplicate header names are structural errors:
// the whole file is rejected rather than guessing which column wins.
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers = make([]string, len(record))
	for i, raw := range record {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			return fmt.Errorf("%w: column %d has an empty name", ErrInvalidHeader, i+1)
		}
		if _, exists := p.headerMap[name]; exists {
			return fmt.Errorf("%w: duplicate column %q", ErrInvalidHeader, name)
		}
		p.headers[i] = name
		p.headerMap[name] = i
	}

	p.currentRow = 1

	return nil
}

// RequireHeaders verifies that every required column is present,
// regardless of order or case
func (p *CSVParser) RequireHeaders(required ...string) error {
	var missing []string
	for _, name := range required {
		if _, ok := p.headerMap[strings.ToLower(name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required column(s) %s", ErrInvalidHeader, strings.Join(missing, ", "))
	}
	return nil
}

// Headers returns the canonical (lowercased) header names
func (p *CSVParser) Headers() []string {
	return p.headers
}

// HasHeader checks if a column exists, case-insensitively
func (p *CSVParser) HasHeader(name string) bool {
	_, ok := p.headerMap[strings.ToLower(name)]
	return ok
}

// Row is one parsed data row. LineNumber counts from the top of the
// file, with the header as line 1, so errors can be matched to the
// source file in an editor.
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the value for a column by header name, case-insensitively
func (r *Row) Get(header string) string {
	return r.Data[strings.ToLower(header)]
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow reads the next data row. io.EOF signals the end of the file.
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, p.currentRow, err)
	}

	row := &Row{
		LineNumber: p.currentRow,
		Data:       make(map[string]string, len(p.headers)),
	}

	for i, header := range p.headers {
		value := ""
		if i < len(record) {
			value = record[i]
			if p.trimSpace {
				value = strings.TrimSpace(value)
			}
		}
		row.Data[header] = value
	}

	return row, nil
}

// ReadAllRows reads every remaining data row, skipping rows that are
// entirely empty. maxRows of zero means unlimited; one row past the
// limit aborts the read, since a too-large file is rejected whole.
func (p *CSVParser) ReadAllRows(maxRows int) ([]*Row, error) {
	var rows []*Row

	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if row.IsEmpty() {
			continue
		}

		rows = append(rows, row)
		if maxRows > 0 && len(rows) > maxRows {
			return nil, fmt.Errorf("%w: more than %d data rows", ErrTooManyRows, maxRows)
		}
	}

	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}

	return rows, nil
}
