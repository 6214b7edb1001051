package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrParse is returned for any upload that cannot be turned into a Table.
var ErrParse = errors.New("cannot parse file")

// DefaultNullTokens are the cell texts read as missing values.
var DefaultNullTokens = []string{"", "NA", "N/A", "n/a", "NaN", "nan", "null", "NULL", "None", "#N/A", "<NA>"}

// Type is the declared value type inferred for a column at load time.
type Type string

const (
	TypeString Type = "string"
	TypeInt    Type = "int"
	TypeFloat  Type = "float"
	TypeBool   Type = "bool"
)

// Textual reports whether values of this type are free text rather than numbers or flags.
func (t Type) Textual() bool { return t == TypeString }

// Numeric reports whether the column holds int or float values.
func (t Type) Numeric() bool { return t == TypeInt || t == TypeFloat }

// Options controls how an upload is parsed.
type Options struct {
	// Delimiter for CSV. If 0, ',' is used.
	Delimiter rune
	// NullTokens are cell texts treated as missing. Nil means DefaultNullTokens.
	NullTokens []string
	// MaxBytes rejects larger inputs; 0 means unlimited.
	MaxBytes int64
}

// DefaultOptions returns reasonable defaults for CSV uploads.
func DefaultOptions() Options {
	return Options{
		Delimiter:  ',',
		NullTokens: append([]string(nil), DefaultNullTokens...),
		MaxBytes:   200 << 20,
	}
}

// Column is one named, typed column of a Table.
type Column struct {
	Name string
	Type Type

	raw     []string
	missing []bool
	floats  []float64
}

// Len returns the number of cells in the column.
func (c *Column) Len() int { return len(c.raw) }

// IsMissing reports whether row i holds a missing value.
func (c *Column) IsMissing(i int) bool { return c.missing[i] }

// Text returns the cell as it appeared in the upload.
func (c *Column) Text(i int) string { return c.raw[i] }

// Float returns the numeric value of row i. ok is false for missing or non-numeric cells.
func (c *Column) Float(i int) (v float64, ok bool) {
	if c.missing[i] || !c.Type.Numeric() {
		return 0, false
	}
	return c.floats[i], true
}

// Values returns the non-missing numeric values in row order.
func (c *Column) Values() []float64 {
	if !c.Type.Numeric() {
		return nil
	}
	out := make([]float64, 0, len(c.floats))
	for i, v := range c.floats {
		if !c.missing[i] {
			out = append(out, v)
		}
	}
	return out
}

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, m := range c.missing {
		if m {
			n++
		}
	}
	return n
}

// Key returns a canonical form of row i used for value equality:
// numbers compare by value, text by exact string, and all missing cells are equal.
// Distinct cells never share a key.
func (c *Column) Key(i int) string {
	if c.missing[i] {
		return missingKey
	}
	if c.Type.Numeric() {
		return strconv.FormatFloat(c.floats[i], 'g', -1, 64)
	}
	if strings.HasPrefix(c.raw[i], "\x00") {
		// escaped so text can never equal missingKey
		return "\x00" + c.raw[i]
	}
	return c.raw[i]
}

const missingKey = "\x00NA"

// Table is an immutable, column-oriented view of an uploaded CSV file.
type Table struct {
	Name string
	cols []*Column
	rows int
}

// Rows returns the number of data rows.
func (t *Table) Rows() int { return t.rows }

// Columns returns the columns in file order.
func (t *Table) Columns() []*Column { return t.cols }

// Names returns the column names in file order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Column looks a column up by name; surrounding whitespace is ignored on both sides.
func (t *Table) Column(name string) (*Column, bool) {
	want := strings.TrimSpace(name)
	for _, c := range t.cols {
		if strings.TrimSpace(c.Name) == want {
			return c, true
		}
	}
	return nil, false
}

// Row returns the raw cell texts of row i.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.cols))
	for j, c := range t.cols {
		out[j] = c.raw[i]
	}
	return out
}

// LoadFile reads a CSV/TSV file from disk. A zero delimiter is chosen from the extension.
func LoadFile(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	if opt.Delimiter == 0 {
		opt.Delimiter = DelimiterFor(path)
	}
	t, err := Load(f, opt)
	if err != nil {
		return nil, err
	}
	t.Name = filepath.Base(path)
	return t, nil
}

// Load parses CSV with a header row into a Table. Every failure wraps ErrParse and no
// partial table is returned.
func Load(r io.Reader, opt Options) (*Table, error) {
	if opt.Delimiter == 0 {
		opt.Delimiter = ','
	}
	if opt.NullTokens == nil {
		opt.NullTokens = DefaultNullTokens
	}
	src := r
	if opt.MaxBytes > 0 {
		src = io.LimitReader(r, opt.MaxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrParse, err)
	}
	if opt.MaxBytes > 0 && int64(len(data)) > opt.MaxBytes {
		return nil, fmt.Errorf("%w: input larger than %d bytes", ErrParse, opt.MaxBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrParse)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = opt.Delimiter
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, fmt.Errorf("%w: missing header", ErrParse)
	}
	header := uniqueHeader(records[0])
	ncol := len(header)
	for i := 1; i < len(records); i++ {
		rec := records[i]
		switch {
		case len(rec) > ncol:
			return nil, fmt.Errorf("%w: row %d has %d fields, header has %d", ErrParse, i, len(rec), ncol)
		case len(rec) < ncol:
			// short rows are padded with missing cells
			tmp := make([]string, ncol)
			copy(tmp, rec)
			records[i] = tmp
		}
	}
	records[0] = header

	// type inference sees cells without surrounding blanks ("a, b" style files);
	// records keeps the text as uploaded
	typed := make([][]string, len(records))
	typed[0] = header
	for i := 1; i < len(records); i++ {
		row := make([]string, ncol)
		for j, cell := range records[i] {
			row[j] = strings.TrimSpace(cell)
		}
		typed[i] = row
	}

	df := dataframe.LoadRecords(typed,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(opt.NullTokens),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, df.Err)
	}

	nulls := make(map[string]bool, len(opt.NullTokens))
	for _, tok := range opt.NullTokens {
		nulls[tok] = true
	}
	nrows := len(records) - 1
	t := &Table{rows: nrows, cols: make([]*Column, ncol)}
	for j, name := range header {
		s := df.Col(name)
		if s.Err != nil {
			return nil, fmt.Errorf("%w: column %q: %v", ErrParse, name, s.Err)
		}
		col := &Column{
			Name:    name,
			Type:    fromSeriesType(s.Type()),
			raw:     make([]string, nrows),
			missing: make([]bool, nrows),
		}
		nan := s.IsNaN()
		for i := 0; i < nrows; i++ {
			col.raw[i] = records[i+1][j]
			col.missing[i] = nulls[typed[i+1][j]] || (i < len(nan) && nan[i])
		}
		if col.Type.Numeric() {
			col.floats = s.Float()
		}
		t.cols[j] = col
	}
	return t, nil
}

func fromSeriesType(st series.Type) Type {
	switch st {
	case series.Int:
		return TypeInt
	case series.Float:
		return TypeFloat
	case series.Bool:
		return TypeBool
	default:
		return TypeString
	}
}

// uniqueHeader names blank headers "Unnamed: i" and suffixes repeats with ".1", ".2", ...
// Names are compared trimmed, since lookups ignore surrounding whitespace.
func uniqueHeader(in []string) []string {
	out := make([]string, len(in))
	taken := make(map[string]bool, len(in))
	next := make(map[string]int)
	for i, h := range in {
		name := h
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if base := strings.TrimSpace(name); taken[base] {
			n := next[base]
			if n == 0 {
				n = 1
			}
			for taken[fmt.Sprintf("%s.%d", base, n)] {
				n++
			}
			name = fmt.Sprintf("%s.%d", base, n)
			next[base] = n + 1
		}
		taken[strings.TrimSpace(name)] = true
		out[i] = name
	}
	return out
}

// DelimiterFor picks the field separator from a file name: tab for .tsv, comma otherwise.
func DelimiterFor(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}
