package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/jgoulah/gridconvert/pkg/models"
)

// SourceColumn is added to every loaded dataset and holds the originating filename
const SourceColumn = "source_file"

// oleMagic starts every compound document, which is how legacy BIFF .xls workbooks are stored
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}

var (
	// ErrUnsupportedFileType is returned for extensions other than csv, txt, xls and xlsx
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrEmptyFile is returned when a file has no header row
	ErrEmptyFile = errors.New("file has no header row")
)

type options struct {
	skipRows  int
	names     []string
	delimiter rune
}

// Option customizes how a file is read
type Option func(*options)

// WithSkipRows skips the first n lines (or sheet rows) before the header
func WithSkipRows(n int) Option {
	return func(o *options) { o.skipRows = n }
}

// WithColumnNames treats the file as headerless and names its columns
func WithColumnNames(names ...string) Option {
	return func(o *options) { o.names = names }
}

// WithDelimiter disables delimiter sniffing for delimited text
func WithDelimiter(r rune) Option {
	return func(o *options) { o.delimiter = r }
}

// Load reads an uploaded file into a dataset, dispatching on the filename extension
func Load(name string, data []byte, opts ...Option) (*models.Dataset, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	var records [][]string
	var err error

	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		records, err = readDelimited(data, o.delimiter)
	case ".xls", ".xlsx":
		records, err = readSpreadsheet(data)
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFileType)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	ds, err := buildDataset(name, records, o)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return ds, nil
}

func readDelimited(data []byte, delimiter rune) ([][]string, error) {
	text := decodeText(data)

	if delimiter == 0 {
		sample := text
		if len(sample) > sniffSampleSize {
			sample = sample[:sniffSampleSize]
		}
		d, err := SniffDelimiter(sample, len(text) > sniffSampleSize)
		if err != nil {
			d = DefaultDelimiter
		}
		delimiter = d
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing delimited text: %w", err)
	}
	return records, nil
}

func readSpreadsheet(data []byte) ([][]string, error) {
	if bytes.HasPrefix(data, oleMagic) {
		return readLegacySpreadsheet(data)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	// Raw values keep date cells as serial numbers instead of locale formatted text
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// readLegacySpreadsheet decodes the first sheet of a BIFF workbook
func readLegacySpreadsheet(data []byte) (rows [][]string, err error) {
	// The BIFF reader indexes records without bounds checks
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("decoding legacy workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("opening legacy workbook: %w", err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, ErrEmptyFile
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptyFile
	}
	// Capping at the first sheet's row count keeps later sheets out
	return wb.ReadAllCells(int(sheet.MaxRow) + 1), nil
}

func buildDataset(name string, records [][]string, o options) (*models.Dataset, error) {
	kept := make([][]string, 0, len(records))
	for _, rec := range records {
		if !isBlank(rec) {
			kept = append(kept, rec)
		}
	}
	if o.skipRows > 0 {
		if o.skipRows >= len(kept) {
			kept = nil
		} else {
			kept = kept[o.skipRows:]
		}
	}

	var header []string
	var body [][]string
	if len(o.names) > 0 {
		header = append([]string(nil), o.names...)
		body = kept
	} else {
		if len(kept) == 0 {
			return nil, ErrEmptyFile
		}
		header = append([]string(nil), kept[0]...)
		body = kept[1:]
	}

	width := len(header)
	for _, rec := range body {
		if len(rec) > width {
			width = len(rec)
		}
	}
	for len(header) < width {
		header = append(header, "")
	}
	header = uniqueHeaders(header)

	src := -1
	for i, col := range header {
		if col == SourceColumn {
			src = i
		}
	}
	if src < 0 {
		header = append(header, SourceColumn)
		src = width
	}

	rows := make([][]string, len(body))
	for i, rec := range body {
		row := make([]string, len(header))
		copy(row, rec)
		row[src] = name
		rows[i] = row
	}

	return &models.Dataset{
		Source:  name,
		Columns: header,
		Rows:    rows,
	}, nil
}

// uniqueHeaders names blank headers by position and suffixes duplicates
func uniqueHeaders(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int)
	for i, col := range header {
		if strings.TrimSpace(col) == "" {
			col = "Unnamed: " + strconv.Itoa(i)
		}
		if n, ok := seen[col]; ok {
			seen[col] = n + 1
			col = col + "." + strconv.Itoa(n+1)
		} else {
			seen[col] = 0
		}
		out[i] = col
	}
	return out
}

func isBlank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
