package file

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"genecatalog/pkg/domain"
)

// Delimiter separates fields in the gene resource.
const Delimiter = ';'

// column identifies a GeneRecord field a header cell maps onto.
type column int

const (
	colID column = iota
	colSymbol
	colDescription
	colBiotype
	colChromosome
	colRegionStart
	colRegionEnd
	numColumns
)

// headerAliases maps trimmed header names to fields. The spaced
// "Seq region" variants come from the bulk export format.
var headerAliases = map[string]column{
	"Ensembl":          colID,
	"Gene symbol":      colSymbol,
	"Name":             colDescription,
	"Biotype":          colBiotype,
	"Chromosome":       colChromosome,
	"SeqRegionStart":   colRegionStart,
	"Seq region start": colRegionStart,
	"SeqRegionEnd":     colRegionEnd,
	"Seq region end":   colRegionEnd,
}

// Parse tokenizes a semicolon-delimited gene resource and normalizes every
// data row. Missing optional fields become empty strings and unusable
// numbers become zero. Rows are returned as read; callers decide how to
// treat blank or repeated IDs.
func Parse(r io.Reader) ([]domain.GeneRecord, error) {
	cr := csv.NewReader(r)
	cr.Comma = Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.NewError(domain.KindParseFailed, domain.SourceFile, errors.New("missing header row"))
	}
	if err != nil {
		return nil, readError(err)
	}
	index, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var out []domain.GeneRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(err)
		}
		if blankRow(row) {
			continue
		}
		out = append(out, recordFromRow(row, index))
	}
	return out, nil
}

func mapHeader(header []string) ([numColumns]int, error) {
	var index [numColumns]int
	for i := range index {
		index[i] = -1
	}
	for pos, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if col, ok := headerAliases[name]; ok && index[col] < 0 {
			index[col] = pos
		}
	}
	if index[colID] < 0 {
		return index, domain.NewError(domain.KindParseFailed, domain.SourceFile,
			fmt.Errorf("header %q lacks an Ensembl column", strings.Join(header, string(Delimiter))))
	}
	return index, nil
}

func recordFromRow(row []string, index [numColumns]int) domain.GeneRecord {
	field := func(c column) string {
		pos := index[c]
		if pos < 0 || pos >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[pos])
	}
	return domain.GeneRecord{
		ID:          field(colID),
		Symbol:      field(colSymbol),
		Description: field(colDescription),
		Biotype:     field(colBiotype),
		Chromosome:  field(colChromosome),
		RegionStart: ParseCoordinate(field(colRegionStart)),
		RegionEnd:   ParseCoordinate(field(colRegionEnd)),
	}
}

// ParseCoordinate converts a region bound to an integer. Empty, unparseable,
// non-finite, and negative values all yield 0.
func ParseCoordinate(s string) int64 {
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v < 0 {
			return 0
		}
		return v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt64 {
		return 0
	}
	return int64(f)
}

func blankRow(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func readError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return domain.NewError(domain.KindParseFailed, domain.SourceFile, err)
	}
	return domain.NewError(domain.KindFetchFailed, domain.SourceFile, err)
}
