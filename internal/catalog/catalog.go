// Package catalog loads the library export CSV, derives the deduplicated
// fingerprint set that identifies work items, computes pending batches
// against the checkpoint, and merges finished results back into the final
// enriched CSV.
package catalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Column names expected in the library export. Only the title column is
// mandatory; the others default to empty when absent.
const (
	colTitle   = "full_title_245"
	colAuthor  = "author_main_100a"
	colEdition = "edition_250a"
	colYear    = "pub_year_008"
)

// minFingerprintLen filters out rows whose metadata is too thin to identify
// a real entry (blank titles, separator-only fingerprints).
const minFingerprintLen = 10

// Catalog is the parsed input CSV plus the derived fingerprint per row.
type Catalog struct {
	header          []string
	rows            [][]string
	rowFingerprints []string
	fingerprints    []string // deduplicated, input order preserved
}

// Load reads and parses the catalog CSV at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("catalog %s is empty", path)
	}

	header := records[0]
	rows := records[1:]

	titleIdx := columnIndex(header, colTitle)
	if titleIdx < 0 {
		return nil, fmt.Errorf("catalog %s is missing required column %q", path, colTitle)
	}
	authorIdx := columnIndex(header, colAuthor)
	editionIdx := columnIndex(header, colEdition)
	yearIdx := columnIndex(header, colYear)

	c := &Catalog{
		header:          header,
		rows:            rows,
		rowFingerprints: make([]string, len(rows)),
	}

	seen := make(map[string]struct{})
	for i, row := range rows {
		fp := fingerprint(
			field(row, titleIdx),
			field(row, authorIdx),
			field(row, editionIdx),
			field(row, yearIdx),
		)
		c.rowFingerprints[i] = fp

		if len(fp) <= minFingerprintLen {
			continue
		}
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		c.fingerprints = append(c.fingerprints, fp)
	}

	return c, nil
}

// Fingerprints returns the deduplicated work item identifiers in input order.
func (c *Catalog) Fingerprints() []string {
	return c.fingerprints
}

// TotalItems returns the number of unique work items.
func (c *Catalog) TotalItems() int {
	return len(c.fingerprints)
}

// PendingBatches splits the fingerprints not yet present in done into batches
// of at most batchSize, preserving input order within and across batches.
func (c *Catalog) PendingBatches(done map[string]struct{}, batchSize int) [][]string {
	if batchSize <= 0 {
		batchSize = 30
	}

	var pending []string
	for _, fp := range c.fingerprints {
		if _, ok := done[fp]; !ok {
			pending = append(pending, fp)
		}
	}

	var batches [][]string
	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batches = append(batches, pending[start:end])
	}
	return batches
}

// fingerprint bakes the identifying metadata into a single string the
// enrichment prompt can parse back apart: "title | author | edition | year".
func fingerprint(title, author, edition, year string) string {
	return clean(title) + " | " + clean(author) + " | " + clean(edition) + " | " + clean(year)
}

// clean trims a raw CSV field. Upstream exports serialize missing values as
// the literal string "nan"; treat those as empty.
func clean(val string) string {
	val = strings.TrimSpace(val)
	if strings.EqualFold(val, "nan") {
		return ""
	}
	return val
}

func columnIndex(header []string, name string) int {
	for i, col := range header {
		if strings.TrimSpace(col) == name {
			return i
		}
	}
	return -1
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
