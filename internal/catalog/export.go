package catalog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/shelfmark/enrich/internal/enrichment"
)

// Enrichment columns appended to the original header on export.
var exportColumns = []string{
	"ai_summary",
	"ai_tags",
	"score_relevance",
	"score_readability",
	"score_depth",
	"is_outdated",
}

// Export writes the final enriched CSV: every original row and column, plus
// the enrichment columns for rows whose fingerprint has a checkpointed
// result. Rows without a result (abandoned or filtered) get empty enrichment
// fields, mirroring a left join.
func (c *Catalog) Export(path string, results map[string]json.RawMessage) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)

	header := append(append([]string{}, c.header...), exportColumns...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}

	empty := make([]string, len(exportColumns))
	for i, row := range c.rows {
		out := append([]string{}, row...)
		// pad short rows so enrichment columns line up with the header
		for len(out) < len(c.header) {
			out = append(out, "")
		}

		raw, ok := results[c.rowFingerprints[i]]
		if !ok {
			out = append(out, empty...)
		} else {
			cols, err := enrichmentColumns(raw)
			if err != nil {
				return fmt.Errorf("failed to decode result for %q: %w", c.rowFingerprints[i], err)
			}
			out = append(out, cols...)
		}

		if err := w.Write(out); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}
	return f.Close()
}

// enrichmentColumns flattens one decoded result record into CSV fields in
// exportColumns order.
func enrichmentColumns(raw json.RawMessage) ([]string, error) {
	var record enrichment.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}

	if record.Tags == nil {
		record.Tags = []string{}
	}
	tags, err := json.Marshal(record.Tags)
	if err != nil {
		return nil, err
	}

	return []string{
		record.Summary,
		string(tags),
		strconv.Itoa(record.Scores.Relevance),
		strconv.Itoa(record.Scores.Readability),
		strconv.Itoa(record.Scores.Depth),
		strconv.FormatBool(record.IsOutdated),
	}, nil
}
