package catalog

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = `full_title_245,author_main_100a,edition_250a,pub_year_008,shelf_location
Clean Code,Robert Martin,1st,2008,A1
Clean Code,Robert Martin,1st,2008,B2
The Pragmatic Programmer,Hunt,nan,1999,A2
,,,,C9
JavaScript Guide,nan,3rd,1998,D4
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDeduplicatesAndFilters(t *testing.T) {
	cat, err := Load(writeCatalog(t, testCSV))
	require.NoError(t, err)

	// The duplicate Clean Code row collapses, and the metadata-free row is
	// filtered out entirely.
	assert.Equal(t, 3, cat.TotalItems())
	assert.Equal(t, []string{
		"Clean Code | Robert Martin | 1st | 2008",
		"The Pragmatic Programmer | Hunt |  | 1999",
		"JavaScript Guide |  | 3rd | 1998",
	}, cat.Fingerprints())
}

func TestLoadRequiresTitleColumn(t *testing.T) {
	_, err := Load(writeCatalog(t, "author_main_100a\nMartin\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "full_title_245")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestPendingBatchesSkipsDoneItems(t *testing.T) {
	cat, err := Load(writeCatalog(t, testCSV))
	require.NoError(t, err)

	done := map[string]struct{}{
		"Clean Code | Robert Martin | 1st | 2008": {},
	}
	batches := cat.PendingBatches(done, 2)
	require.Len(t, batches, 1)
	assert.Equal(t, []string{
		"The Pragmatic Programmer | Hunt |  | 1999",
		"JavaScript Guide |  | 3rd | 1998",
	}, batches[0])
}

func TestPendingBatchesSplitsByBatchSize(t *testing.T) {
	cat, err := Load(writeCatalog(t, testCSV))
	require.NoError(t, err)

	batches := cat.PendingBatches(nil, 2)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 1)
}

func TestPendingBatchesAllDone(t *testing.T) {
	cat, err := Load(writeCatalog(t, testCSV))
	require.NoError(t, err)

	done := make(map[string]struct{})
	for _, fp := range cat.Fingerprints() {
		done[fp] = struct{}{}
	}
	assert.Empty(t, cat.PendingBatches(done, 2))
}

func TestExportMergesResultsAsLeftJoin(t *testing.T) {
	cat, err := Load(writeCatalog(t, testCSV))
	require.NoError(t, err)

	record := map[string]any{
		"summary":     "Still the canonical style guide.",
		"tags":        []string{"Software", "Craftsmanship"},
		"scores":      map[string]int{"relevance": 8, "readability": 9, "depth": 6},
		"is_outdated": false,
	}
	raw, err := json.Marshal(record)
	require.NoError(t, err)

	outPath := filepath.Join(t.TempDir(), "enriched.csv")
	results := map[string]json.RawMessage{
		"Clean Code | Robert Martin | 1st | 2008": raw,
	}
	require.NoError(t, cat.Export(outPath, results))

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 6) // header + 5 input rows

	header := rows[0]
	assert.Equal(t, "shelf_location", header[4])
	assert.Equal(t, "ai_summary", header[5])
	assert.Equal(t, "is_outdated", header[10])

	// Both duplicate Clean Code rows get the same enrichment.
	for _, row := range rows[1:3] {
		assert.Equal(t, "Still the canonical style guide.", row[5])
		assert.Equal(t, `["Software","Craftsmanship"]`, row[6])
		assert.Equal(t, "8", row[7])
		assert.Equal(t, "9", row[8])
		assert.Equal(t, "6", row[9])
		assert.Equal(t, "false", row[10])
	}

	// Unenriched rows keep empty enrichment columns.
	assert.Equal(t, "", rows[4][5])
}
