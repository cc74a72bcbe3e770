package gemini

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// promptTemplateText is the critical-librarian prompt. The model must key its
// answers by the exact ID string so results can be resolved back to items.
const promptTemplateText = `Act as a Critical Technical Librarian. I have a list of books.
Analyze them based on today's standards (Current Year: {{.Year}}).

Your Goal: Help a student decide if they should read this book.

For EACH book (mapped by its exact ID), return a JSON object with:
1. "summary": A 1-sentence critical review. Mention if it is obsolete.
2. "tags": 4-5 technical keywords.
3. "scores": A nested object with integer scores (1-10):
   - "relevance": How useful is this content TODAY?
   - "readability": 10 = For Dummies/Novels, 1 = Dense Research Papers.
   - "depth": 1 = Surface level, 10 = Deep/Advanced.
4. "is_outdated": Boolean (true/false). True if the technology is dead.

INPUT LIST:
{{range .Books}}ID: '{{.ID}}'
   - Title: {{.Title}}
   - Author: {{.Author}}
   - Edition: {{.Edition}}
   - Year: {{.PubYear}}
{{end}}
OUTPUT FORMAT (Strict JSON):
{
    "ID_STRING_HERE": {
        "summary": "Classic text but uses obsolete syntax; prefer a newer edition.",
        "tags": ["JavaScript", "Web Dev", "Legacy Code"],
        "scores": { "relevance": 3, "readability": 7, "depth": 8 },
        "is_outdated": true
    }
}`

var promptTemplate = template.Must(template.New("enrich").Parse(promptTemplateText))

// bookLine is one catalog entry rendered into the prompt.
type bookLine struct {
	ID      string
	Title   string
	Author  string
	Edition string
	PubYear string
}

// buildPrompt renders the prompt for a batch of fingerprint identifiers.
// Fingerprints carry their own metadata ("title | author | edition | year"),
// so the prompt can present clean fields while still using the full
// fingerprint as the result key.
func buildPrompt(items []string) (string, error) {
	books := make([]bookLine, 0, len(items))
	for _, fp := range items {
		parts := strings.Split(fp, "|")
		line := bookLine{ID: fp, Title: "Unknown", Author: "Unknown"}
		if len(parts) > 0 {
			line.Title = strings.TrimSpace(parts[0])
		}
		if len(parts) > 1 {
			line.Author = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			line.Edition = strings.TrimSpace(parts[2])
		}
		if len(parts) > 3 {
			line.PubYear = strings.TrimSpace(parts[3])
		}
		books = append(books, line)
	}

	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, struct {
		Year  int
		Books []bookLine
	}{
		Year:  time.Now().Year(),
		Books: books,
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
