package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
)

// csvHeader is the exported column order. Kept stable: downstream
// spreadsheets key on these names.
var csvHeader = []string{
	"timestamp", "contest_url", "article_url", "question", "answer", "status", "fill_stats",
}

// ExportCSV writes all attempts as CSV with a single header row.
func (db *DB) ExportCSV(w io.Writer) error {
	attempts, err := db.All()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, a := range attempts {
		row := []string{a.Timestamp, a.ContestURL, a.ArticleURL, a.Question, a.Answer, a.Status, a.FillStats}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
