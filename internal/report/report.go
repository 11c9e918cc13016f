// Package report renders a read-only view over the ledger: aggregate
// counts, a markdown summary and the per-attempt table with status colors.
// Nothing in this package writes to the ledger.
package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/mwrobel/pmagent/internal/ledger"
)

//go:embed templates/report.html
var reportHTML string

var md = goldmark.New()

var page = template.Must(template.New("report").Parse(reportHTML))

// Row is one rendered attempt.
type Row struct {
	Timestamp  string
	ContestURL string
	ArticleURL string
	Question   string
	Answer     string
	Status     string
	FillStats  string
	Class      string
}

// Report is the template's data.
type Report struct {
	GeneratedAt string
	Stats       *ledger.Stats
	Summary     template.HTML
	Rows        []Row
}

// Build assembles the report, newest attempt first.
func Build(attempts []ledger.Attempt, stats *ledger.Stats) *Report {
	r := &Report{
		GeneratedAt: ledger.NowLocal().Format("2006-01-02 15:04:05"),
		Stats:       stats,
		Summary:     renderMarkdown(summaryMarkdown(stats)),
	}
	for i := len(attempts) - 1; i >= 0; i-- {
		a := attempts[i]
		r.Rows = append(r.Rows, Row{
			Timestamp:  a.Timestamp,
			ContestURL: a.ContestURL,
			ArticleURL: a.ArticleURL,
			Question:   a.Question,
			Answer:     a.Answer,
			Status:     a.Status,
			FillStats:  a.FillStats,
			Class:      StatusClass(a.Status),
		})
	}
	return r
}

// StatusClass maps a ledger status onto the report's color classes.
func StatusClass(status string) string {
	switch {
	case ledger.IsSent(status):
		return "sent"
	case strings.HasPrefix(status, ledger.StatusErrorPrefix):
		return "error"
	case status == ledger.StatusSkippedExpired || status == ledger.StatusSkippedDailyLimit:
		return "skipped"
	case status == ledger.StatusDryFilled:
		return "dry"
	default:
		return "other"
	}
}

func summaryMarkdown(s *ledger.Stats) string {
	if s == nil || s.Total == 0 {
		return "Brak zarejestrowanych prób."
	}
	return fmt.Sprintf(
		"**%d prób** w ciągu %d dni: %d wysłanych, %d błędów, %d wygasłych konkursów.",
		s.Total, s.Days, s.Sent, s.Errors, s.Expired,
	)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

// Render writes the report as HTML.
func (r *Report) Render(w io.Writer) error {
	if err := page.Execute(w, r); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	return nil
}

// WriteFile builds the report from the ledger and writes it to path.
func WriteFile(db *ledger.DB, path string) error {
	attempts, err := db.All()
	if err != nil {
		return err
	}
	stats, err := db.GetStats()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if err := Build(attempts, stats).Render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
