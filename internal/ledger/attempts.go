package ledger

import (
	"fmt"
	"strings"
	"time"
)

// Attempt is one processed candidate. Written exactly once per candidate,
// on every exit path.
type Attempt struct {
	ID         int64
	Timestamp  string // zone-aware ISO, local time
	ContestURL string
	ArticleURL string
	Question   string
	Answer     string
	Status     string
	FillStats  string
}

// Statuses recorded in the ledger. ERROR statuses carry a suffix with the
// fault kind and message ("ERROR:NavigationFailed: ...").
const (
	StatusSent              = "SENT"
	StatusSentYears         = "SENT_YEARS"
	StatusSentExtract       = "SENT_EXTRACT"
	StatusSentTemplate      = "SENT_TEMPLATE"
	StatusSentLLM           = "SENT_LLM"
	StatusSentUnconfirmed   = "SENT_UNCONFIRMED"
	StatusNotSent           = "NOT_SENT"
	StatusDryFilled         = "DRY_FILLED"
	StatusSkippedExpired    = "SKIPPED_EXPIRED"
	StatusSkippedDailyLimit = "SKIPPED_DAILY_LIMIT"
	StatusErrorPrefix       = "ERROR:"
)

var sentStatuses = map[string]bool{
	StatusSent:            true,
	StatusSentYears:       true,
	StatusSentExtract:     true,
	StatusSentTemplate:    true,
	StatusSentLLM:         true,
	StatusSentUnconfirmed: true,
}

// IsSent reports whether a status counts against dedup and the daily quota.
// SENT_UNCONFIRMED counts: the submission may well have gone through, and
// re-attempting would risk a duplicate entry.
func IsSent(status string) bool {
	return sentStatuses[status]
}

// Insert appends one attempt row. The timestamp is taken at call time in the
// local contest timezone.
func (db *DB) Insert(a Attempt) (int64, error) {
	ts := a.Timestamp
	if ts == "" {
		ts = NowLocal().Format(time.RFC3339)
	}
	res, err := db.conn.Exec(
		`INSERT INTO attempts (ts, contest_url, article_url, question, answer, status, fill_stats)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ts, a.ContestURL, a.ArticleURL, a.Question, a.Answer, a.Status, a.FillStats,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting attempt: %w", err)
	}
	return res.LastInsertId()
}

// SentURLs returns the set of contest URLs that ever reached a sent-family
// status. Candidates in this set are never re-attempted.
func (db *DB) SentURLs() (map[string]bool, error) {
	rows, err := db.conn.Query("SELECT contest_url, status FROM attempts")
	if err != nil {
		return nil, fmt.Errorf("querying sent urls: %w", err)
	}
	defer rows.Close()

	urls := make(map[string]bool)
	for rows.Next() {
		var url, status string
		if err := rows.Scan(&url, &status); err != nil {
			return nil, fmt.Errorf("scanning sent url: %w", err)
		}
		if IsSent(status) {
			urls[url] = true
		}
	}
	return urls, rows.Err()
}

// CountSentToday counts sent-family rows whose local date equals now's date.
func (db *DB) CountSentToday(now time.Time) (int, error) {
	today := now.In(Location()).Format("2006-01-02")
	rows, err := db.conn.Query(
		"SELECT status FROM attempts WHERE substr(ts, 1, 10) = ?", today,
	)
	if err != nil {
		return 0, fmt.Errorf("querying today's attempts: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return 0, fmt.Errorf("scanning status: %w", err)
		}
		if IsSent(status) {
			count++
		}
	}
	return count, rows.Err()
}

// All returns every attempt in insertion order.
func (db *DB) All() ([]Attempt, error) {
	rows, err := db.conn.Query(
		`SELECT id, ts, contest_url, COALESCE(article_url, ''), COALESCE(question, ''),
		        COALESCE(answer, ''), status, COALESCE(fill_stats, '')
		 FROM attempts ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.Timestamp, &a.ContestURL, &a.ArticleURL,
			&a.Question, &a.Answer, &a.Status, &a.FillStats); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Stats contains aggregate ledger statistics.
type Stats struct {
	Total   int
	Sent    int
	Errors  int
	Expired int
	Days    int
}

// GetStats computes aggregate counts over the whole ledger.
func (db *DB) GetStats() (*Stats, error) {
	attempts, err := db.All()
	if err != nil {
		return nil, err
	}

	stats := &Stats{Total: len(attempts)}
	days := make(map[string]bool)
	for _, a := range attempts {
		switch {
		case IsSent(a.Status):
			stats.Sent++
		case strings.HasPrefix(a.Status, StatusErrorPrefix):
			stats.Errors++
		case a.Status == StatusSkippedExpired:
			stats.Expired++
		}
		if len(a.Timestamp) >= 10 {
			days[a.Timestamp[:10]] = true
		}
	}
	stats.Days = len(days)
	return stats, nil
}
