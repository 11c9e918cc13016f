// Package server exposes the ledger report over HTTP. Strictly read-only:
// every handler renders derived views and none of them write to the ledger.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/mwrobel/pmagent/internal/ledger"
	"github.com/mwrobel/pmagent/internal/report"
)

// Server serves the report and the CSV export.
type Server struct {
	db  *ledger.DB
	mux *http.ServeMux
}

// New creates a Server over an open ledger.
func New(db *ledger.DB) *Server {
	s := &Server{db: db, mux: http.NewServeMux()}
	s.mux.HandleFunc("/", s.handleReport)
	s.mux.HandleFunc("/raport.csv", s.handleCSV)
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve runs the report server on the given port until the process exits.
func Serve(db *ledger.DB, port int) error {
	return http.ListenAndServe(fmt.Sprintf(":%d", port), New(db).Handler())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	attempts, err := s.db.All()
	if err != nil {
		log.Printf("reading attempts: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	stats, err := s.db.GetStats()
	if err != nil {
		log.Printf("reading stats: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.Build(attempts, stats).Render(w); err != nil {
		log.Printf("rendering report: %v", err)
	}
}

func (s *Server) handleCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="raport.csv"`)
	if err := s.db.ExportCSV(w); err != nil {
		log.Printf("exporting csv: %v", err)
	}
}
