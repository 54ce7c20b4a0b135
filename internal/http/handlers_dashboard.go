package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)

	dash, err := s.svc.Reports.Dashboard(ctx, user.UserID, s.now())
	if err != nil {
		logFailure(r, "Failed to load dashboard", err, log.OpRead)
		http.Error(w, userMessage(err), statusFor(err))
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", pageData{Title: "Dashboard", Data: dash})
}

func (s *Server) handleChartData(w http.ResponseWriter, r *http.Request) {
	data, err := s.svc.Reports.ChartData(r.Context(), currentUser(r).UserID, s.now())
	if err != nil {
		logFailure(r, "Failed to build chart data", err, log.OpRead)
		writeJSONError(w, statusFor(err), userMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, data)
}

type categoryAmountJSON struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type summaryJSON struct {
	Month      string               `json:"month"`
	Income     float64              `json:"income"`
	Expenses   float64              `json:"expenses"`
	Net        float64              `json:"net"`
	ByCategory []categoryAmountJSON `json:"by_category"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParam(r.URL.Query(), s.now())
	if err != nil {
		writeJSONError(w, statusFor(err), userMessage(err))
		return
	}

	summary, err := s.svc.Reports.MonthlySummary(r.Context(), currentUser(r).UserID, month)
	if err != nil {
		logFailure(r, "Failed to build monthly summary", err, log.OpRead)
		writeJSONError(w, statusFor(err), userMessage(err))
		return
	}

	out := summaryJSON{
		Month:      string(summary.Month),
		Income:     summary.Income.Float(),
		Expenses:   summary.Expense.Float(),
		Net:        summary.Net().Float(),
		ByCategory: make([]categoryAmountJSON, 0, len(summary.ByCategory)),
	}
	for _, c := range summary.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryAmountJSON{Category: c.Name, Amount: c.Amount.Float()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	months, err := ParseIntParam(r.URL.Query(), "months", s.svc.Reports.TrendWindow(), 60)
	if err != nil {
		writeJSONError(w, statusFor(err), userMessage(err))
		return
	}

	points, err := s.svc.Reports.Trend(r.Context(), currentUser(r).UserID, months, s.now())
	if err != nil {
		logFailure(r, "Failed to build trend", err, log.OpRead)
		writeJSONError(w, statusFor(err), userMessage(err))
		return
	}

	out := make([]services.ChartTrendPoint, 0, len(points))
	for _, p := range points {
		out = append(out, services.ChartTrendPoint{
			Month:    string(p.Month),
			Income:   p.Income.Float(),
			Expenses: p.Expense.Float(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type activityJSON struct {
	Kind          string    `json:"kind"`
	TransactionID int64     `json:"transaction_id"`
	Type          string    `json:"type"`
	Category      string    `json:"category"`
	Amount        float64   `json:"amount"`
	Date          string    `json:"date"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := ParseIntParam(r.URL.Query(), "limit", services.DefaultActivityLimit, 100)
	if err != nil {
		writeJSONError(w, statusFor(err), userMessage(err))
		return
	}

	events, err := s.svc.Activity.Recent(r.Context(), currentUser(r).UserID, limit)
	if err != nil {
		logFailure(r, "Failed to list activity", err, log.OpList)
		writeJSONError(w, statusFor(err), userMessage(err))
		return
	}

	out := make([]activityJSON, 0, len(events))
	for _, e := range events {
		out = append(out, toActivityJSON(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func toActivityJSON(e core.TransactionEvent) activityJSON {
	return activityJSON{
		Kind:          e.Kind,
		TransactionID: e.TransactionID,
		Type:          string(e.Type),
		Category:      e.Category,
		Amount:        e.Amount.Float(),
		Date:          e.Date.String(),
		OccurredAt:    e.OccurredAt,
	}
}
