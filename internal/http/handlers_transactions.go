package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

// transactionForm is the add form's state, echoed back on errors.
type transactionForm struct {
	Date               string
	Description        string
	Amount             string
	Category           string
	Type               string
	IsRecurring        bool
	RecurringFrequency string
	Frequencies        []core.RepetitionTypes
}

var frequencies = []core.RepetitionTypes{core.Daily, core.Weekly, core.Monthly, core.Yearly}

type transactionJSON struct {
	ID                 int64   `json:"id"`
	Date               string  `json:"date"`
	Description        string  `json:"description"`
	Amount             float64 `json:"amount"`
	AmountCents        int64   `json:"amount_cents"`
	Category           string  `json:"category"`
	Type               string  `json:"type"`
	IsRecurring        bool    `json:"is_recurring"`
	RecurringFrequency string  `json:"recurring_frequency,omitempty"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:                 t.ID,
		Date:               t.Date.String(),
		Description:        t.Description,
		Amount:             t.Amount.Float(),
		AmountCents:        t.Amount.Cents,
		Category:           t.Category,
		Type:               string(t.Type),
		IsRecurring:        t.IsRecurring,
		RecurringFrequency: string(t.RecurringFrequency),
	}
}

func (s *Server) handleTransactionForm(w http.ResponseWriter, r *http.Request) {
	form := transactionForm{
		Date:        core.DateOf(s.now()).String(),
		Type:        string(core.Expense),
		Frequencies: frequencies,
	}
	s.render(w, r, http.StatusOK, "add_transaction.html", pageData{Title: "Add transaction", Data: form})
}

// handleCreateTransaction accepts a form post, a script-driven partial
// request or a JSON body, and answers each in kind.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.writeTransactionError(w, r, p, http.StatusBadRequest, "Invalid request body.", transactionForm{Frequencies: frequencies})
		return
	}

	in := services.NewTransaction{
		Date:               p.Get("date"),
		Description:        p.Get("description"),
		AmountText:         p.Get("amount"),
		Category:           p.Get("category"),
		Type:               p.Get("type"),
		IsRecurring:        p.Bool("is_recurring"),
		RecurringFrequency: p.Get("recurring_frequency"),
	}

	created, err := s.svc.Transactions.AddTransaction(ctx, user.UserID, in)
	if err != nil {
		logFailure(r, "Failed to add transaction", err, log.OpCreate)
		s.writeTransactionError(w, r, p, statusFor(err), userMessage(err), transactionForm{
			Date:               in.Date,
			Description:        in.Description,
			Amount:             in.AmountText,
			Category:           in.Category,
			Type:               in.Type,
			IsRecurring:        in.IsRecurring,
			RecurringFrequency: in.RecurringFrequency,
			Frequencies:        frequencies,
		})
		return
	}

	t := created.Transaction
	switch {
	case p.IsJSON():
		writeJSON(w, http.StatusCreated, toTransactionJSON(t))
	case isPartialRequest(r):
		SuccessResponse(created.Message).
			Status(http.StatusCreated).
			TriggerTransactionCreated(t.ID, t.Date.MonthKey()).
			TriggerChartsRefresh().
			TriggerFormReset().
			Write(w)
	default:
		s.setFlash(w, "success", created.Message)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *Server) writeTransactionError(w http.ResponseWriter, r *http.Request, p *RequestBodyParser, status int, msg string, form transactionForm) {
	switch {
	case p.IsJSON():
		writeJSONError(w, status, msg)
	case isPartialRequest(r):
		ErrorResponse(status, msg).Write(w)
	default:
		s.render(w, r, status, "add_transaction.html", pageData{Title: "Add transaction", Error: msg, Data: form})
	}
}

// handleDeleteTransaction serves both POST /transactions/{id}/delete from
// the dashboard form and DELETE /transactions/{id} from scripts. Missing
// and foreign ids are indistinguishable.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)
	scripted := r.Method == http.MethodDelete || isPartialRequest(r)

	id, ok := pathID(r)
	var err error
	if !ok {
		err = core.ErrNotFound
	} else {
		err = s.svc.Transactions.DeleteTransaction(ctx, id, user.UserID)
	}
	if err != nil {
		logFailure(r, "Failed to delete transaction", err, log.OpDelete)
		if scripted {
			ErrorResponse(statusFor(err), userMessage(err)).Write(w)
		} else {
			http.Error(w, userMessage(err), statusFor(err))
		}
		return
	}

	if scripted {
		NewResponse().
			TriggerTransactionDeleted(id).
			TriggerChartsRefresh().
			TriggerSuccessNotification("Transaction deleted.").
			Write(w)
		return
	}
	s.setFlash(w, "success", "Transaction deleted.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
