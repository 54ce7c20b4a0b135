package http

import (
	"net/http"
	"strconv"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

type goalsView struct {
	Goals   []core.SavingsGoal
	Budgets []core.Budget
	Month   core.MonthKey
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	s.renderGoals(w, r, http.StatusOK, "")
}

func (s *Server) renderGoals(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	ctx := r.Context()
	user := currentUser(r)
	month := core.MonthOf(s.now())

	goals, err := s.svc.Planning.ListGoals(ctx, user.UserID)
	if err != nil {
		logFailure(r, "Failed to list goals", err, log.OpList)
		http.Error(w, userMessage(err), statusFor(err))
		return
	}
	budgets, err := s.svc.Planning.ListBudgets(ctx, user.UserID, month)
	if err != nil {
		logFailure(r, "Failed to list budgets", err, log.OpList)
		http.Error(w, userMessage(err), statusFor(err))
		return
	}
	s.render(w, r, status, "goals.html", pageData{
		Title: "Goals & budgets",
		Error: errMsg,
		Data:  goalsView{Goals: goals, Budgets: budgets, Month: month},
	})
}

// finishPlanning answers a planning form: the error is shown on the goals
// page, success redirects back to it with a flash.
func (s *Server) finishPlanning(w http.ResponseWriter, r *http.Request, err error, success string) {
	if err != nil {
		logFailure(r, "Planning update failed", err, log.OpCreate)
		if isPartialRequest(r) {
			ErrorResponse(statusFor(err), userMessage(err)).Write(w)
			return
		}
		s.renderGoals(w, r, statusFor(err), userMessage(err))
		return
	}
	if isPartialRequest(r) {
		SuccessResponse(success).Write(w)
		return
	}
	s.setFlash(w, "success", success)
	http.Redirect(w, r, "/goals", http.StatusSeeOther)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderGoals(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	goal, err := s.svc.Planning.CreateGoal(r.Context(), currentUser(r).UserID, services.NewGoal{
		Name:       sanitizeInput(r.PostForm.Get("name")),
		TargetText: sanitizeInput(r.PostForm.Get("target_amount")),
		TargetDate: sanitizeInput(r.PostForm.Get("target_date")),
	})
	s.finishPlanning(w, r, err, "Savings goal \""+goal.Name+"\" created.")
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderGoals(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	id, _ := pathID(r)
	goal, err := s.svc.Planning.Contribute(r.Context(), id, currentUser(r).UserID, sanitizeInput(r.PostForm.Get("amount")))
	if err == nil && isPartialRequest(r) {
		SuccessResponse("Contribution added.").TriggerGoalUpdated(goal.ID, goal.Progress()).Write(w)
		return
	}
	s.finishPlanning(w, r, err, "Contribution added. "+strconv.Itoa(goal.Progress())+"% of the goal reached.")
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	err := s.svc.Planning.DeleteGoal(r.Context(), id, currentUser(r).UserID)
	s.finishPlanning(w, r, err, "Savings goal deleted.")
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderGoals(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	budget, err := s.svc.Planning.SetBudget(r.Context(), currentUser(r).UserID, services.NewBudget{
		Category:   sanitizeInput(r.PostForm.Get("category")),
		AmountText: sanitizeInput(r.PostForm.Get("amount")),
		Month:      sanitizeInput(r.PostForm.Get("month")),
	})
	s.finishPlanning(w, r, err, "Budget for "+budget.Category+" set to "+formatMoney(budget.Amount)+".")
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	err := s.svc.Planning.DeleteBudget(r.Context(), id, currentUser(r).UserID)
	s.finishPlanning(w, r, err, "Budget removed.")
}
