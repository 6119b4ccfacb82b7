package http

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/chart"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/ledger"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/log"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/session"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/suggest"
)

type (
	expenseRow struct {
		Category string
		Amount   string
	}

	expenseListView struct {
		Lang    core.Language
		Date    string
		Heading string
		Rows    []expenseRow
		Total   string
	}

	strategiesView struct {
		Lang       core.Language
		Paragraphs []string
	}
)

// sessionState copies what a handler needs so the session lock is not held
// across slow calls.
type sessionState struct {
	id      string
	lang    core.Language
	profile core.Profile
	store   ledger.Store
}

func stateOf(sess *session.Session) sessionState {
	var st sessionState
	_ = sess.Do(func(ss *session.Session) error {
		st = sessionState{id: ss.ID, lang: ss.Language, profile: ss.Profile, store: ss.Store}
		return nil
	})
	return st
}

// handleCreateExpense appends one expense to the visitor's ledger.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	st := stateOf(sessionFrom(r.Context()))

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(s.tr.T(st.lang, "err_generic")).Write(w)
		return
	}
	in, err := ParseExpenseInput(p, s.tr, s.today())
	if err != nil {
		s.fail(w, r, st.lang, log.OpAddExpense, err)
		return
	}

	if err := s.expenses.AddExpense(r.Context(), st.store, st.id, in.Date, in.Category, in.Amount); err != nil {
		s.fail(w, r, st.lang, log.OpAddExpense, err)
		return
	}

	msg := s.tr.T(st.lang, "expense_added")
	NewHTMXResponse().
		TriggerExpenseAdded(in.Date.String()).
		TriggerSuccessNotification(msg).
		BodyHTML(`<div class="success">` + template.HTMLEscapeString(msg) + `</div>`).
		Write(w)
}

// handleExpensesFor renders the records of one day, in insertion order.
func (s *Server) handleExpensesFor(w http.ResponseWriter, r *http.Request) {
	st := stateOf(sessionFrom(r.Context()))

	date, err := ParseDateQuery(r.URL.Query(), s.today())
	if err != nil {
		s.fail(w, r, st.lang, log.OpList, err)
		return
	}
	records, err := s.expenses.ExpensesFor(r.Context(), st.store, date)
	if err != nil {
		s.fail(w, r, st.lang, log.OpList, err)
		return
	}

	view := expenseListView{
		Lang:    st.lang,
		Date:    date.String(),
		Heading: s.tr.Format(st.lang, "expenses_for", date.String()),
	}
	total := decimal.Zero
	for _, rec := range records {
		view.Rows = append(view.Rows, expenseRow{
			Category: s.tr.Category(st.lang, rec.Category),
			Amount:   core.FormatAmount(rec.Amount),
		})
		total = total.Add(rec.Amount)
	}
	view.Total = core.FormatAmount(total)

	body, err := s.render(r.Context(), "expense_list", view)
	if err != nil {
		s.fail(w, r, st.lang, log.OpRender, err)
		return
	}
	NewHTMXResponse().Partial(body).Write(w)
}

// handleParetoChart serves the daily totals with their cumulative share.
func (s *Server) handleParetoChart(w http.ResponseWriter, r *http.Request) {
	st := stateOf(sessionFrom(r.Context()))
	l, ok := s.summary(w, r, st)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, chart.Pareto(l.ParetoSeries(), s.tr, st.lang))
}

// handleCategoryChart serves the per-category totals for the pie chart.
func (s *Server) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	st := stateOf(sessionFrom(r.Context()))
	l, ok := s.summary(w, r, st)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, chart.Categories(l.CategoryTotals(), s.tr, st.lang))
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request, st sessionState) (*core.Ledger, bool) {
	l, err := s.expenses.Summary(r.Context(), st.store)
	if err != nil {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Failed to aggregate ledger", err, log.OpAggregate, nil)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": s.tr.T(st.lang, "err_generic")})
		return nil, false
	}
	return l, true
}

// handleStrategies asks the model for savings strategies. Failures render a
// 503 partial; the rest of the dashboard keeps working.
func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	st := stateOf(sessionFrom(r.Context()))

	l, err := s.expenses.Summary(r.Context(), st.store)
	if err != nil {
		s.fail(w, r, st.lang, log.OpSuggest, err)
		return
	}

	text, err := s.strategies.Strategies(r.Context(), st.profile.MonthlyIncome, st.profile.SavingsGoal, l.TotalsByCategory(), st.lang)
	switch {
	case err == nil:
	case core.IsValidation(err):
		s.fail(w, r, st.lang, log.OpSuggest, err)
		return
	case errors.Is(err, suggest.ErrDisabled):
		ServiceUnavailableError(s.tr.T(st.lang, "strategies_disabled")).Write(w)
		return
	case errors.Is(err, context.Canceled):
		// client went away; nobody reads the answer
		return
	default:
		ServiceUnavailableError(s.tr.T(st.lang, "strategies_unavailable")).Write(w)
		return
	}

	body, err := s.render(r.Context(), "strategies", strategiesView{Lang: st.lang, Paragraphs: paragraphs(text)})
	if err != nil {
		s.fail(w, r, st.lang, log.OpRender, err)
		return
	}
	NewHTMXResponse().Partial(body).Write(w)
}
