package http

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/log"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/session"
)

type (
	option struct {
		Value    string
		Label    string
		Selected bool
	}

	profileView struct {
		SavingsGoal     string
		TimeframeMonths int
		MonthlyIncome   string
		MonthlyExpenses string
	}

	planView struct {
		Lang            core.Language
		Goal            string
		Months          int
		MonthlySavings  string
		RequiredMonthly string
		OnTrack         bool
		Saved           bool
	}

	indexView struct {
		Lang              core.Language
		Languages         []option
		Categories        []option
		Today             string
		MinDate           string
		MaxDate           string
		Profile           profileView
		Plan              planView
		StrategiesEnabled bool
	}
)

func (s *Server) funcs() template.FuncMap {
	return template.FuncMap{
		"t":        s.tr.T,
		"tf":       s.tr.Format,
		"category": s.tr.Category,
		"money":    core.FormatAmount,
	}
}

func newPlanView(lang core.Language, p core.Profile) planView {
	plan := p.Plan()
	return planView{
		Lang:            lang,
		Goal:            core.FormatAmount(p.SavingsGoal),
		Months:          p.TimeframeMonths,
		MonthlySavings:  core.FormatAmount(plan.MonthlySavings),
		RequiredMonthly: core.FormatAmount(plan.RequiredMonthly),
		OnTrack:         plan.OnTrack,
	}
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

// render executes a template into a buffer first so a failure never leaves a
// half-written page.
func (s *Server) render(ctx context.Context, name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Template execution failed",
			log.FieldComponent, log.ComponentTemplate,
			log.FieldOperation, log.OpRender,
			log.FieldError, err.Error(),
			"template", name)
		return nil, err
	}
	return buf.Bytes(), nil
}

// fail answers err with a localised partial: 422 for validation errors and
// 500 for everything else.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, lang core.Language, op string, err error) {
	if core.IsValidation(err) {
		log.FromContext(r.Context()).InfoContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldErrorType, log.ErrorTypeValidation,
			log.FieldError, err.Error())
		UnprocessableEntityError(s.tr.Error(lang, err)).Write(w)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Request failed", err, op, nil)
	InternalServerError(s.tr.T(lang, "err_generic")).Write(w)
}

// language reads the session language under its lock.
func language(sess *session.Session) core.Language {
	var lang core.Language
	_ = sess.Do(func(s *session.Session) error {
		lang = s.Language
		return nil
	})
	return lang
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether the dashboard can serve visitors.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"templates": "ok",
		"sessions": map[string]any{
			"active": s.sessions.Len(),
			"status": "ok",
		},
		"rate_limiter": map[string]any{
			"active_clients": s.limiter.ActiveClients(),
			"rejected":       s.limiter.Rejected(),
		},
		"suspicious_requests": s.detector.SuspiciousRequests(),
		"strategies":          "disabled",
	}
	if s.strategiesEnabled {
		checks["strategies"] = "enabled"
	}
	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	view := indexView{
		Today:             s.today().String(),
		MinDate:           core.MinDate.String(),
		MaxDate:           core.MaxDate.String(),
		StrategiesEnabled: s.strategiesEnabled,
	}
	_ = sess.Do(func(ss *session.Session) error {
		view.Lang = ss.Language
		view.Profile = profileView{
			SavingsGoal:     ss.Profile.SavingsGoal.StringFixed(2),
			TimeframeMonths: ss.Profile.TimeframeMonths,
			MonthlyIncome:   ss.Profile.MonthlyIncome.StringFixed(2),
			MonthlyExpenses: ss.Profile.MonthlyExpenses.StringFixed(2),
		}
		view.Plan = newPlanView(ss.Language, ss.Profile)
		return nil
	})

	for _, l := range core.Languages() {
		view.Languages = append(view.Languages, option{Value: l.String(), Label: s.tr.Name(l), Selected: l == view.Lang})
	}
	for _, c := range core.Categories() {
		view.Categories = append(view.Categories, option{Value: c.String(), Label: s.tr.Category(view.Lang, c)})
	}

	body, err := s.render(r.Context(), "index.html", view)
	if err != nil {
		http.Error(w, s.tr.T(view.Lang, "err_generic"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleLanguage switches the session language and reloads the page.
func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	current := language(sess)

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(s.tr.T(current, "err_generic")).Write(w)
		return
	}
	lang, err := core.ParseLanguage(p.Get("language"))
	if err != nil {
		s.fail(w, r, current, log.OpValidate, core.NewValidationError("language", err))
		return
	}

	_ = sess.Do(func(ss *session.Session) error {
		ss.Language = lang
		return nil
	})
	log.FromContext(r.Context()).InfoContext(r.Context(), "Language changed", log.FieldLanguage, lang.String())

	if r.Header.Get("HX-Request") == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	NewHTMXResponse().Refresh().Write(w)
}

// handleProfile stores the savings goal form and returns the plan partial.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	lang := language(sess)

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(s.tr.T(lang, "err_generic")).Write(w)
		return
	}
	profile, err := ParseProfileInput(p)
	if err != nil {
		s.fail(w, r, lang, log.OpValidate, err)
		return
	}

	_ = sess.Do(func(ss *session.Session) error {
		ss.Profile = profile
		return nil
	})

	view := newPlanView(lang, profile)
	view.Saved = true
	body, err := s.render(r.Context(), "plan", view)
	if err != nil {
		s.fail(w, r, lang, log.OpRender, err)
		return
	}
	NewHTMXResponse().
		TriggerProfileSaved().
		Partial(body).
		Write(w)
}
