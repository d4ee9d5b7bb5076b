package http

import (
	"errors"
	"net/http"
	"time"

	"budgetfilter/internal/dimension"
	"budgetfilter/internal/filter"
	"budgetfilter/internal/log"
	"budgetfilter/internal/panel"
	"budgetfilter/internal/session"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.ready(r.Context()); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		writeError(w, r, http.StatusServiceUnavailable, "option source unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type issueSessionRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleIssueSession(w http.ResponseWriter, r *http.Request) {
	var req issueSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.sessions.Issue(r.Context(), sanitizeInput(req.UserID))
	if err != nil {
		if errors.Is(err, session.ErrMissingUser) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Session issue failed",
			log.FieldOperation, log.OpIssue, log.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "could not create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	log.FromContext(r.Context()).InfoContext(r.Context(), "Session issued",
		log.NewFields().WithOperation(log.OpIssue).WithSession(sess.ID, sess.UserID).ToSlice()...)
	writeJSON(w, r, http.StatusCreated, sess)
}

func (s *Server) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	token := session.TokenFromRequest(r)
	if err := s.sessions.Revoke(r.Context(), token); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Session revoke failed",
			log.FieldOperation, log.OpRevoke, log.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "could not revoke session")
		return
	}
	// stores without a revoke hook
	if sess, ok := session.FromContext(r.Context()); ok {
		s.panels.drop(sess.ID)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

type dimensionView struct {
	Field   dimension.Field `json:"field"`
	Column  string          `json:"column"`
	Revenue bool            `json:"revenue"`
	Expense bool            `json:"expense"`
}

type dimensionsResponse struct {
	Dimensions []dimensionView                        `json:"dimensions"`
	Contexts   map[dimension.Context][]dimension.Field `json:"contexts"`
}

func (s *Server) handleDimensions(w http.ResponseWriter, r *http.Request) {
	resp := dimensionsResponse{Contexts: make(map[dimension.Context][]dimension.Field)}
	for _, f := range s.registry.Fields() {
		column, _ := s.registry.ResolveColumn(f)
		resp.Dimensions = append(resp.Dimensions, dimensionView{
			Field:   f,
			Column:  column,
			Revenue: s.registry.AppliesTo(f, dimension.Revenue),
			Expense: s.registry.AppliesTo(f, dimension.Expense),
		})
	}
	for _, c := range dimension.Contexts() {
		resp.Contexts[c] = s.registry.FieldsFor(c)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

type optionsResponse struct {
	Field   dimension.Field    `json:"field"`
	Options []dimension.Option `json:"options"`
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	field, ok := s.pathField(w, r)
	if !ok {
		return
	}
	if s.options == nil {
		writeError(w, r, http.StatusServiceUnavailable, "no option source configured")
		return
	}

	opts, err := s.options.Options(r.Context(), field)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Option lookup failed",
			log.NewFields().WithOperation(log.OpLoad).WithError(err).ToSlice()...)
		writeError(w, r, http.StatusBadGateway, "option source failed")
		return
	}
	if opts == nil {
		opts = []dimension.Option{}
	}
	writeJSON(w, r, http.StatusOK, optionsResponse{Field: field, Options: opts})
}

type filtersResponse struct {
	Selections *filter.Set    `json:"selections"`
	Criteria   panel.Criteria `json:"criteria"`
	Active     bool           `json:"active"`
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.sessionPanel(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, filtersState(entry.ctrl))
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.sessionPanel(w, r)
	if !ok {
		return
	}
	field, ok := s.pathField(w, r)
	if !ok {
		return
	}

	var wire filter.Wire
	if err := decodeJSON(w, r, &wire); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sel, err := wire.Selection()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s.screenLiterals(r, field, wire)

	if err := entry.ctrl.SetFilter(r.Context(), field, sel); err != nil {
		var unknown *dimension.UnknownFieldError
		if errors.As(err, &unknown) {
			writeError(w, r, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "could not apply filter")
		return
	}
	writeJSON(w, r, http.StatusOK, filtersState(entry.ctrl))
}

func (s *Server) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.sessionPanel(w, r)
	if !ok {
		return
	}
	entry.ctrl.ClearAll(r.Context())
	writeJSON(w, r, http.StatusOK, filtersState(entry.ctrl))
}

func (s *Server) handleCriteria(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.sessionPanel(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, entry.ctrl.Criteria())
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.sessionPanel(w, r)
	if !ok {
		return
	}
	preview, allowed := entry.ctrl.Preview()
	if !allowed {
		writeError(w, r, http.StatusForbidden, "criteria preview is not enabled for this session")
		return
	}
	writeJSON(w, r, http.StatusOK, preview)
}

func filtersState(ctrl *panel.Controller) filtersResponse {
	snap := ctrl.Snapshot()
	return filtersResponse{
		Selections: snap.Selections,
		Criteria:   snap.Criteria,
		Active:     snap.Active,
	}
}

// sessionPanel returns the controller of the request's session.
func (s *Server) sessionPanel(w http.ResponseWriter, r *http.Request) (*panelEntry, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		s.unauthorized(w, r, session.ErrSessionNotFound)
		return nil, false
	}
	return s.panels.get(sess), true
}

// pathField resolves the {field} path value, answering 404 when unknown.
func (s *Server) pathField(w http.ResponseWriter, r *http.Request) (dimension.Field, bool) {
	field, err := s.registry.Lookup(r.PathValue("field"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return "", false
	}
	return field, true
}

// screenLiterals logs filter values that would escape a quoted literal.
// Verbatim rendering embeds them as is.
func (s *Server) screenLiterals(r *http.Request, field dimension.Field, wire filter.Wire) {
	values := append([]string{wire.Value, wire.From, wire.To}, wire.Values...)
	for _, v := range values {
		if v != "" && s.detector.SuspiciousLiteral(v) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Filter value contains SQL metacharacters",
				log.FieldField, string(field),
				log.FieldMode, string(wire.Mode))
			return
		}
	}
}
