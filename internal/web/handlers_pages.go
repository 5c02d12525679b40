package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/JonMunkholm/creative-hub/internal/core"
	"github.com/JonMunkholm/creative-hub/internal/logging"
)

// handleHome renders the landing dashboard.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	sum, err := s.service.Summary(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, pageHome, homeView{
		Title:   "Home",
		Summary: sum,
		Groups:  groupBars(sum),
	})
}

// handleRegisterPage renders the current form step, or the summary once the
// form has been submitted.
func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	_, form := s.formSession(w, r)

	if reg := form.Submitted(); reg != nil {
		s.render(w, r, http.StatusOK, pageComplete, completeView{
			Title:        "Registered",
			FirstName:    reg.FirstName(),
			Registration: *reg,
		})
		return
	}
	s.render(w, r, http.StatusOK, pageRegister, newRegisterView(form.State(), nil))
}

// handleRegisterNext validates the posted step and advances the form.
func (s *Server) handleRegisterNext(w http.ResponseWriter, r *http.Request) {
	id, form := s.formSession(w, r)

	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	err := form.Advance(ctx, formInput(r))
	if err == nil || errors.Is(err, core.ErrFormComplete) {
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	logStepRejected(ctx, id, form, err)
	s.render(w, r, statusFor(err), pageRegister, newRegisterView(form.State(), err))
}

// handleRegisterBack moves the form one step back without validating.
func (s *Server) handleRegisterBack(w http.ResponseWriter, r *http.Request) {
	_, form := s.formSession(w, r)
	form.Back()
	http.Redirect(w, r, "/register", http.StatusSeeOther)
}

// handleRegisterReset starts a fresh registration on the same session.
func (s *Server) handleRegisterReset(w http.ResponseWriter, r *http.Request) {
	_, form := s.formSession(w, r)
	form.Reset()
	http.Redirect(w, r, "/register", http.StatusSeeOther)
}

// handleNotFound renders the catch-all page, or a JSON 404 for API paths.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "not found",
			Message: "The requested resource does not exist",
			Code:    "ERR404",
		})
		return
	}
	s.render(w, r, http.StatusNotFound, pageNotFound, struct{ Title string }{"Not Found"})
}

// handleHealth reports whether the store is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.Ping(ctx); err != nil {
		logging.FromContext(ctx).Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
