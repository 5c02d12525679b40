package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/creative-hub/internal/core"
)

// formResponse is the body returned by the form API.
type formResponse struct {
	ID    string         `json:"id"`
	State core.FormState `json:"state"`
	Error *ErrorResponse `json:"error,omitempty"`
}

func newFormResponse(id uuid.UUID, form *core.Form, err error) formResponse {
	resp := formResponse{ID: id.String(), State: form.State()}
	if err != nil {
		e := newErrorResponse(err)
		resp.Error = &e
	}
	return resp
}

// handleOptions lists the fixed groups, interests and software.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"groups":    core.Groups(),
		"interests": core.PresetInterests,
		"software":  core.PresetSoftware,
	})
}

// handleCountRegistrations returns the total number of registrations.
func (s *Server) handleCountRegistrations(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.CountRegistrations(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

// handleCheckMobile reports whether a mobile number is already registered.
func (s *Server) handleCheckMobile(w http.ResponseWriter, r *http.Request) {
	mobile := r.URL.Query().Get("mobile")
	exists, err := s.service.MobileExists(r.Context(), mobile)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mobile": mobile,
		"exists": exists,
	})
}

// handleCreateRegistration registers a complete submission in one call.
func (s *Server) handleCreateRegistration(w http.ResponseWriter, r *http.Request) {
	var in core.NewRegistration
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	reg, err := s.service.Register(ctx, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// handleCreateForm starts a form session.
func (s *Server) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	id, form := s.service.Forms().Create()
	writeJSON(w, http.StatusCreated, newFormResponse(id, form, nil))
}

// handleGetForm returns a form's state.
func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	id, form, err := s.apiForm(r, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFormResponse(id, form, nil))
}

// handleFormNext applies the current step's fields and advances.
// Step failures answer with the failing status and the form state.
func (s *Server) handleFormNext(w http.ResponseWriter, r *http.Request) {
	id, form, err := s.apiForm(r, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var in core.NewRegistration
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if err := form.Advance(ctx, in); err != nil {
		logStepRejected(ctx, id, form, err)
		writeJSON(w, statusFor(err), newFormResponse(id, form, err))
		return
	}
	writeJSON(w, http.StatusOK, newFormResponse(id, form, nil))
}

// handleFormBack moves a form one step back.
func (s *Server) handleFormBack(w http.ResponseWriter, r *http.Request) {
	id, form, err := s.apiForm(r, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	form.Back()
	writeJSON(w, http.StatusOK, newFormResponse(id, form, nil))
}

// handleDeleteForm discards a form session.
func (s *Server) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil || !s.service.Forms().Delete(id) {
		s.fail(w, r, core.ErrFormNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListRegistrations lists registrations, optionally for one group.
func (s *Server) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := s.service.ListRegistrationsByGroup(r.Context(), r.URL.Query().Get("group"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"registrations": regs,
		"count":         len(regs),
	})
}

// handleDeleteRegistration deletes one registration.
func (s *Server) handleDeleteRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.DeleteRegistration(ctx, id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": 1})
}

// handleDeleteRegistrations deletes the registrations listed in {"ids": [...]}.
func (s *Server) handleDeleteRegistrations(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := core.ParseID(raw)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		ids = append(ids, id)
	}

	ctx := WithRequestMetadata(r.Context(), r)
	n, err := s.service.DeleteRegistrations(ctx, ids)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// handleDeleteAllRegistrations deletes every registration.
func (s *Server) handleDeleteAllRegistrations(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	n, err := s.service.DeleteAllRegistrations(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// handleSummary returns the dashboard aggregates.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.service.Summary(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleExport downloads every registration. An empty store answers
// 204 with X-Export-Status: empty.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := core.ParseExportFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	file, err := s.service.Export(ctx, format)
	if isNothingToExport(err) {
		w.Header().Set("X-Export-Status", "empty")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeExportFile(w, file)
}

// handleExportStatus reports export slot usage.
func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Exports().Status())
}

// handleAuditLog returns recent audit entries.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.AuditLog(r.Context(), parseIntParam(r, "limit", core.DefaultAuditLimit))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
