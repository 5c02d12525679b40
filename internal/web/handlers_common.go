package web

// Shared request parsing and response helpers used across handlers.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JonMunkholm/creative-hub/internal/core"
	"github.com/JonMunkholm/creative-hub/internal/logging"
)

// formCookie carries the registration form session id.
const formCookie = "hub_form"

// maxBodySize caps JSON request bodies.
const maxBodySize = 64 << 10

var errInvalidBody = core.ValidationError{Field: "body", Message: "Request body must be valid JSON"}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

// formInput reads the registration fields posted by the form page.
func formInput(r *http.Request) core.NewRegistration {
	return core.NewRegistration{
		FullName:       r.PostFormValue("fullName"),
		MobileNumber:   r.PostFormValue("mobileNumber"),
		RoomNumber:     r.PostFormValue("roomNumber"),
		GroupName:      r.PostFormValue("groupName"),
		Interests:      r.PostForm["interests"],
		CustomInterest: r.PostFormValue("customInterest"),
		Software:       r.PostForm["software"],
		CustomSoftware: r.PostFormValue("customSoftware"),
	}
}

// formSession returns the caller's form, starting a new session and setting
// the cookie when there is none.
func (s *Server) formSession(w http.ResponseWriter, r *http.Request) (uuid.UUID, *core.Form) {
	var raw string
	if c, err := r.Cookie(formCookie); err == nil {
		raw = c.Value
	}

	id, form := s.service.Forms().Resolve(raw)
	if id.String() != raw {
		http.SetCookie(w, &http.Cookie{
			Name:     formCookie,
			Value:    id.String(),
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return id, form
}

// apiForm resolves the {id} path parameter of the form API.
func (s *Server) apiForm(r *http.Request, raw string) (uuid.UUID, *core.Form, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, nil, core.ErrFormNotFound
	}
	form, err := s.service.Forms().Get(id)
	if err != nil {
		return uuid.Nil, nil, err
	}
	return id, form, nil
}

// writeExportFile sends a rendered export as a download.
func writeExportFile(w http.ResponseWriter, file core.ExportFile) {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("X-Export-Rows", strconv.Itoa(file.Rows))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

func isNothingToExport(err error) bool {
	return errors.Is(err, core.ErrNothingToExport)
}

// logStepRejected records a form step that did not advance.
func logStepRejected(ctx context.Context, id uuid.UUID, form *core.Form, err error) {
	logging.WithFields(ctx,
		"form_id", id,
		"step", form.Step().String(),
	).Info("registration step rejected",
		"code", core.MapError(err).Code,
		"reason", core.FormatUserError(err),
	)
}
