package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/creative-hub/internal/core"
	"github.com/JonMunkholm/creative-hub/internal/logging"
	mw "github.com/JonMunkholm/creative-hub/internal/web/middleware"
)

// adminAuditRows is how many audit entries the dashboard shows.
const adminAuditRows = 20

// handleAdminPage renders the login form, or the dashboard for a signed-in admin.
func (s *Server) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	if !mw.IsAdmin(r, s.admins, &s.cfg.Security) {
		s.render(w, r, http.StatusOK, pageLogin, loginView{Title: "Admin Login"})
		return
	}

	ctx := core.ContextWithActor(r.Context(), core.ActorAdmin)
	group := r.URL.Query().Get("group")

	regs, err := s.service.ListRegistrations(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sum := core.Summarize(regs, s.cfg.Export.TopN)

	shown := regs
	if group != "" {
		if shown, err = s.service.ListRegistrationsByGroup(ctx, group); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	audit, err := s.service.AuditLog(ctx, adminAuditRows)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, pageAdmin, adminView{
		Title:         "Admin Dashboard",
		Summary:       sum,
		Groups:        groupBars(sum),
		AllGroups:     core.Groups(),
		SelectedGroup: group,
		Registrations: shown,
		Audit:         audit,
		Exports:       s.service.Exports().Status(),
		Notice:        adminNotices[r.URL.Query().Get("notice")],
	})
}

// handleAdminLogin checks the posted credentials and starts an admin session.
func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	ctx := WithRequestMetadata(r.Context(), r)
	if !mw.CheckCredentials(&s.cfg.Admin, username, password) {
		logging.FromContext(ctx).Warn("admin login failed", "username", username)
		msg := core.MapError(core.ErrInvalidCredentials)
		s.render(w, r, http.StatusUnauthorized, pageLogin, loginView{
			Title:    "Admin Login",
			Username: username,
			Notice:   &msg,
		})
		return
	}

	token := s.admins.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     mw.AdminCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.admins.TTL().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	s.service.LogAudit(core.ContextWithActor(ctx, core.ActorAdmin), core.AuditLogParams{
		Action: core.ActionAdminLogin,
	})
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// handleAdminLogout ends the admin session.
func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(mw.AdminCookie); err == nil {
		if s.admins.Valid(c.Value) {
			ctx := core.ContextWithActor(WithRequestMetadata(r.Context(), r), core.ActorAdmin)
			s.service.LogAudit(ctx, core.AuditLogParams{Action: core.ActionAdminLogout})
		}
		s.admins.Revoke(c.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     mw.AdminCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// handleAdminDenied answers requests to admin routes without a session.
func (s *Server) handleAdminDenied(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, r, core.ErrAdminRequired, http.StatusUnauthorized)
}

// handleAdminDelete deletes one registration from the dashboard.
func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
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
	http.Redirect(w, r, "/admin?notice=deleted", http.StatusSeeOther)
}

// handleAdminDeleteAll deletes every registration from the dashboard.
func (s *Server) handleAdminDeleteAll(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	if _, err := s.service.DeleteAllRegistrations(ctx); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/admin?notice=cleared", http.StatusSeeOther)
}

// handleAdminExport downloads every registration. An empty store redirects
// back with a notice instead of sending an empty file.
func (s *Server) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	format, err := core.ParseExportFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	file, err := s.service.Export(ctx, format)
	if isNothingToExport(err) {
		http.Redirect(w, r, "/admin?notice=empty", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeExportFile(w, file)
}
