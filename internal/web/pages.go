package web

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/creative-hub/internal/core"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Page names, one per templates/<name>.html.
const (
	pageHome     = "home"
	pageRegister = "register"
	pageComplete = "complete"
	pageLogin    = "login"
	pageAdmin    = "admin"
	pageError    = "error"
	pageNotFound = "notfound"
)

// pageSet holds one template tree per page, each sharing layout.html.
type pageSet struct {
	pages map[string]*template.Template
}

var pageFuncs = template.FuncMap{
	"join":    func(list []string) string { return strings.Join(list, ", ") },
	"has":     func(list []string, v string) bool { return slices.Contains(list, v) },
	"percent": core.Percent,
	"date":    formatDate,
	"inc":     func(i int) int { return i + 1 },
}

func mustParsePages() *pageSet {
	ps := &pageSet{pages: make(map[string]*template.Template)}
	for _, name := range []string{pageHome, pageRegister, pageComplete, pageLogin, pageAdmin, pageError, pageNotFound} {
		t := template.Must(template.New(name).Funcs(pageFuncs).ParseFS(templateFiles,
			"templates/layout.html",
			"templates/"+name+".html",
		))
		ps.pages[name] = t
	}
	return ps
}

// component returns the page as a templ component rooted at the layout.
func (ps *pageSet) component(name string, data any) templ.Component {
	t, ok := ps.pages[name]
	if !ok {
		panic("web: unknown page " + name)
	}
	return templ.FromGoHTML(t.Lookup("layout"), data)
}

// render writes page name with status.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages.component(name, data).Render(r.Context(), w); err != nil {
		slog.Error("render page failed", "page", name, "error", err)
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	s.render(w, r, status, pageError, errorView{
		Title:   http.StatusText(status),
		Status:  status,
		Message: msg,
	})
}

// View models

type groupBar struct {
	Name    string
	Count   int
	Percent int
}

func groupBars(sum core.Summary) []groupBar {
	bars := make([]groupBar, 0, len(core.Groups()))
	counts := make(map[string]int, len(sum.Groups))
	for _, g := range sum.Groups {
		counts[g.Name] = g.Count
	}
	for _, g := range core.Groups() {
		n := counts[string(g)]
		bars = append(bars, groupBar{Name: string(g), Count: n, Percent: core.Percent(n, sum.Total)})
	}
	return bars
}

type homeView struct {
	Title   string
	Summary core.Summary
	Groups  []groupBar
}

type stepView struct {
	Number  int
	Title   string
	Current bool
	Done    bool
}

type registerView struct {
	Title     string
	State     core.FormState
	Steps     []stepView
	Groups    []core.Group
	Interests []string
	Software  []string
	Notice    *core.UserMessage
}

func newRegisterView(state core.FormState, err error) registerView {
	v := registerView{
		Title:     "Register",
		State:     state,
		Groups:    core.Groups(),
		Interests: core.PresetInterests,
		Software:  core.PresetSoftware,
	}
	for i := 0; i < core.StepCount; i++ {
		step := core.Step(i)
		v.Steps = append(v.Steps, stepView{
			Number:  i + 1,
			Title:   step.Title(),
			Current: step == state.Step,
			Done:    step < state.Step,
		})
	}
	if err != nil {
		msg := core.MapError(err)
		v.Notice = &msg
	}
	return v
}

type completeView struct {
	Title        string
	FirstName    string
	Registration core.Registration
}

type loginView struct {
	Title    string
	Username string
	Notice   *core.UserMessage
}

type adminView struct {
	Title         string
	Summary       core.Summary
	Groups        []groupBar
	AllGroups     []core.Group
	SelectedGroup string
	Registrations []core.Registration
	Audit         []core.AuditEntry
	Exports       core.ExportLimiterStatus
	Notice        string
}

type errorView struct {
	Title   string
	Status  int
	Message core.UserMessage
}

// adminNotices maps the ?notice= values set by admin redirects.
var adminNotices = map[string]string{
	"deleted": "Registration deleted",
	"cleared": "All registrations deleted",
	"empty":   "No data to export",
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("02 Jan 2006, 15:04")
}
