// ABOUTME: Template rendering functions for admin UI
// ABOUTME: Parses embedded templates once and renders login, feedback, help and error pages

package webadmin

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/2389/feedbackd/internal/assets"
	"github.com/2389/feedbackd/internal/store"
)

// Template data types
type loginData struct {
	Title     string
	Error     string
	CSRFToken string
}

type feedbackRow struct {
	ID           int64
	Date         string
	ISOTime      string
	Rating       int
	Stars        []bool
	Name         string
	Email        string
	CommentLines []string
}

type feedbackPageData struct {
	Title       string
	Username    string
	CSRFToken   string
	Entries     []feedbackRow
	Count       int
	IdleSeconds int
	WarnSeconds int
}

type helpData struct {
	Title     string
	CSRFToken string
	Content   template.HTML
}

type errorData struct {
	Title     string
	Message   string
	CSRFToken string
}

// pageTemplates holds one parsed set per page, each layered on base.html
type pageTemplates struct {
	login     *template.Template
	feedback  *template.Template
	help      *template.Template
	errorPage *template.Template
}

var templateFuncs = template.FuncMap{
	"asset": assets.Path,
}

func parsePage(name string) *template.Template {
	return template.Must(template.New("base.html").Funcs(templateFuncs).
		ParseFS(templateFS, "templates/base.html", "templates/"+name))
}

func mustParseTemplates() *pageTemplates {
	return &pageTemplates{
		login:     parsePage("login.html"),
		feedback:  parsePage("feedback.html"),
		help:      parsePage("help.html"),
		errorPage: parsePage("error.html"),
	}
}

// render executes into a buffer first so a template error never leaves a half-written page
func (a *Admin) render(w http.ResponseWriter, status int, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		a.logger.Error("failed to render template", "template", tmpl.Name(), "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderLoginPage renders the login page
func (a *Admin) renderLoginPage(w http.ResponseWriter, status int, errorMsg, csrfToken string) {
	a.render(w, status, a.templates.login, loginData{
		Title:     "Login",
		Error:     errorMsg,
		CSRFToken: csrfToken,
	})
}

// renderError renders a standalone error page
func (a *Admin) renderError(w http.ResponseWriter, status int, title, message string) {
	a.render(w, status, a.templates.errorPage, errorData{
		Title:   title,
		Message: message,
	})
}

// renderFeedbackPage renders every stored entry, newest first
func (a *Admin) renderFeedbackPage(w http.ResponseWriter, r *http.Request, session *store.AdminSession, csrfToken string) {
	entries, err := a.feedback.List(r.Context())
	if err != nil {
		a.logger.Error("failed to list feedback", "error", err)
		a.renderError(w, http.StatusInternalServerError, "Server error", "Failed to load feedback")
		return
	}

	rows := make([]feedbackRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, newFeedbackRow(e))
	}

	a.render(w, http.StatusOK, a.templates.feedback, feedbackPageData{
		Title:       "Feedback",
		Username:    session.Username,
		CSRFToken:   csrfToken,
		Entries:     rows,
		Count:       len(rows),
		IdleSeconds: int(a.sessions.IdleTimeout().Seconds()),
		WarnSeconds: int(WarnBefore.Seconds()),
	})
}

func newFeedbackRow(e *store.FeedbackEntry) feedbackRow {
	stars := make([]bool, 5)
	for i := range stars {
		stars[i] = i+1 <= e.Rating
	}
	ts := e.Timestamp.UTC()
	return feedbackRow{
		ID:           e.ID,
		Date:         ts.Format("2006-01-02 15:04:05"),
		ISOTime:      ts.Format("2006-01-02T15:04:05Z"),
		Rating:       e.Rating,
		Stars:        stars,
		Name:         e.Name,
		Email:        e.Email,
		CommentLines: commentLines(e.Comment),
	}
}

// commentLines splits on any newline convention; the template joins with <br>
func commentLines(comment string) []string {
	if comment == "" {
		return nil
	}
	comment = strings.ReplaceAll(comment, "\r\n", "\n")
	comment = strings.ReplaceAll(comment, "\r", "\n")
	return strings.Split(comment, "\n")
}

// handleHelp renders the embedded markdown help page
func (a *Admin) handleHelp(w http.ResponseWriter, r *http.Request) {
	content, err := renderHelp()
	if err != nil {
		a.logger.Error("failed to render help", "error", err)
		content = "<p>Failed to render help content.</p>"
	}

	a.render(w, http.StatusOK, a.templates.help, helpData{
		Title:     "Help",
		CSRFToken: getCSRFToken(r),
		Content:   template.HTML(content),
	})
}

func renderHelp() (string, error) {
	md, err := templateFS.ReadFile("docs/help.md")
	if err != nil {
		return "", err
	}

	// Convert markdown to HTML
	var htmlBuf bytes.Buffer
	if err := goldmark.Convert(md, &htmlBuf); err != nil {
		return "", err
	}
	return htmlBuf.String(), nil
}
