// ABOUTME: End-to-end tests for the admin UI over httptest with a cookie jar
// ABOUTME: Covers login, the session gate, CSRF, both delete paths, logout, export, help and idle expiry

package webadmin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/feedbackd/internal/auth"
	"github.com/2389/feedbackd/internal/export"
	"github.com/2389/feedbackd/internal/feedback"
	"github.com/2389/feedbackd/internal/store"
)

const (
	testUser     = "admin"
	testPassword = "correct horse battery"
)

type fixture struct {
	t         *testing.T
	server    *httptest.Server
	client    *http.Client
	feedback  *store.MockStore
	sessions  *store.MockStore
	manager   *auth.SessionManager
	service   *feedback.Service
	serverURL *url.URL
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithLimit(t, 100, 100)
}

func newFixtureWithLimit(t *testing.T, perMinute float64, burst int) *fixture {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	creds, err := auth.NewCredentials(testUser, string(hash))
	require.NoError(t, err)

	f := &fixture{
		t:        t,
		feedback: store.NewMockStore(),
		sessions: store.NewMockStore(),
	}
	f.service = feedback.NewService(f.feedback, nil, nil)
	f.manager = auth.NewSessionManager(f.sessions, auth.NewJWTSigner([]byte("test-secret-key-for-jwt-signing-32")), auth.SessionConfig{
		IdleTimeout: 20 * time.Minute,
		MaxLifetime: 12 * time.Hour,
	})

	admin := New(f.service, f.manager, creds, auth.NewLoginLimiter(perMinute, burst), Config{})
	mux := http.NewServeMux()
	admin.RegisterRoutes(mux)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	f.serverURL, _ = url.Parse(f.server.URL)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	f.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return f
}

func (f *fixture) cookie(name string) string {
	for _, c := range f.client.Jar.Cookies(f.serverURL) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (f *fixture) get(path string) (*http.Response, string) {
	f.t.Helper()
	resp, err := f.client.Get(f.server.URL + path)
	require.NoError(f.t, err)
	return resp, readBody(f.t, resp)
}

func (f *fixture) postForm(path string, form url.Values) (*http.Response, string) {
	f.t.Helper()
	resp, err := f.client.PostForm(f.server.URL+path, form)
	require.NoError(f.t, err)
	return resp, readBody(f.t, resp)
}

func (f *fixture) postJSON(path, csrfHeader, body string) (*http.Response, map[string]any) {
	f.t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.server.URL+path, strings.NewReader(body))
	require.NoError(f.t, err)
	req.Header.Set("Content-Type", "application/json")
	if csrfHeader != "" {
		req.Header.Set("X-CSRF-Token", csrfHeader)
	}
	resp, err := f.client.Do(req)
	require.NoError(f.t, err)

	var out map[string]any
	require.NoError(f.t, json.Unmarshal([]byte(readBody(f.t, resp)), &out))
	return resp, out
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func (f *fixture) csrf() string {
	f.t.Helper()
	if token := f.cookie(CSRFCookieName); token != "" {
		return token
	}
	f.get("/admin")
	token := f.cookie(CSRFCookieName)
	require.NotEmpty(f.t, token)
	return token
}

func (f *fixture) login() {
	f.t.Helper()
	resp, _ := f.postForm("/admin", url.Values{
		"username":   {testUser},
		"password":   {testPassword},
		"csrf_token": {f.csrf()},
	})
	require.Equal(f.t, http.StatusSeeOther, resp.StatusCode)
	require.NotEmpty(f.t, f.cookie(SessionCookieName))
}

func (f *fixture) submit(rating int, name, comment string) int64 {
	f.t.Helper()
	entry, err := f.service.Submit(context.Background(), &feedback.Submission{Rating: &rating, Name: name, Comment: comment})
	require.NoError(f.t, err)
	return entry.ID
}

func (f *fixture) count() int {
	f.t.Helper()
	n, err := f.feedback.CountFeedback(context.Background())
	require.NoError(f.t, err)
	return n
}

func TestAdminPage_LoggedOutShowsLogin(t *testing.T) {
	f := newFixture(t)
	f.submit(4, "Grace", "secret comment")

	resp, body := f.get("/admin")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Admin Login")
	assert.NotContains(t, body, "secret comment")
	assert.NotEmpty(t, f.cookie(CSRFCookieName))
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	before := f.csrf()

	f.login()

	assert.NotEqual(t, before, f.cookie(CSRFCookieName), "CSRF token rotates on login")
	assert.Equal(t, 1, f.sessions.SessionCount())

	resp, body := f.get("/admin")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Log out (admin)")
	assert.Contains(t, body, `data-idle-seconds="1200"`)
	assert.Contains(t, body, `data-warn-seconds="120"`)
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", testUser, "wrong"},
		{"wrong username", "root", testPassword},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			resp, body := f.postForm("/admin", url.Values{
				"username":   {tt.username},
				"password":   {tt.password},
				"csrf_token": {f.csrf()},
			})

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Contains(t, body, "Invalid username or password")
			assert.Contains(t, body, "Admin Login")
			assert.Empty(t, f.cookie(SessionCookieName))
			assert.Zero(t, f.sessions.SessionCount())
		})
	}
}

func TestLogin_RequiresCSRF(t *testing.T) {
	f := newFixture(t)
	f.csrf()

	resp, body := f.postForm("/admin", url.Values{
		"username":   {testUser},
		"password":   {testPassword},
		"csrf_token": {"forged"},
	})

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, "Invalid request")
	assert.Zero(t, f.sessions.SessionCount())
}

func TestLogin_Throttled(t *testing.T) {
	f := newFixtureWithLimit(t, 1, 2)
	form := url.Values{"username": {testUser}, "password": {"wrong"}, "csrf_token": {f.csrf()}}

	for i := 0; i < 2; i++ {
		resp, _ := f.postForm("/admin", form)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	// Even correct credentials are refused while throttled
	form.Set("password", testPassword)
	resp, body := f.postForm("/admin", form)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, "Too many login attempts")
	assert.Zero(t, f.sessions.SessionCount())
}

func TestAdaScenario(t *testing.T) {
	f := newFixture(t)
	id := f.submit(5, "Ada", "Great!")
	f.login()

	_, body := f.get("/admin")
	assert.Contains(t, body, "Ada")
	assert.Contains(t, body, "Great!")
	assert.Contains(t, body, "anonymous@example.com")
	assert.Equal(t, 5, strings.Count(body, `class="star filled"`))

	resp, out := f.postJSON("/admin/delete_feedback/"+itoa(id), f.cookie(CSRFCookieName), `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, true, out["deleted"])

	_, body = f.get("/admin")
	assert.NotContains(t, body, "Great!")
	assert.Contains(t, body, "No feedback yet.")
	assert.Zero(t, f.count())
}

func TestAdminPage_StarsAndOrdering(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		f.feedback.SetClock(func() time.Time { return ts })
		f.submit(2, name, "")
	}
	f.login()

	_, body := f.get("/admin")

	third := strings.Index(body, "third")
	second := strings.Index(body, "second")
	first := strings.Index(body, "first")
	require.True(t, third > 0 && second > 0 && first > 0)
	assert.Less(t, third, second)
	assert.Less(t, second, first)

	assert.Equal(t, 6, strings.Count(body, `class="star filled"`))
	assert.Equal(t, 9, strings.Count(body, `class="star"`))
	assert.Contains(t, body, "2024-01-01 12:02:00")
}

func TestAdminPage_CommentIsEscaped(t *testing.T) {
	f := newFixture(t)
	f.submit(1, "Mallory", "<script>alert(1)</script>\nsecond line")
	f.login()

	_, body := f.get("/admin")

	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;alert(1)&lt;/script&gt;<br>second line")

	// Stored verbatim
	entries, err := f.feedback.ListFeedback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<script>alert(1)</script>\nsecond line", entries[0].Comment)
}

func TestFormDelete_WithoutSessionIsRejected(t *testing.T) {
	f := newFixture(t)
	id := f.submit(3, "Bob", "keep me")

	resp, body := f.postForm("/admin", url.Values{
		"delete":     {"1"},
		"id":         {itoa(id)},
		"csrf_token": {f.csrf()},
	})

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Admin Login")
	assert.Equal(t, 1, f.count())
}

func TestFormDelete_WithSession(t *testing.T) {
	f := newFixture(t)
	keep := f.submit(3, "Keep", "")
	drop := f.submit(3, "Drop", "")
	f.login()

	resp, _ := f.postForm("/admin", url.Values{
		"delete":     {"1"},
		"id":         {itoa(drop)},
		"csrf_token": {f.cookie(CSRFCookieName)},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))

	entries, err := f.feedback.ListFeedback(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, keep, entries[0].ID)
}

func TestFormDelete_RequiresCSRF(t *testing.T) {
	f := newFixture(t)
	id := f.submit(3, "Bob", "")
	f.login()

	resp, _ := f.postForm("/admin", url.Values{"delete": {"1"}, "id": {itoa(id)}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 1, f.count())
}

func TestJSONDelete_WithoutSession(t *testing.T) {
	f := newFixture(t)
	id := f.submit(3, "Bob", "")

	resp, out := f.postJSON("/admin/delete_feedback/"+itoa(id), f.csrf(), `{}`)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "unauthorized", out["error"])
	assert.Equal(t, 1, f.count())
}

func TestJSONDelete_CSRF(t *testing.T) {
	f := newFixture(t)
	id := f.submit(3, "Bob", "")
	f.login()

	resp, out := f.postJSON("/admin/delete_feedback/"+itoa(id), "", `{}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, false, out["success"])

	resp, _ = f.postJSON("/admin/delete_feedback/"+itoa(id), "nope", `{}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 1, f.count())

	// Token in the JSON body is accepted too
	resp, out = f.postJSON("/admin/delete_feedback/"+itoa(id), "", `{"csrf_token":"`+f.cookie(CSRFCookieName)+`"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["deleted"])
}

func TestJSONDelete_NonexistentIsNoop(t *testing.T) {
	f := newFixture(t)
	f.submit(3, "Bob", "")
	f.login()

	resp, out := f.postJSON("/admin/delete_feedback/9999", f.cookie(CSRFCookieName), `{}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, false, out["deleted"])
	assert.Equal(t, 1, f.count())
}

func TestJSONDelete_InvalidID(t *testing.T) {
	f := newFixture(t)
	f.login()

	resp, _ := f.postJSON("/admin/delete_feedback/abc", f.cookie(CSRFCookieName), `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJSONDelete_StoreFailure(t *testing.T) {
	f := newFixture(t)
	id := f.submit(3, "Bob", "")
	f.login()
	f.feedback.SetErr(errors.New("database is locked"))

	resp, out := f.postJSON("/admin/delete_feedback/"+itoa(id), f.cookie(CSRFCookieName), `{}`)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "failed to delete feedback", out["error"])
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.login()

	resp, _ := f.postForm("/logout", url.Values{"csrf_token": {f.cookie(CSRFCookieName)}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get("Location"))
	assert.Empty(t, f.cookie(SessionCookieName))
	assert.Zero(t, f.sessions.SessionCount())

	_, body := f.get("/admin")
	assert.Contains(t, body, "Admin Login")
}

func TestLogout_RequiresCSRF(t *testing.T) {
	f := newFixture(t)
	f.login()

	resp, _ := f.postForm("/logout", url.Values{})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 1, f.sessions.SessionCount())
}

func TestIdleTimeoutLogsOut(t *testing.T) {
	f := newFixture(t)
	f.login()

	now := time.Now().Add(21 * time.Minute)
	f.manager.SetClock(func() time.Time { return now })
	f.sessions.SetClock(func() time.Time { return now })

	_, body := f.get("/admin")
	assert.Contains(t, body, "Admin Login")
	assert.Zero(t, f.sessions.SessionCount())
}

func TestActivityExtendsSession(t *testing.T) {
	f := newFixture(t)
	f.login()

	now := time.Now()
	f.manager.SetClock(func() time.Time { return now })
	f.sessions.SetClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		now = now.Add(15 * time.Minute)
		_, body := f.get("/admin")
		require.Contains(t, body, "Log out", "request %d", i)
	}
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	f.submit(5, "Ada", "Great!")
	f.submit(2, "", "meh")

	resp, _ := f.get("/admin/export")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode, "export requires a session")

	f.login()
	resp, body := f.get("/admin/export")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment; filename=\"feedback_export_")

	var records []export.Record
	require.NoError(t, json.Unmarshal([]byte(body), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "Anonymous", records[0].Name)
}

func TestHelp(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.get("/admin/help")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	f.login()
	resp, body := f.get("/admin/help")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<h1>Moderating feedback</h1>")
	assert.Contains(t, body, "<code>feedbackd export --dir dataset")
}

func TestSessionCookieIsHardened(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.postForm("/admin", url.Values{
		"username":   {testUser},
		"password":   {testPassword},
		"csrf_token": {f.csrf()},
	})

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)
	assert.Equal(t, "/", session.Path)
}

func TestCommentLines(t *testing.T) {
	assert.Nil(t, commentLines(""))
	assert.Equal(t, []string{"one"}, commentLines("one"))
	assert.Equal(t, []string{"a", "b", "c", ""}, commentLines("a\r\nb\rc\n"))
}

func TestNewFeedbackRow_Stars(t *testing.T) {
	row := newFeedbackRow(&store.FeedbackEntry{ID: 7, Rating: 3, Timestamp: time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)})
	assert.Equal(t, []bool{true, true, true, false, false}, row.Stars)
	assert.Equal(t, "2024-02-03 04:05:06", row.Date)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
