package api_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/haydenm/screenvault/internal/api"
	"github.com/haydenm/screenvault/internal/database"
	"github.com/haydenm/screenvault/internal/library"
	"github.com/haydenm/screenvault/internal/movie"
	"github.com/haydenm/screenvault/internal/uploads"
	"github.com/haydenm/screenvault/internal/user"
	"github.com/haydenm/screenvault/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetMinLoggingLevel(logger.ERROR.Level())
}

const (
	testAdminUsername = "admin"
	testAdminPassword = "password"
)

var movieLinkPattern = regexp.MustCompile(`/movie/([0-9a-f-]{36})`)

// harness drives the fully wired gateway in-process: real sqlite store, real
// file storage in a temp dir, real session provider. Cookies are carried
// between requests manually, standing in for the browser.
type harness struct {
	t       *testing.T
	gateway *api.Gateway
	cookies map[string]*http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := database.New()
	require.NoError(t, db.Connect(database.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")}))
	t.Cleanup(func() { db.GetSqlxDb().Close() })

	files, err := uploads.NewStore(t.TempDir())
	require.NoError(t, err)

	admin, err := user.NewAdmin(testAdminUsername, testAdminPassword)
	require.NoError(t, err)

	libraryService := library.New(db, movie.NewStore(), files, []string{"mp4", "mkv", "mov", "srt"})
	gateway, err := api.NewGateway(
		&api.GatewayConfig{HostAddr: "127.0.0.1:0"},
		libraryService,
		files,
		admin,
		[]byte("test-session-secret"),
	)
	require.NoError(t, err)

	return &harness{t: t, gateway: gateway, cookies: make(map[string]*http.Cookie)}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	h.t.Helper()

	for _, cookie := range h.cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	h.gateway.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(h.cookies, cookie.Name)
			continue
		}
		h.cookies[cookie.Name] = cookie
	}

	return rec
}

func (h *harness) get(path string) *httptest.ResponseRecorder {
	return h.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (h *harness) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req)
}

type filePart struct {
	field    string
	filename string
	contents string
}

func (h *harness) postMultipart(path string, fields map[string]string, files ...filePart) *httptest.ResponseRecorder {
	h.t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for field, value := range fields {
		require.NoError(h.t, writer.WriteField(field, value))
	}
	for _, file := range files {
		part, err := writer.CreateFormFile(file.field, file.filename)
		require.NoError(h.t, err)
		_, err = io.WriteString(part, file.contents)
		require.NoError(h.t, err)
	}
	require.NoError(h.t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return h.do(req)
}

func (h *harness) login(t *testing.T) {
	t.Helper()

	rec := h.postForm("/login", url.Values{"username": {testAdminUsername}, "password": {testAdminPassword}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin", rec.Header().Get("Location"))
	require.Contains(t, h.cookies, api.SessionTokenCookieName)
}

func (h *harness) uploadMovie(t *testing.T, title string, description string, filename string, contents string) {
	t.Helper()

	rec := h.postMultipart("/admin",
		map[string]string{"title": title, "description": description},
		filePart{field: "movie_file", filename: filename, contents: contents},
	)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin", rec.Header().Get("Location"))
}

func Test_MovieList_EmptyLibrary(t *testing.T) {
	h := newHarness(t)

	rec := h.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No movies have been uploaded yet")
}

func Test_GuardedRoutes_RedirectToLoginWithoutSession(t *testing.T) {
	h := newHarness(t)

	guarded := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/admin", nil),
		httptest.NewRequest(http.MethodPost, "/admin", nil),
		httptest.NewRequest(http.MethodPost, "/admin/delete/"+uuid.NewString(), nil),
		httptest.NewRequest(http.MethodGet, "/logout", nil),
	}

	for _, req := range guarded {
		rec := h.do(req)
		assert.Equal(t, http.StatusSeeOther, rec.Code, "%s %s should redirect", req.Method, req.URL.Path)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	}
}

func Test_Login_InvalidCredentials(t *testing.T) {
	h := newHarness(t)

	rec := h.postForm("/login", url.Values{"username": {"admin"}, "password": {"hunter2"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.NotContains(t, h.cookies, api.SessionTokenCookieName, "no session may be established on a failed login")

	// The rejection shows up exactly once on the next rendered page
	rec = h.get("/login")
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
	rec = h.get("/login")
	assert.NotContains(t, rec.Body.String(), "Invalid credentials")
}

func Test_Login_ValidCredentialsGrantAdminAccess(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	rec := h.get("/admin")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upload")
}

func Test_Logout_RevokesSession(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	sessionCookie := h.cookies[api.SessionTokenCookieName]

	rec := h.get("/logout")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	// Even replaying the old cookie must not get past the guard
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(sessionCookie)
	rec = httptest.NewRecorder()
	h.gateway.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func Test_UploadFlow_EndToEnd(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.uploadMovie(t, "Primer", "Low budget time travel", "primer.mp4", "movie bytes")

	rec := h.get("/admin")
	assert.Contains(t, rec.Body.String(), "Movie uploaded successfully")

	// The new movie is listed publicly with a working detail page
	rec = h.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	match := movieLinkPattern.FindStringSubmatch(rec.Body.String())
	require.NotNil(t, match, "list page should link to the new movie")

	rec = h.get("/movie/" + match[1])
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Primer")
	assert.Contains(t, rec.Body.String(), "Low budget time travel")

	// The stored file serves back the exact uploaded bytes
	fileLink := regexp.MustCompile(`/uploads/[0-9a-f-]{36}\.mp4`).FindString(rec.Body.String())
	require.NotEmpty(t, fileLink)

	rec = h.get(fileLink)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "movie bytes", rec.Body.String())
}

func Test_Upload_DisallowedExtensionChangesNothing(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	rec := h.postMultipart("/admin",
		map[string]string{"title": "Malware", "description": "Definitely a movie"},
		filePart{field: "movie_file", filename: "movie.exe", contents: "MZ"},
	)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = h.get("/admin")
	assert.Contains(t, rec.Body.String(), "File type is not allowed")

	rec = h.get("/")
	assert.Contains(t, rec.Body.String(), "No movies have been uploaded yet")
}

func Test_Upload_InvalidMetadataChangesNothing(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	// An over-long description fails validation just like a missing title does
	rec := h.postMultipart("/admin",
		map[string]string{"title": "Primer", "description": strings.Repeat("a", 501)},
		filePart{field: "movie_file", filename: "primer.mp4", contents: "movie bytes"},
	)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = h.get("/admin")
	assert.Contains(t, rec.Body.String(), "Invalid movie details")

	rec = h.get("/")
	assert.Contains(t, rec.Body.String(), "No movies have been uploaded yet")
}

func Test_Upload_MissingMovieFilePart(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	rec := h.postMultipart("/admin", map[string]string{"title": "Primer", "description": "Time travel"})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = h.get("/admin")
	assert.Contains(t, rec.Body.String(), "No movie file uploaded")

	rec = h.get("/")
	assert.Contains(t, rec.Body.String(), "No movies have been uploaded yet")
}

func Test_Delete_RemovesRecordAndFile(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.uploadMovie(t, "Primer", "Time travel", "primer.mp4", "movie bytes")

	rec := h.get("/")
	match := movieLinkPattern.FindStringSubmatch(rec.Body.String())
	require.NotNil(t, match)
	movieID := match[1]

	rec = h.get("/movie/" + movieID)
	fileLink := regexp.MustCompile(`/uploads/[0-9a-f-]{36}\.mp4`).FindString(rec.Body.String())
	require.NotEmpty(t, fileLink)

	rec = h.do(httptest.NewRequest(http.MethodPost, "/admin/delete/"+movieID, nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = h.get("/admin")
	assert.Contains(t, rec.Body.String(), "Movie and associated files deleted successfully")

	assert.Equal(t, http.StatusNotFound, h.get("/movie/"+movieID).Code)
	assert.Equal(t, http.StatusNotFound, h.get(fileLink).Code)
}

func Test_Delete_UnknownMovie(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	rec := h.do(httptest.NewRequest(http.MethodPost, "/admin/delete/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(httptest.NewRequest(http.MethodPost, "/admin/delete/not-a-uuid", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_MovieDetail_UnknownID(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusNotFound, h.get("/movie/"+uuid.NewString()).Code)
	assert.Equal(t, http.StatusNotFound, h.get("/movie/42").Code)
}

func Test_ServeFile_UnknownFilename(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusNotFound, h.get("/uploads/never-stored.mp4").Code)
}
