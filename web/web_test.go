package web

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thucvatbm/species-catalog/database"
	"github.com/thucvatbm/species-catalog/storage"
	"github.com/thucvatbm/species-catalog/web/job"
	"github.com/thucvatbm/species-catalog/web/service"
)

type testApp struct {
	engine http.Handler
	srv    *httptest.Server
	client *http.Client
	store  *storage.LocalStore
	csrf   string
}

var csrfInput = regexp.MustCompile(`name="csrf_token" value="([A-Za-z0-9]+)"`)

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("CATALOG_DEBUG", "false")
	t.Setenv("METRICS_ENABLED", "true")

	require.NoError(t, database.InitSQLite(filepath.Join(t.TempDir(), "catalog.db")))
	t.Cleanup(func() { _ = database.CloseDB() })

	accounts := service.AccountService{}
	_, err := accounts.Bootstrap("admin", "secret")
	require.NoError(t, err)

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	engine, err := NewServer(store).Handler()
	require.NoError(t, err)

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	app := &testApp{engine: engine, srv: srv, client: client, store: store}

	_, body := app.get(t, "/login")
	m := csrfInput.FindStringSubmatch(body)
	require.Len(t, m, 2)
	app.csrf = m[1]
	return app
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.Get(a.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// postForm posts form with the session's CSRF token unless form sets one.
func (a *testApp) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if _, ok := form["csrf_token"]; !ok {
		form.Set("csrf_token", a.csrf)
	}
	resp, err := a.client.PostForm(a.srv.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (a *testApp) postMultipart(t *testing.T, path string, fields map[string]string, filename string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if _, ok := fields["csrf_token"]; !ok {
		require.NoError(t, w.WriteField("csrf_token", a.csrf))
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	resp, err := a.client.Post(a.srv.URL+path, w.FormDataContentType(), &buf)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp
}

func (a *testApp) login(t *testing.T) {
	t.Helper()
	resp, _ := a.postForm(t, "/login", url.Values{"username": {"admin"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func speciesFields(common string) map[string]string {
	return map[string]string{
		"common_name":     common,
		"scientific_name": "Paphiopedilum",
		"family":          "Orchidaceae",
		"genus":           "",
		"location":        "",
		"status":          "",
		"description":     "",
	}
}

func TestFailedLoginKeepsAnonymous(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.postForm(t, "/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Sai thông tin đăng nhập.")

	_, unknown := app.postForm(t, "/login", url.Values{"username": {"nobody"}, "password": {"wrong"}})
	assert.Contains(t, unknown, "Sai thông tin đăng nhập.")

	resp, _ = app.get(t, "/add")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fadd", resp.Header.Get("Location"))
}

func TestAnonymousMutationsRedirect(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.postForm(t, "/delete/1", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp = app.postMultipart(t, "/add", speciesFields("Lan Hài"), "", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	list, err := (&service.SpeciesService{}).List(context.Background(), service.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMutationsRequireCSRFToken(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.postForm(t, "/login", url.Values{
		"username":   {"admin"},
		"password":   {"secret"},
		"csrf_token": {""},
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	app.login(t)
	ctx := context.Background()
	species := &service.SpeciesService{}
	n, sci, fam := "Lan Hài", "Paphiopedilum", "Orchidaceae"
	created, err := species.Create(ctx, service.SpeciesInput{CommonName: &n, ScientificName: &sci, Family: &fam})
	require.NoError(t, err)

	resp, _ = app.postForm(t, "/delete/"+itoa(created.Id), url.Values{"csrf_token": {"forged"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	fields := speciesFields("Lan Giả")
	fields["csrf_token"] = ""
	resp = app.postMultipart(t, "/add", fields, "", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	list, err := species.List(ctx, service.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.Id, list[0].Id)

	_, body := app.get(t, "/species/"+itoa(created.Id))
	assert.Contains(t, body, `name="csrf_token" value="`+app.csrf+`"`)
}

func TestLoginRedirectsToNext(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.postForm(t, "/login", url.Values{
		"username": {"admin"},
		"password": {"secret"},
		"next":     {"/add"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/add", resp.Header.Get("Location"))

	resp, body := app.get(t, "/add")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Đăng nhập thành công.")

	resp, _ = app.get(t, "/logout")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	resp, _ = app.get(t, "/add")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestLoginIgnoresOffsiteNext(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.postForm(t, "/login", url.Values{
		"username": {"admin"},
		"password": {"secret"},
		"next":     {"//evil.example/"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestCreateEditDeleteFlow(t *testing.T) {
	app := newTestApp(t)
	app.login(t)
	ctx := context.Background()
	species := &service.SpeciesService{}

	resp := app.postMultipart(t, "/add", speciesFields("Lan Hài"), "virus.exe", []byte("MZ"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	list, err := species.List(ctx, service.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	created := list[0]
	assert.NotZero(t, created.Id)
	assert.Equal(t, "Lan Hài", created.CommonName)
	assert.Empty(t, created.ImagePath)

	stored, err := app.store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)

	_, body := app.get(t, "/?q=lan")
	assert.Contains(t, body, "Lan Hài")
	assert.Contains(t, body, "Đã thêm loài mới.")

	fields := speciesFields("Lan Hài Đỏ")
	delete(fields, "description")
	resp = app.postMultipart(t, "/edit/"+itoa(created.Id), fields, "../../Hoa Lan.PNG", []byte("png-bytes"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/species/"+itoa(created.Id), resp.Header.Get("Location"))

	updated, err := species.Get(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, "Lan Hài Đỏ", updated.CommonName)
	assert.Regexp(t, regexp.MustCompile(`^\d{14}_[A-Za-z0-9_.-]+$`), updated.ImagePath)

	resp, body = app.get(t, "/uploads/"+updated.ImagePath)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "png-bytes", body)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp = app.postMultipart(t, "/edit/"+itoa(created.Id), speciesFields("Lan Hài"), "", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	kept, err := species.Get(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, updated.ImagePath, kept.ImagePath)

	resp, _ = app.postForm(t, "/delete/"+itoa(created.Id), nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, err = species.Get(ctx, created.Id)
	assert.ErrorIs(t, err, service.ErrNotFound)

	resp, _ = app.get(t, "/uploads/"+updated.ImagePath)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.postForm(t, "/delete/"+itoa(created.Id), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddKeepsRecordWhenImageNameTaken(t *testing.T) {
	app := newTestApp(t)
	app.login(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i := range 3 {
		name := now.Add(time.Duration(i)*time.Second).Format("20060102150405") + "_lan.png"
		require.NoError(t, app.store.Save(ctx, name, strings.NewReader("old")))
	}

	resp := app.postMultipart(t, "/add", speciesFields("Lan Hài"), "lan.png", []byte("new"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	list, err := (&service.SpeciesService{}).List(ctx, service.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Lan Hài", list[0].CommonName)
	assert.Empty(t, list[0].ImagePath)
}

func TestAddRejectsMissingRequiredFields(t *testing.T) {
	app := newTestApp(t)
	app.login(t)

	fields := speciesFields("   ")
	resp := app.postMultipart(t, "/add", fields, "lan.png", []byte("png"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	stored, err := app.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestDetailNotFound(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.get(t, "/species/999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = app.get(t, "/species/abc")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportCSV(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	species := &service.SpeciesService{}

	for _, name := range []string{"Lan Hài", "Dó bầu"} {
		n, sci, fam := name, "X", "Y"
		_, err := species.Create(ctx, service.SpeciesInput{CommonName: &n, ScientificName: &sci, Family: &fam})
		require.NoError(t, err)
	}

	resp, body := app.get(t, "/export.csv?q=lan&field=common_name")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "attachment; filename=danh_sach_loai.csv", resp.Header.Get("Content-Disposition"))

	lines := strings.Split(strings.TrimSuffix(body, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Tên thường gọi,Tên khoa học,Họ,Chi,Vị trí,Trạng thái,Mô tả,Ảnh", lines[0])
	assert.Equal(t, "Lan Hài,X,Y,,,,,", lines[1])
}

func TestUploadsRejectTraversal(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.store.Save(context.Background(), "x.png", strings.NewReader("x")))

	for _, path := range []string{"/uploads/../x.png", "/uploads/a/../../x.png", "/uploads/missing.png", "/uploads/"} {
		rec := httptest.NewRecorder()
		app.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.get(t, "/")

	resp, body := app.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "catalog_http_requests_total")
}

func TestStopCancelsServerContext(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	s := NewServer(store)
	require.NoError(t, s.ctx.Err())
	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.ctx.Err(), context.Canceled)

	_, err = job.NewOrphanUploadJob(s.ctx, store).Orphans(s.ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
