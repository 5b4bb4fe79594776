package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/cppla/viewlog/config"
	"github.com/cppla/viewlog/middleware"
	"github.com/cppla/viewlog/models"
	"github.com/cppla/viewlog/report"
	"github.com/cppla/viewlog/utils"
)

type listResponse struct {
	Code int `json:"code"`
	Data struct {
		Start string `json:"start"`
		End   string `json:"end"`
		Total int    `json:"total"`
		Items []struct {
			ID          uint   `json:"id"`
			TS          string `json:"ts"`
			Affiliation string `json:"affiliation"`
			Name        string `json:"name"`
		} `json:"items"`
	} `json:"data"`
}

func setupRouter(t *testing.T, mutate func(c *config.AppConfig)) (*gin.Engine, *gorm.DB) {
	t.Helper()
	dir := t.TempDir()
	c := config.AppConfig{
		GinMode:            "test",
		DBDriver:           "sqlite",
		DBPath:             filepath.Join(dir, "views.sqlite3"),
		LogLevel:           "silent",
		MediaDir:           dir,
		VideoPath:          filepath.Join(dir, "TNG01.mp4"),
		PDFFontPath:        filepath.Join(dir, "missing.ttf"),
		RateLimitPerMinute: 10000,
	}
	if mutate != nil {
		mutate(&c)
	}
	config.Override(c)

	db, err := config.OpenDatabase(config.Get(), &models.ViewRecord{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	reports := report.NewGenerator(report.Options{FontPath: config.Get().PDFFontPath})
	return SetupRouter(db, reports), db
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func seed(t *testing.T, db *gorm.DB, records ...models.ViewRecord) {
	t.Helper()
	for i := range records {
		require.NoError(t, db.Create(&records[i]).Error)
	}
}

func at(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, config.Location())
}

func TestSubmitPersistsRecordWithinRequestWindow(t *testing.T) {
	r, db := setupRouter(t, nil)
	affiliation := config.DefaultAffiliations[1]

	before := time.Now().Truncate(time.Second)
	w := serve(r, postForm("/submit", url.Values{"affiliation": {affiliation}, "name": {"  山田   太郎 "}}))
	after := time.Now()

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/submitted", w.Header().Get("Location"))

	var records []models.ViewRecord
	require.NoError(t, db.Find(&records).Error)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, affiliation, rec.Affiliation)
	assert.Equal(t, "山田 太郎", rec.Name)
	assert.False(t, rec.Timestamp.Before(before), "ts %s before %s", rec.Timestamp, before)
	assert.False(t, rec.Timestamp.After(after), "ts %s after %s", rec.Timestamp, after)

	_, offset := rec.Timestamp.In(config.Location()).Zone()
	assert.Equal(t, 9*60*60, offset)
}

func TestSubmitStripsMarkup(t *testing.T) {
	r, db := setupRouter(t, nil)

	w := serve(r, postForm("/submit", url.Values{
		"affiliation": {config.DefaultAffiliations[0]},
		"name":        {"<script>alert(1)</script><b>Taro</b> Sato"},
	}))
	require.Equal(t, http.StatusSeeOther, w.Code)

	var rec models.ViewRecord
	require.NoError(t, db.First(&rec).Error)
	assert.Equal(t, "Taro Sato", rec.Name)
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	cases := map[string]url.Values{
		"unknown affiliation": {"affiliation": {"elsewhere"}, "name": {"Taro"}},
		"missing affiliation": {"name": {"Taro"}},
		"missing name":        {"affiliation": {config.DefaultAffiliations[0]}},
		"blank name":          {"affiliation": {config.DefaultAffiliations[0]}, "name": {"   "}},
		"name too long":       {"affiliation": {config.DefaultAffiliations[0]}, "name": {strings.Repeat("a", 65)}},
	}
	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			r, db := setupRouter(t, nil)

			w := serve(r, postForm("/submit", form))
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var count int64
			require.NoError(t, db.Model(&models.ViewRecord{}).Count(&count).Error)
			assert.Zero(t, count)
		})
	}
}

func seedFebruary(t *testing.T, db *gorm.DB) {
	seed(t, db,
		models.ViewRecord{Timestamp: at(2025, 2, 28, 23, 59, 59), Affiliation: "A", Name: "charlie-in"},
		models.ViewRecord{Timestamp: at(2025, 1, 31, 23, 59, 59), Affiliation: "A", Name: "delta-out"},
		models.ViewRecord{Timestamp: at(2025, 2, 10, 12, 0, 0), Affiliation: "B", Name: "bravo-in"},
		models.ViewRecord{Timestamp: at(2025, 3, 1, 0, 0, 0), Affiliation: "A", Name: "echo-out"},
		models.ViewRecord{Timestamp: at(2025, 2, 1, 0, 0, 0), Affiliation: "B", Name: "alpha-in"},
	)
}

func TestListReturnsRangeAscending(t *testing.T) {
	r, db := setupRouter(t, nil)
	seedFebruary(t, db)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/views?start=2025-02-01&end=2025-02-28", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Code)
	assert.Equal(t, "2025-02-01", body.Data.Start)
	assert.Equal(t, "2025-02-28", body.Data.End)
	require.Equal(t, 3, body.Data.Total)

	names := []string{}
	for _, it := range body.Data.Items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"alpha-in", "bravo-in", "charlie-in"}, names)
	assert.Equal(t, "2025-02-01T00:00:00+09:00", body.Data.Items[0].TS)
}

func TestListSingleDay(t *testing.T) {
	r, db := setupRouter(t, nil)
	seedFebruary(t, db)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/views?start=2025-02-10&end=2025-02-10", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, "bravo-in", body.Data.Items[0].Name)
}

func TestListRangeIgnoresWriterZone(t *testing.T) {
	r, db := setupRouter(t, nil)
	// 2025-02-01 00:30 JST written as UTC, and 2025-01-31 23:30 JST written in JST
	seed(t, db,
		models.ViewRecord{Timestamp: time.Date(2025, 1, 31, 15, 30, 0, 0, time.UTC), Affiliation: "A", Name: "inside-utc"},
		models.ViewRecord{Timestamp: at(2025, 1, 31, 23, 30, 0), Affiliation: "A", Name: "outside-jst"},
		models.ViewRecord{Timestamp: time.Date(2025, 2, 1, 15, 0, 0, 0, time.UTC), Affiliation: "A", Name: "next-day-utc"},
	)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/views?start=2025-02-01&end=2025-02-01", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, "inside-utc", body.Data.Items[0].Name)
	assert.Equal(t, "2025-02-01T00:30:00+09:00", body.Data.Items[0].TS)
}

func TestSubmitStoresUTC(t *testing.T) {
	r, db := setupRouter(t, nil)
	w := serve(r, postForm("/submit", url.Values{"affiliation": {config.DefaultAffiliations[0]}, "name": {"Taro"}}))
	require.Equal(t, http.StatusSeeOther, w.Code)

	var raw string
	require.NoError(t, db.Raw("SELECT CAST(ts AS TEXT) FROM views LIMIT 1").Scan(&raw).Error)
	assert.True(t, strings.HasSuffix(raw, "+00:00"), "stored %q", raw)
}

func TestListRejectsBadRange(t *testing.T) {
	r, _ := setupRouter(t, nil)

	for _, q := range []string{"start=2025-02-02&end=2025-02-01", "start=02/01/2025&end=2025-02-01", "end=2025-02-01"} {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/views?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestPreviewShowsRowsInOrder(t *testing.T) {
	r, db := setupRouter(t, nil)
	seedFebruary(t, db)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/admin/preview?start=2025-02-01&end=2025-02-28", nil))
	require.Equal(t, http.StatusOK, w.Code)

	html := w.Body.String()
	assert.NotContains(t, html, "delta-out")
	assert.NotContains(t, html, "echo-out")
	assert.NotContains(t, html, report.PlaceholderText)

	first := strings.Index(html, "alpha-in")
	middle := strings.Index(html, "bravo-in")
	late := strings.Index(html, "charlie-in")
	require.True(t, first > 0 && middle > 0 && late > 0)
	assert.Less(t, first, middle)
	assert.Less(t, middle, late)
	assert.Contains(t, html, "2025-02-10 12:00")
}

func TestPreviewEmptyRangeShowsPlaceholder(t *testing.T) {
	r, db := setupRouter(t, nil)
	seedFebruary(t, db)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/admin/preview?start=2024-06-01&end=2024-06-30", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), report.PlaceholderText)
}

func TestPreviewRejectsStartAfterEnd(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/admin/preview?start=2025-03-01&end=2025-02-01", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "開始日が終了日より後です。")
}

func TestExportReturnsPDFAttachment(t *testing.T) {
	r, db := setupRouter(t, nil)
	seedFebruary(t, db)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/admin/export?start=2025-02-01&end=2025-02-28", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="view-log_2025-02-01_2025-02-28.pdf"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))
}

func TestExportEmptyRangeStillRenders(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/admin/export?start=2025-02-01&end=2025-02-01", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))
}

func TestExportBadRangeIsPlainText(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/admin/export?start=2025-02-05&end=2025-02-01", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, w.Body.String(), "PDF出力でエラーが発生しました")
}

func TestAdminPageDefaultsToMonthToDate(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.Equal(t, http.StatusOK, w.Code)

	now := time.Now().In(config.Location())
	assert.Contains(t, w.Body.String(), now.Format("2006-01")+"-01")
	assert.Contains(t, w.Body.String(), now.Format("2006-01-02"))
}

func TestPages(t *testing.T) {
	r, _ := setupRouter(t, nil)

	for _, path := range []string{"/", "/watch", "/submitted"} {
		w := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), config.Get().AppTitle, path)
	}

	w := serve(r, httptest.NewRequest(http.MethodGet, "/watch", nil))
	for _, a := range config.DefaultAffiliations {
		assert.Contains(t, w.Body.String(), a)
	}
}

func TestVideo(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/video", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "動画ファイルが見つかりません。")

	require.NoError(t, os.WriteFile(config.Get().VideoPath, []byte("fake mp4 bytes"), 0o644))
	w = serve(r, httptest.NewRequest(http.MethodGet, "/video", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Equal(t, "fake mp4 bytes", w.Body.String())
}

func TestFaviconAndHealth(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/x-icon", w.Header().Get("Content-Type"))
	assert.Zero(t, w.Body.Len())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":0,"message":"success","data":{"status":"ok"}}`, w.Body.String())
}

func TestMetricsExposesCounters(t *testing.T) {
	r, _ := setupRouter(t, nil)
	serve(r, postForm("/submit", url.Values{"affiliation": {config.DefaultAffiliations[0]}, "name": {"Taro"}}))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "viewlog_views_recorded_total")
	assert.Contains(t, w.Body.String(), `route="/submit"`)
}

func TestAccessLogCarriesRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := utils.Logger
	utils.Logger = zap.New(core)
	t.Cleanup(func() { utils.Logger = prev })

	r, _ := setupRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "7c9e6679-7425-40de-944b-e07fc1f90ae7")
	serve(r, req)

	entries := logs.FilterMessage("/health").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "7c9e6679-7425-40de-944b-e07fc1f90ae7", fields["request_id"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestRequestIDEchoed(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "2f1d3c1a-5b7e-4c55-9d0f-0a1b2c3d4e5f")
	w = serve(r, req)
	assert.Equal(t, "2f1d3c1a-5b7e-4c55-9d0f-0a1b2c3d4e5f", w.Header().Get(middleware.RequestIDHeader))
}

func TestNoRoute(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "api route not found")

	w = serve(r, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminLoginFlow(t *testing.T) {
	hash, err := utils.HashPassword("s3cret")
	require.NoError(t, err)
	r, _ := setupRouter(t, func(c *config.AppConfig) {
		c.AdminPasswordHash = hash
		c.JWTSecret = "test-secret"
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin/login", w.Header().Get("Location"))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/views?start=2025-02-01&end=2025-02-28", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, postForm("/admin/login", url.Values{"password": {"wrong"}}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, postForm("/admin/login", url.Values{"password": {"s3cret"}}))
	require.Equal(t, http.StatusSeeOther, w.Code)
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.AdminCookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(session)
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/export?start=2025-02-01&end=2025-02-28", nil)
	req.AddCookie(session)
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AdminCookieName, Value: "forged"})
	w = serve(r, req)
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestAdminLoginSkippedWhenOpen(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin", w.Header().Get("Location"))
}
