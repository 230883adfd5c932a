package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patient-feedback-server/internal/cache"
	"github.com/patient-feedback-server/internal/charts"
	"github.com/patient-feedback-server/internal/domain"
	"github.com/patient-feedback-server/internal/service"
	"github.com/patient-feedback-server/internal/session"
	"github.com/patient-feedback-server/internal/store"
)

type fixture struct {
	server *Server
	store  *store.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cfg := &domain.Config{
		Server: domain.ServerConfig{
			MaxBodyBytes:   16 << 20,
			RequestTimeout: time.Minute,
		},
		Session: domain.SessionConfig{
			CookieName: "feedback_session",
			TTL:        time.Hour,
		},
		Charts: domain.ChartsConfig{
			OutputDir:   t.TempDir(),
			SnapshotTTL: time.Millisecond,
		},
		RateLimit: domain.RateLimitConfig{Enabled: false},
		Logging:   domain.LoggingConfig{Level: "error"},
	}

	recordStore := store.NewMemoryStore()
	server := NewServer(cfg, Deps{
		Intake:    service.NewIntakeService(recordStore, cache.NewMemoryCache(), session.NewMemoryStore(), logger),
		Aggregate: service.NewAggregationService(recordStore, cfg.Charts.SnapshotTTL, logger),
		Admin:     service.NewAdminService(recordStore, logger),
		Renderer:  charts.NewFileRenderer(cfg.Charts.OutputDir),
		Cookies:   session.NewCookies(cfg.Session),
	}, logger)
	t.Cleanup(func() { _ = server.Close() })

	return &fixture{server: server, store: recordStore}
}

func (f *fixture) post(t *testing.T, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.server.Router().ServeHTTP(w, req)
	return w
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	f.server.Router().ServeHTTP(w, req)
	return w
}

func feedbackForm(patientID string) url.Values {
	form := url.Values{}
	form.Set("patient_id", patientID)
	form.Set("name", "Jordan Lee")
	form.Set("age", "42")
	form.Set("email", "jordan@example.com")
	form.Set("date", "2026-08-14")
	for _, field := range domain.RatingFields {
		form.Set(field, "4")
	}
	for _, field := range domain.BinaryFields {
		form.Set(field, "yes")
	}
	form.Set("other_comments", "fine")
	return form
}

func TestFeedbackSubmit_Success(t *testing.T) {
	f := newFixture(t)

	w := f.post(t, "/feedback", feedbackForm("17"))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/feedback_thankyou", w.Header().Get("Location"))

	rec, err := f.store.FindByPatientID(context.Background(), 17)
	require.NoError(t, err)
	assert.Equal(t, "Jordan Lee", rec.Name)
}

func TestFeedbackSubmit_DuplicateAcrossSessions(t *testing.T) {
	f := newFixture(t)

	first := f.post(t, "/feedback", feedbackForm("17"))
	require.Equal(t, http.StatusSeeOther, first.Code)

	// Fresh request, no cookie: a different browser session. The store
	// check still rejects the reused patient id.
	second := f.post(t, "/feedback", feedbackForm("17"))
	assert.Equal(t, http.StatusSeeOther, second.Code)
	assert.Equal(t, "/feedback_error", second.Header().Get("Location"))

	n, err := f.store.Count(context.Background(), domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFeedbackSubmit_DuplicateSameSession(t *testing.T) {
	f := newFixture(t)

	first := f.post(t, "/feedback", feedbackForm("17"))
	require.Equal(t, http.StatusSeeOther, first.Code)
	cookies := first.Result().Cookies()
	require.NotEmpty(t, cookies)

	// Same session, different patient id: any prior marker rejects
	second := f.post(t, "/feedback", feedbackForm("18"), cookies...)
	assert.Equal(t, "/feedback_error", second.Header().Get("Location"))
}

func TestFeedbackSubmit_ValidationError(t *testing.T) {
	f := newFixture(t)

	form := feedbackForm("17")
	form.Set("age", "forty")

	w := f.post(t, "/feedback", form)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error domain.ValidationError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "age", body.Error.Field)
}

func TestManage_ShowRoundTrip(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusSeeOther, f.post(t, "/feedback", feedbackForm("17")).Code)

	form := url.Values{}
	form.Set("show", "")
	form.Set("patient_id", "17")

	w := f.post(t, "/manage", form)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		SearchCriteria string                  `json:"search_criteria"`
		Entries        []domain.FeedbackRecord `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "patient_id: 17", body.SearchCriteria)
	require.Len(t, body.Entries, 1)
	assert.Equal(t, 17, body.Entries[0].PatientID)
	assert.Equal(t, "Jordan Lee", body.Entries[0].Name)
	assert.Equal(t, 42, body.Entries[0].Age)
}

func TestManage_UpdateSparse(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusSeeOther, f.post(t, "/feedback", feedbackForm("5")).Code)

	form := url.Values{}
	form.Set("update", "")
	form.Set("patient_id", "5")
	form.Set("name", "")
	form.Set("age", "40")

	w := f.post(t, "/manage", form)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "successfully updated")

	rec, err := f.store.FindByPatientID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 40, rec.Age)
	assert.Equal(t, "Jordan Lee", rec.Name)
}

func TestManage_UpdateNothingToDo(t *testing.T) {
	f := newFixture(t)

	form := url.Values{}
	form.Set("update", "")

	w := f.post(t, "/manage", form)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid operation: Nothing to update.")
}

func TestManage_DeleteMissing(t *testing.T) {
	f := newFixture(t)

	form := url.Values{}
	form.Set("delete", "")
	form.Set("patient_id", "404")

	w := f.post(t, "/manage", form)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to delete entry with Patient ID 404.")
}

func TestManage_Delete(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusSeeOther, f.post(t, "/feedback", feedbackForm("9")).Code)

	form := url.Values{}
	form.Set("delete", "")
	form.Set("patient_id", "9")

	w := f.post(t, "/manage", form)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "successfully deleted")

	_, err := f.store.FindByPatientID(context.Background(), 9)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBarGraphs_ReturnsArtifacts(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusSeeOther, f.post(t, "/feedback", feedbackForm("1")).Code)

	w := f.get(t, "/bargraphs")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Title  string   `json:"title"`
		Images []string `json:"images"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	// 9 rating charts plus the yes and no series
	assert.Len(t, body.Images, 11)
	assert.Equal(t, "Bar Graph Analysis (Total Ratings = 9)", body.Title)
}

func TestPieCharts_ReturnsArtifacts(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusSeeOther, f.post(t, "/feedback", feedbackForm("1")).Code)

	w := f.get(t, "/piecharts")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Title  string   `json:"title"`
		Total  int64    `json:"total"`
		Images []string `json:"images"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	// 9 rating charts plus one chart per binary field
	assert.Len(t, body.Images, 14)
	// 9 ratings over 9 fields floors to 1
	assert.Equal(t, int64(1), body.Total)
}

func TestOverallBarGraphs_ReturnsSevenSeries(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusSeeOther, f.post(t, "/feedback", feedbackForm("1")).Code)

	w := f.get(t, "/overall_bargraphs")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Images []string `json:"images"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Images, 7)
}

// hangingStore blocks every read until the request context expires, as
// an unreachable backend would.
type hangingStore struct {
	*store.MemoryStore
}

func (s *hangingStore) Find(ctx context.Context, _ domain.Filter) ([]domain.FeedbackRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestBarGraphs_SlowStoreTimesOut(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cfg := &domain.Config{
		Server: domain.ServerConfig{
			MaxBodyBytes:   16 << 20,
			RequestTimeout: 20 * time.Millisecond,
		},
		Session: domain.SessionConfig{CookieName: "feedback_session", TTL: time.Hour},
		Charts:  domain.ChartsConfig{OutputDir: t.TempDir(), SnapshotTTL: time.Millisecond},
		Logging: domain.LoggingConfig{Level: "error"},
	}

	slow := &hangingStore{MemoryStore: store.NewMemoryStore()}
	server := NewServer(cfg, Deps{
		Intake:    service.NewIntakeService(slow, cache.NewMemoryCache(), session.NewMemoryStore(), logger),
		Aggregate: service.NewAggregationService(slow, cfg.Charts.SnapshotTTL, logger),
		Admin:     service.NewAdminService(slow, logger),
		Renderer:  charts.NewFileRenderer(cfg.Charts.OutputDir),
		Cookies:   session.NewCookies(cfg.Session),
	}, logger)
	t.Cleanup(func() { _ = server.Close() })

	req := httptest.NewRequest(http.MethodGet, "/bargraphs", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "request timeout")
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
