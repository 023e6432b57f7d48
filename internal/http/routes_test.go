package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftcv/craftcv-api/internal/core"
	"github.com/craftcv/craftcv-api/internal/data"
	"github.com/craftcv/craftcv-api/internal/domain/model"
	apperrors "github.com/craftcv/craftcv-api/internal/errors"
	"github.com/craftcv/craftcv-api/internal/service"
)

// fakeJobRepo is an in-memory JobRepository sufficient for transport tests.
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: map[string]*model.Job{}}
}

func (r *fakeJobRepo) Create(_ context.Context, req *model.SubmitJobRequest) (*model.Job, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	if req.JobID != nil && *req.JobID != "" {
		id = *req.JobID
		if existing, ok := r.jobs[id]; ok {
			return existing, false, nil
		}
	}
	job := &model.Job{
		ID:           id,
		Type:         req.Type,
		Status:       model.JobStatusQueued,
		InputPayload: req.Payload,
		EnqueuedAt:   time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.jobs[id] = job
	return job, true, nil
}

func (r *fakeJobRepo) GetByID(_ context.Context, id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, data.ErrJobNotFound
	}
	return job, nil
}

func (r *fakeJobRepo) ReserveNext(context.Context, model.JobType, int) (*model.Job, error) {
	return nil, model.ErrNoJobsAvailable
}

func (r *fakeJobRepo) WaitForNotification(ctx context.Context, _ model.JobType) error {
	<-ctx.Done()
	return ctx.Err()
}

func (r *fakeJobRepo) Heartbeat(context.Context, string, int) (bool, error) {
	return false, errors.New("not implemented")
}

func (r *fakeJobRepo) Complete(context.Context, string, json.RawMessage) (bool, error) {
	return false, errors.New("not implemented")
}

func (r *fakeJobRepo) Fail(context.Context, string, core.FailJobParams) (model.JobStatus, bool, error) {
	return "", false, errors.New("not implemented")
}

func (r *fakeJobRepo) Cancel(_ context.Context, id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, data.ErrJobNotFound
	}
	if job.Status != model.JobStatusQueued {
		return nil, data.ErrJobNotCancelable
	}
	job.Status = model.JobStatusFailed
	kind := model.ErrorKindCanceled
	msg := "canceled by caller"
	job.ErrorKind = &kind
	job.ErrorMessage = &msg
	return job, nil
}

func (r *fakeJobRepo) Stats(_ context.Context, jobType model.JobType) (*model.JobStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &model.JobStats{}
	for _, job := range r.jobs {
		if job.Type != jobType {
			continue
		}
		switch job.Status {
		case model.JobStatusQueued:
			stats.Queued++
		case model.JobStatusInProgress:
			stats.InProgress++
		case model.JobStatusComplete:
			stats.Complete++
		case model.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (r *fakeJobRepo) StatsByType(ctx context.Context) (map[model.JobType]model.JobStats, error) {
	out := map[model.JobType]model.JobStats{}
	for _, jt := range model.AllJobTypes() {
		stats, err := r.Stats(ctx, jt)
		if err != nil {
			return nil, err
		}
		out[jt] = *stats
	}
	return out, nil
}

func (r *fakeJobRepo) List(_ context.Context, opts *model.JobListOptions) ([]*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Job
	for _, job := range r.jobs {
		if opts.Status != nil && job.Status != *opts.Status {
			continue
		}
		if opts.Type != nil && job.Type != *opts.Type {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

// fakeDocumentRepo is an in-memory DocumentRepository.
type fakeDocumentRepo struct {
	docs map[string]*model.Document
}

func (r *fakeDocumentRepo) Create(_ context.Context, doc *model.Document) (*model.Document, error) {
	r.docs[doc.ID] = doc
	return doc, nil
}

func (r *fakeDocumentRepo) GetByID(_ context.Context, id string) (*model.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, apperrors.NotFound("Document")
	}
	return doc, nil
}

func (r *fakeDocumentRepo) ListByJobID(_ context.Context, jobID string) ([]*model.Document, error) {
	var out []*model.Document
	for _, doc := range r.docs {
		if doc.JobID == jobID {
			out = append(out, doc)
		}
	}
	return out, nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServer struct {
	handler http.Handler
	jobRepo *fakeJobRepo
	docRepo *fakeDocumentRepo
}

func newTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()

	jobRepo := newFakeJobRepo()
	jobs, err := service.NewJobService(service.JobServiceOptions{
		Repo:         jobRepo,
		DefaultLease: 30 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(jobs.StopAllListeners)

	docRepo := &fakeDocumentRepo{docs: map[string]*model.Document{}}
	docs, err := service.NewDocumentService(service.DocumentServiceOptions{Repo: docRepo})
	require.NoError(t, err)

	handler := NewRouter(RouterServices{
		Jobs:      jobs,
		Templates: service.NewTemplateService(),
		Documents: docs,
		DB:        pingFunc(func(context.Context) error { return nil }),
		Redis:     pingFunc(func(context.Context) error { return nil }),
		APIKey:    apiKey,
	})

	return &testServer{handler: handler, jobRepo: jobRepo, docRepo: docRepo}
}

func (s *testServer) do(method, path string, body []byte, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestSubmitJob(t *testing.T) {
	srv := newTestServer(t, "")

	payload := []byte(`{"resume_text":"Experienced VA claims processor with ten years of federal service handling disability ratings and appeals for veterans across multiple regional offices nationwide."}`)
	rec := srv.do(http.MethodPost, "/api/jobs/analyze", payload, "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp model.SubmitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, model.JobStatusQueued, resp.Status)
	assert.Equal(t, "/api/jobs/"+resp.JobID+"/status", resp.StatusURL)
	assert.Equal(t, "/api/jobs/"+resp.JobID+"/result", resp.ResultURL)
	assert.Positive(t, resp.EtaSeconds)
}

func TestSubmitJobIdempotent(t *testing.T) {
	srv := newTestServer(t, "")
	id := uuid.NewString()
	payload := []byte(`{"resume_text":"Veteran service representative experienced in claims development, evidence gathering, and rating decisions for complex disability cases covering over a decade of adjudication work."}`)

	first := srv.do(http.MethodPost, "/api/jobs/analyze?job_id="+id, payload, "")
	require.Equal(t, http.StatusAccepted, first.Code)

	second := srv.do(http.MethodPost, "/api/jobs/analyze?job_id="+id, payload, "")
	require.Equal(t, http.StatusAccepted, second.Code)

	var r1, r2 model.SubmitJobResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &r1))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &r2))
	assert.Equal(t, id, r1.JobID)
	assert.Equal(t, r1.JobID, r2.JobID)
}

func TestSubmitJobRejectsInvalidType(t *testing.T) {
	srv := newTestServer(t, "")
	rec := srv.do(http.MethodPost, "/api/jobs/transcode", []byte(`{"resume_text":"x"}`), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation", body["error"])
}

func TestSubmitJobRejectsEmptyPayload(t *testing.T) {
	srv := newTestServer(t, "")
	rec := srv.do(http.MethodPost, "/api/jobs/analyze", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStatus(t *testing.T) {
	srv := newTestServer(t, "")
	payload := []byte(`{"resume_text":"Program analyst with extensive experience supporting veterans benefits administration through process improvement, reporting automation, and cross functional stakeholder coordination efforts."}`)
	rec := srv.do(http.MethodPost, "/api/jobs/analyze", payload, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	var submitted model.SubmitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	rec = srv.do(http.MethodGet, "/api/jobs/"+submitted.JobID+"/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status model.JobStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, submitted.JobID, status.JobID)
	assert.Equal(t, model.JobTypeAnalyze, status.Type)
	assert.Equal(t, model.JobStatusQueued, status.Status)
	require.NotNil(t, status.EtaSeconds)
	assert.Positive(t, *status.EtaSeconds)
}

func TestGetStatusNotFound(t *testing.T) {
	srv := newTestServer(t, "")
	rec := srv.do(http.MethodGet, "/api/jobs/"+uuid.NewString()+"/status", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetResultNotReady(t *testing.T) {
	srv := newTestServer(t, "")
	payload := []byte(`{"resume_text":"Claims assistant skilled in document intake, triage, evidence tracking, and correspondence management within a high volume regional benefits processing office environment daily."}`)
	rec := srv.do(http.MethodPost, "/api/jobs/analyze", payload, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	var submitted model.SubmitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	rec = srv.do(http.MethodGet, "/api/jobs/"+submitted.JobID+"/result", nil, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body["error"])
	assert.Equal(t, string(model.JobStatusQueued), body["status"])
}

func TestGetResultNotReadyInProgress(t *testing.T) {
	srv := newTestServer(t, "")

	now := time.Now()
	id := uuid.NewString()
	srv.jobRepo.jobs[id] = &model.Job{
		ID:         id,
		Type:       model.JobTypeAnalyze,
		Status:     model.JobStatusInProgress,
		EnqueuedAt: now.Add(-time.Minute),
		StartedAt:  &now,
		UpdatedAt:  now,
	}

	rec := srv.do(http.MethodGet, "/api/jobs/"+id+"/result", nil, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body["error"])
	assert.Equal(t, string(model.JobStatusInProgress), body["status"])
}

func TestGetResultComplete(t *testing.T) {
	srv := newTestServer(t, "")

	now := time.Now()
	id := uuid.NewString()
	srv.jobRepo.jobs[id] = &model.Job{
		ID:            id,
		Type:          model.JobTypeAnalyze,
		Status:        model.JobStatusComplete,
		ResultPayload: json.RawMessage(`{"overall_score":87.5}`),
		EnqueuedAt:    now.Add(-time.Minute),
		CompletedAt:   &now,
		UpdatedAt:     now,
	}

	rec := srv.do(http.MethodGet, "/api/jobs/"+id+"/result", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result model.JobResultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, model.JobStatusComplete, result.Status)
	assert.JSONEq(t, `{"overall_score":87.5}`, string(result.Result))
	assert.Nil(t, result.Error)
}

func TestGetResultFailed(t *testing.T) {
	srv := newTestServer(t, "")

	now := time.Now()
	id := uuid.NewString()
	kind := model.ErrorKindPermanent
	msg := "resume text is too short to analyze"
	srv.jobRepo.jobs[id] = &model.Job{
		ID:           id,
		Type:         model.JobTypeAnalyze,
		Status:       model.JobStatusFailed,
		ErrorKind:    &kind,
		ErrorMessage: &msg,
		EnqueuedAt:   now.Add(-time.Minute),
		CompletedAt:  &now,
		UpdatedAt:    now,
	}

	rec := srv.do(http.MethodGet, "/api/jobs/"+id+"/result", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result model.JobResultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, model.JobStatusFailed, result.Status)
	require.NotNil(t, result.Error)
	assert.Equal(t, model.ErrorKindPermanent, result.Error.Kind)
	assert.Equal(t, msg, result.Error.Message)
	assert.Empty(t, result.Result)
}

func TestCancelQueuedJob(t *testing.T) {
	srv := newTestServer(t, "")
	payload := []byte(`{"resume_text":"Management analyst responsible for workload forecasting, staffing models, and performance dashboards across several veterans benefits processing sites throughout the region today."}`)
	rec := srv.do(http.MethodPost, "/api/jobs/analyze", payload, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	var submitted model.SubmitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	rec = srv.do(http.MethodDelete, "/api/jobs/"+submitted.JobID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, submitted.JobID, body["job_id"])
	assert.Equal(t, string(model.JobStatusFailed), body["status"])
}

func TestCancelRejectsClaimedJob(t *testing.T) {
	srv := newTestServer(t, "")

	id := uuid.NewString()
	srv.jobRepo.jobs[id] = &model.Job{
		ID:         id,
		Type:       model.JobTypeImprove,
		Status:     model.JobStatusInProgress,
		EnqueuedAt: time.Now(),
		UpdatedAt:  time.Now(),
	}

	rec := srv.do(http.MethodDelete, "/api/jobs/"+id, nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestQueueStats(t *testing.T) {
	srv := newTestServer(t, "")
	payload := []byte(`{"resume_text":"Quality review specialist auditing rating decisions for accuracy, consistency, and regulatory compliance while coaching adjudicators on error trends and corrective actions."}`)
	rec := srv.do(http.MethodPost, "/api/jobs/analyze", payload, "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = srv.do(http.MethodGet, "/api/jobs/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats model.QueueStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Total.Queued)
	assert.Equal(t, 1, stats.ByType[model.JobTypeAnalyze].Queued)
}

func TestListJobsFilters(t *testing.T) {
	srv := newTestServer(t, "")

	rec := srv.do(http.MethodGet, "/api/jobs?status=sleeping", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodGet, "/api/jobs?job_type=analyze&limit=10", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 10, body["limit"])
}

func TestTemplateCatalog(t *testing.T) {
	srv := newTestServer(t, "")

	rec := srv.do(http.MethodGet, "/api/templates", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Templates []map[string]any `json:"templates"`
		Count     int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Count)
	assert.Len(t, body.Templates, 4)

	rec = srv.do(http.MethodGet, "/api/templates/modern", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(http.MethodGet, "/api/templates/papyrus", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentDownload(t *testing.T) {
	srv := newTestServer(t, "")

	doc := &model.Document{
		ID:          uuid.NewString(),
		JobID:       uuid.NewString(),
		TemplateID:  model.TemplateModern,
		FileName:    "resume_improved_modern_0c84f1a9.html",
		ContentType: "text/html; charset=utf-8",
		Data:        []byte("<html><body>Jane Smith</body></html>"),
		FileSize:    36,
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	srv.docRepo.docs[doc.ID] = doc

	rec := srv.do(http.MethodGet, "/api/documents/"+doc.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, doc.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), doc.FileName)
	assert.Contains(t, rec.Body.String(), "Jane Smith")
}

func TestDocumentDownloadExpired(t *testing.T) {
	srv := newTestServer(t, "")

	doc := &model.Document{
		ID:          uuid.NewString(),
		JobID:       uuid.NewString(),
		TemplateID:  model.TemplateModern,
		FileName:    "resume_improved_modern_11aabbcc.html",
		ContentType: "text/html; charset=utf-8",
		Data:        []byte("<html></html>"),
		FileSize:    13,
		CreatedAt:   time.Now().Add(-48 * time.Hour),
		ExpiresAt:   time.Now().Add(-time.Hour),
	}
	srv.docRepo.docs[doc.ID] = doc

	rec := srv.do(http.MethodGet, "/api/documents/"+doc.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	srv := newTestServer(t, "sekrit")

	rec := srv.do(http.MethodGet, "/api/jobs/stats", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(http.MethodGet, "/api/jobs/stats", nil, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(http.MethodGet, "/api/jobs/stats", nil, "sekrit")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open for probes.
	rec = srv.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthDegraded(t *testing.T) {
	jobRepo := newFakeJobRepo()
	jobs, err := service.NewJobService(service.JobServiceOptions{
		Repo:         jobRepo,
		DefaultLease: 30 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(jobs.StopAllListeners)

	docs, err := service.NewDocumentService(service.DocumentServiceOptions{
		Repo: &fakeDocumentRepo{docs: map[string]*model.Document{}},
	})
	require.NoError(t, err)

	handler := NewRouter(RouterServices{
		Jobs:      jobs,
		Templates: service.NewTemplateService(),
		Documents: docs,
		DB:        pingFunc(func(context.Context) error { return nil }),
		Redis:     pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.Equal(t, "unreachable", body.Checks["redis"])
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, "")

	rec := srv.do(http.MethodGet, "/health", nil, "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc123")
	echo := httptest.NewRecorder()
	srv.handler.ServeHTTP(echo, req)
	assert.Equal(t, "abc123", echo.Header().Get("X-Request-Id"))
}
