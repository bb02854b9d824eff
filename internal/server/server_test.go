package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/cv-matcher/internal/db"
	"github.com/jonathan/cv-matcher/internal/docx"
	"github.com/jonathan/cv-matcher/internal/extraction"
	"github.com/jonathan/cv-matcher/internal/matching"
	"github.com/jonathan/cv-matcher/internal/server/ratelimit"
	"github.com/jonathan/cv-matcher/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockService struct {
	result     *matching.ProcessResult
	err        error
	gotURL     string
	gotUploads []matching.Upload
	extractErr error
}

func (m *mockService) Process(_ context.Context, listingURL string, uploads []matching.Upload) (*matching.ProcessResult, error) {
	m.gotURL = listingURL
	m.gotUploads = uploads
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockService) Extract(filename string, data []byte) (types.ExtractedProfile, extraction.Report, error) {
	if m.extractErr != nil {
		return types.ExtractedProfile{}, extraction.Report{}, m.extractErr
	}
	return types.ExtractedProfile{Title: filename, Introduction: string(data), Assignments: []types.Assignment{}}, extraction.Report{}, nil
}

func (m *mockService) MaxFiles() int { return matching.DefaultMaxFiles }

type mockStore struct {
	groups    map[uuid.UUID]*db.MatchGroup
	responses map[uuid.UUID]*db.MatchResponse
	err       error
	pingErr   error
	deleted   []uuid.UUID
}

func newMockStore() *mockStore {
	return &mockStore{
		groups:    map[uuid.UUID]*db.MatchGroup{},
		responses: map[uuid.UUID]*db.MatchResponse{},
	}
}

func (m *mockStore) GetMatchGroup(_ context.Context, id uuid.UUID) (*db.MatchGroup, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.groups[id], nil
}

func (m *mockStore) GetMatchResponse(_ context.Context, id uuid.UUID) (*db.MatchResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.responses[id], nil
}

func (m *mockStore) ListMatchGroups(_ context.Context, limit int) ([]db.MatchGroupSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []db.MatchGroupSummary{}
	for _, g := range m.groups {
		if len(out) == limit {
			break
		}
		out = append(out, db.MatchGroupSummary{ID: g.ID, JobListingURL: g.JobListingURL, ResponseCount: len(g.Responses)})
	}
	return out, nil
}

func (m *mockStore) DeleteMatchGroup(_ context.Context, id uuid.UUID) error {
	if _, ok := m.groups[id]; !ok {
		return fmt.Errorf("match group %s: %w", id, db.ErrNotFound)
	}
	delete(m.groups, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockStore) Ping(context.Context) error { return m.pingErr }

func newTestServer(service *mockService, store *mockStore) http.Handler {
	s := New(Config{RateLimit: &ratelimit.Config{Enabled: false}}, service, store, zap.NewNop())
	return s.Handler()
}

type part struct {
	field    string
	filename string
	content  string
}

func multipartBody(t *testing.T, fields map[string]string, files ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func processRequest(t *testing.T, listing string, files ...part) *http.Request {
	fields := map[string]string{}
	if listing != "" {
		fields["job_listing"] = listing
	}
	body, contentType := multipartBody(t, fields, files...)
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	return req
}

const listingURL = "https://app.whoz.com/shared/task/abc"

func TestHealth(t *testing.T) {
	store := newMockStore()
	h := newTestServer(&mockService{}, store)

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	store.pingErr = errors.New("down")
	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", body["status"])
}

func TestProcess_Success(t *testing.T) {
	groupID, m1, m2 := uuid.New(), uuid.New(), uuid.New()
	service := &mockService{result: &matching.ProcessResult{GroupID: groupID, MatchIDs: []uuid.UUID{m1, m2}}}
	h := newTestServer(service, newMockStore())

	rec, body := do(t, h, processRequest(t, listingURL,
		part{"cv_files", "a.docx", "first"},
		part{"cv_files", "b.docx", "second"},
	))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, groupID.String(), body["match_group_id"])
	assert.Equal(t, []any{m1.String(), m2.String()}, body["match_ids"])

	assert.Equal(t, listingURL, service.gotURL)
	require.Len(t, service.gotUploads, 2)
	assert.Equal(t, "a.docx", service.gotUploads[0].Filename)
	assert.Equal(t, []byte("first"), service.gotUploads[0].Data)
	assert.Equal(t, "b.docx", service.gotUploads[1].Filename)
}

func TestProcess_Validation(t *testing.T) {
	tests := []struct {
		name    string
		listing string
		files   []part
		want    string
	}{
		{
			name:  "missing listing",
			files: []part{{"cv_files", "a.docx", "x"}},
			want:  "job_listing - is required",
		},
		{
			name:    "not a url",
			listing: "not a url",
			files:   []part{{"cv_files", "a.docx", "x"}},
			want:    "job_listing - must be a valid URL",
		},
		{
			name:    "listing too long",
			listing: "https://example.com/" + string(bytes.Repeat([]byte("a"), 250)),
			files:   []part{{"cv_files", "a.docx", "x"}},
			want:    "job_listing - must have at most 255 characters",
		},
		{
			name:    "no files",
			listing: listingURL,
			want:    "cv_files - must have at least 1",
		},
		{
			name:    "too many files",
			listing: listingURL,
			files: []part{
				{"cv_files", "1.docx", "x"}, {"cv_files", "2.docx", "x"}, {"cv_files", "3.docx", "x"},
				{"cv_files", "4.docx", "x"}, {"cv_files", "5.docx", "x"}, {"cv_files", "6.docx", "x"},
			},
			want: "cv_files - must have at most 5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &mockService{}
			h := newTestServer(service, newMockStore())

			rec, body := do(t, h, processRequest(t, tt.listing, tt.files...))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, body["error"], tt.want)
			assert.Nil(t, service.gotUploads, "service must not run")
		})
	}
}

func TestProcess_NotMultipart(t *testing.T) {
	h := newTestServer(&mockService{}, newMockStore())
	req := httptest.NewRequest(http.MethodPost, "/process", bytes.NewBufferString(`{"job_listing": "x"}`))
	req.Header.Set("Content-Type", "application/json")

	rec, body := do(t, h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "multipart/form-data")
}

func TestProcess_UploadTooLarge(t *testing.T) {
	s := New(Config{MaxUploadBytes: 1024, RateLimit: &ratelimit.Config{Enabled: false}}, &mockService{}, newMockStore(), zap.NewNop())

	rec, _ := do(t, s.Handler(), processRequest(t, listingURL,
		part{"cv_files", "big.docx", string(bytes.Repeat([]byte("x"), 4096))},
	))
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusRequestEntityTooLarge}, rec.Code)
}

func TestProcess_ServiceFailure(t *testing.T) {
	service := &mockService{err: errors.New("model unavailable")}
	h := newTestServer(service, newMockStore())

	rec, body := do(t, h, processRequest(t, listingURL, part{"cv_files", "a.docx", "x"}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error processing the files.", body["error"])
}

func TestProcess_InvalidDocument(t *testing.T) {
	service := &mockService{err: &matching.FileError{Index: 0, Filename: "notes.txt", Stage: "decode", Err: docx.ErrNotDocx}}
	h := newTestServer(service, newMockStore())

	rec, body := do(t, h, processRequest(t, listingURL, part{"cv_files", "notes.txt", "x"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Error processing the files. notes.txt is not a .docx document.", body["error"])
}

func TestExtract(t *testing.T) {
	h := newTestServer(&mockService{}, newMockStore())

	body, contentType := multipartBody(t, nil, part{"cv_file", "jane.docx", "hello"})
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)

	rec, resp := do(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jane.docx", resp["title"])
	assert.Equal(t, "hello", resp["introduction"])
	assert.Equal(t, []any{}, resp["assignments"])
}

func TestExtract_Errors(t *testing.T) {
	h := newTestServer(&mockService{extractErr: docx.ErrNotDocx}, newMockStore())

	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec, resp := do(t, h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp["error"], "cv_file")

	body, contentType = multipartBody(t, nil, part{"cv_file", "cv.pdf", "%PDF"})
	req = httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec, resp = do(t, h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cv.pdf is not a .docx document", resp["error"])
}

func seedGroup(store *mockStore) (*db.MatchGroup, uuid.UUID) {
	groupID, responseID := uuid.New(), uuid.New()
	response := db.MatchResponse{
		ID:              responseID,
		MatchGroupID:    &groupID,
		Summary:         "Strong Go background",
		PercentageMatch: "85",
		CVName:          "jane.docx",
		JobListingName:  "Go Developer",
		JobListingURL:   listingURL,
		CreatedAt:       time.Now(),
		Skills: []db.MatchSkill{
			{ID: 1, ResponseID: responseID, SkillName: "Go", Reason: "Six years", LevelOfImportance: "MUST HAVE", MatchLabel: "MATCH"},
		},
	}
	group := &db.MatchGroup{ID: groupID, JobListingURL: listingURL, CreatedAt: time.Now(), Responses: []db.MatchResponse{response}}
	store.groups[groupID] = group
	store.responses[responseID] = &response
	return group, responseID
}

func TestGetMatchGroup(t *testing.T) {
	store := newMockStore()
	group, responseID := seedGroup(store)
	h := newTestServer(&mockService{}, store)

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/match_group/"+group.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, group.ID.String(), body["match_group_id"])
	assert.Equal(t, listingURL, body["job_listing_url"])

	matches := body["matches"].([]any)
	require.Len(t, matches, 1)
	m := matches[0].(map[string]any)
	assert.Equal(t, responseID.String(), m["match_id"])
	assert.Equal(t, "jane.docx", m["cv_name"])
	assert.Equal(t, "Strong Go background", m["summary"])
	assert.Equal(t, []any{map[string]any{
		"skill":               "Go",
		"reason":              "Six years",
		"level_of_importance": "MUST HAVE",
		"match_label":         "MATCH",
	}}, m["skills"])
}

func TestGetMatchGroup_NotFound(t *testing.T) {
	h := newTestServer(&mockService{}, newMockStore())
	id := uuid.New()

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/match_group/"+id.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No match group found with ID "+id.String(), body["error"])

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/match_group/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid match group ID", body["error"])
}

func TestGetMatchGroup_StoreError(t *testing.T) {
	store := newMockStore()
	store.err = errors.New("connection refused")
	h := newTestServer(&mockService{}, store)

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/match_group/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, body["error"], "connection refused")
}

func TestGetMatch(t *testing.T) {
	store := newMockStore()
	group, responseID := seedGroup(store)
	h := newTestServer(&mockService{}, store)

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/matches/"+responseID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, responseID.String(), body["match_id"])
	assert.Equal(t, group.ID.String(), body["match_group_id"])
	assert.Equal(t, "Go Developer", body["job_listing_name"])
	assert.Equal(t, "85", body["percentage_match"])

	missing := uuid.New()
	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/matches/"+missing.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No match found with ID "+missing.String(), body["error"])
}

func TestListMatchGroups(t *testing.T) {
	store := newMockStore()
	seedGroup(store)
	seedGroup(store)
	h := newTestServer(&mockService{}, store)

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/match_groups?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/match_groups?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteMatchGroup(t *testing.T) {
	store := newMockStore()
	group, _ := seedGroup(store)
	h := newTestServer(&mockService{}, store)

	rec, _ := do(t, h, httptest.NewRequest(http.MethodDelete, "/match_group/"+group.ID.String(), nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []uuid.UUID{group.ID}, store.deleted)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodDelete, "/match_group/"+group.ID.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProcess_RateLimited(t *testing.T) {
	s := New(Config{RateLimit: &ratelimit.Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		EndpointConfigs: ratelimit.DefaultEndpointConfigs(),
	}}, &mockService{result: &matching.ProcessResult{GroupID: uuid.New()}}, newMockStore(), zap.NewNop())
	defer s.rateLimiter.Stop()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec, _ := do(t, s.Handler(), processRequest(t, listingURL, part{"cv_files", "a.docx", "x"}))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
