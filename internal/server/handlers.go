package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/cv-matcher/internal/db"
	"github.com/jonathan/cv-matcher/internal/matching"
	"github.com/jonathan/cv-matcher/internal/server/middleware"
	"go.uber.org/zap"
)

// processFailedMessage is returned for any non-validation /process failure
const processFailedMessage = "Error processing the files."

// ProcessRequest is the validated form of a /process upload
type ProcessRequest struct {
	JobListing string `validate:"required,http_url,max=255"`
	Files      []*multipart.FileHeader
}

// SkillResponse is one skill verdict
type SkillResponse struct {
	Skill             string `json:"skill"`
	Reason            string `json:"reason"`
	LevelOfImportance string `json:"level_of_importance"`
	MatchLabel        string `json:"match_label"`
}

// MatchSummary is one CV's verdict inside a match group
type MatchSummary struct {
	MatchID         uuid.UUID       `json:"match_id"`
	CVName          string          `json:"cv_name"`
	Summary         string          `json:"summary"`
	PercentageMatch string          `json:"percentage_match,omitempty"`
	Skills          []SkillResponse `json:"skills"`
}

// MatchGroupResponse is the response for GET /match_group/{id}
type MatchGroupResponse struct {
	MatchGroupID  uuid.UUID      `json:"match_group_id"`
	JobListingURL string         `json:"job_listing_url"`
	CreatedAt     time.Time      `json:"created_at"`
	Matches       []MatchSummary `json:"matches"`
}

// MatchResponse is the response for GET /matches/{id}
type MatchResponse struct {
	MatchSummary
	MatchGroupID   *uuid.UUID `json:"match_group_id"`
	JobListingName string     `json:"job_listing_name"`
	JobListingURL  string     `json:"job_listing_url"`
	CreatedAt      time.Time  `json:"created_at"`
}

// handleProcess matches uploaded CVs against a job listing
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)

	form, err := s.parseMultipart(w, r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	defer func() { _ = form.RemoveAll() }()

	req := ProcessRequest{
		JobListing: first(form.Value["job_listing"]),
		Files:      form.File["cv_files"],
	}
	if err := s.validateProcess(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	uploads, err := readUploads(req.Files)
	if err != nil {
		log.Error("failed to read uploads", zap.Error(err))
		s.errorResponse(w, http.StatusBadRequest, "Invalid file upload")
		return
	}

	result, err := s.service.Process(r.Context(), req.JobListing, uploads)
	if err != nil {
		status := HTTPStatus(err)
		log.Error("processing failed", zap.Int("status", status), zap.Error(err))
		if status == http.StatusBadRequest {
			s.errorResponse(w, status, processFailedMessage+" "+describeFileError(err))
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, processFailedMessage)
		return
	}

	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) validateProcess(req ProcessRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return validationError("job_listing", err)
	}
	limit := s.service.MaxFiles()
	if err := s.validate.Var(req.Files, fmt.Sprintf("min=1,max=%d", limit)); err != nil {
		return validationError("cv_files", err)
	}
	return nil
}

// handleExtract returns the redacted profile of one CV without matching it
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseMultipart(w, r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	defer func() { _ = form.RemoveAll() }()

	files := form.File["cv_file"]
	if err := s.validate.Var(files, "min=1,max=1"); err != nil {
		s.errorResponse(w, http.StatusBadRequest, validationError("cv_file", err).Error())
		return
	}

	uploads, err := readUploads(files)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid file upload")
		return
	}

	profile, report, err := s.service.Extract(uploads[0].Filename, uploads[0].Data)
	if err != nil {
		status := HTTPStatus(err)
		if status == http.StatusBadRequest {
			s.errorResponse(w, status, uploads[0].Filename+" is not a .docx document")
			return
		}
		s.requestLogger(r).Error("extraction failed", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "Error processing the file.")
		return
	}
	if len(report.Dropped) > 0 {
		s.requestLogger(r).Debug("dropped assignment sections", zap.Int("count", len(report.Dropped)))
	}

	s.jsonResponse(w, http.StatusOK, profile)
}

// handleGetMatchGroup returns a group and all its verdicts
func (s *Server) handleGetMatchGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "match group")
	if !ok {
		return
	}

	group, err := s.store.GetMatchGroup(r.Context(), id)
	if err != nil {
		s.requestLogger(r).Error("failed to get match group", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get match group")
		return
	}
	if group == nil {
		s.errorResponse(w, http.StatusNotFound, fmt.Sprintf("No match group found with ID %s", id))
		return
	}

	resp := MatchGroupResponse{
		MatchGroupID:  group.ID,
		JobListingURL: group.JobListingURL,
		CreatedAt:     group.CreatedAt,
		Matches:       make([]MatchSummary, 0, len(group.Responses)),
	}
	for _, m := range group.Responses {
		resp.Matches = append(resp.Matches, toMatchSummary(m))
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleGetMatch returns one verdict
func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "match")
	if !ok {
		return
	}

	m, err := s.store.GetMatchResponse(r.Context(), id)
	if err != nil {
		s.requestLogger(r).Error("failed to get match", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get match")
		return
	}
	if m == nil {
		s.errorResponse(w, http.StatusNotFound, fmt.Sprintf("No match found with ID %s", id))
		return
	}

	s.jsonResponse(w, http.StatusOK, MatchResponse{
		MatchSummary:   toMatchSummary(*m),
		MatchGroupID:   m.MatchGroupID,
		JobListingName: m.JobListingName,
		JobListingURL:  m.JobListingURL,
		CreatedAt:      m.CreatedAt,
	})
}

// handleListMatchGroups lists recent groups; ?limit= caps the count
func (s *Server) handleListMatchGroups(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	groups, err := s.store.ListMatchGroups(r.Context(), limit)
	if err != nil {
		s.requestLogger(r).Error("failed to list match groups", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list match groups")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"match_groups": groups, "count": len(groups)})
}

// handleDeleteMatchGroup deletes a group and its verdicts
func (s *Server) handleDeleteMatchGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "match group")
	if !ok {
		return
	}

	if err := s.store.DeleteMatchGroup(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, fmt.Sprintf("No match group found with ID %s", id))
			return
		}
		s.requestLogger(r).Error("failed to delete match group", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "Failed to delete match group")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseMultipart bounds and parses a multipart body
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("upload exceeds %d bytes: %w", s.maxUpload, err)
		}
		return nil, &ErrValidation{Field: "body", Message: "must be multipart/form-data"}
	}
	return r.MultipartForm, nil
}

// pathUUID parses the {id} path value, writing a 400 when it is malformed
func (s *Server) pathUUID(w http.ResponseWriter, r *http.Request, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid "+what+" ID")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		return s.logger.With(zap.String("request_id", id))
	}
	return s.logger
}

func readUploads(files []*multipart.FileHeader) ([]matching.Upload, error) {
	uploads := make([]matching.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, matching.Upload{Filename: fh.Filename, Data: data})
	}
	return uploads, nil
}

func toMatchSummary(m db.MatchResponse) MatchSummary {
	skills := make([]SkillResponse, 0, len(m.Skills))
	for _, sk := range m.Skills {
		skills = append(skills, SkillResponse{
			Skill:             sk.SkillName,
			Reason:            sk.Reason,
			LevelOfImportance: sk.LevelOfImportance,
			MatchLabel:        sk.MatchLabel,
		})
	}
	return MatchSummary{
		MatchID:         m.ID,
		CVName:          m.CVName,
		Summary:         m.Summary,
		PercentageMatch: m.PercentageMatch,
		Skills:          skills,
	}
}

// describeFileError names the offending upload of a client-side failure
func describeFileError(err error) string {
	var fileErr *matching.FileError
	if errors.As(err, &fileErr) {
		return fileErr.Filename + " is not a .docx document."
	}
	return err.Error()
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
