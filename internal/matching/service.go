// Package matching runs the CV-to-listing pipeline: decode, extract and redact
// each CV, score it with the language model and persist the verdicts.
package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/cv-matcher/internal/archive"
	"github.com/jonathan/cv-matcher/internal/db"
	"github.com/jonathan/cv-matcher/internal/docx"
	"github.com/jonathan/cv-matcher/internal/extraction"
	"github.com/jonathan/cv-matcher/internal/logger"
	"github.com/jonathan/cv-matcher/internal/retry"
	"github.com/jonathan/cv-matcher/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxFiles is the most CVs accepted per request
const DefaultMaxFiles = 5

var (
	// ErrTooManyFiles is returned when more than MaxFiles CVs are submitted
	ErrTooManyFiles = errors.New("too many files")
	// ErrNoFiles is returned when no CV is submitted
	ErrNoFiles = errors.New("no files")
)

// ListingFetcher resolves a job listing URL
type ListingFetcher interface {
	Fetch(ctx context.Context, listingURL string) (*types.JobListing, error)
}

// Matcher scores one profile against one listing
type Matcher interface {
	Match(ctx context.Context, profile types.ExtractedProfile, listing types.JobListing) (*types.MatchResult, error)
}

// Store persists groups and verdicts
type Store interface {
	CreateMatchGroup(ctx context.Context, jobListingURL string) (*db.MatchGroup, error)
	SaveMatchResponse(ctx context.Context, in db.MatchResponseInput) (uuid.UUID, error)
	AttachToGroup(ctx context.Context, groupID, responseID uuid.UUID, position int) error
}

// Upload is one submitted CV file
type Upload struct {
	Filename string
	Data     []byte
}

// ProcessResult identifies what Process stored. MatchIDs follow upload order.
type ProcessResult struct {
	GroupID  uuid.UUID   `json:"match_group_id"`
	MatchIDs []uuid.UUID `json:"match_ids"`
}

// FileError reports which CV failed and at what stage
type FileError struct {
	Index    int
	Filename string
	Stage    string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s (file %d, %s): %v", e.Filename, e.Index, e.Stage, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Options tunes a Service
type Options struct {
	MaxFiles    int
	Concurrency int
	Retry       retry.Policy
	Archive     archive.Archiver // optional
	Logger      *zap.Logger
}

// Service runs the matching pipeline
type Service struct {
	fetcher ListingFetcher
	matcher Matcher
	store   Store
	opts    Options
	logger  *zap.Logger
}

// NewService wires a Service. Zero options fall back to five files, one
// worker per file and the default retry policy.
func NewService(fetcher ListingFetcher, matcher Matcher, store Store, opts Options) *Service {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = opts.MaxFiles
	}
	if opts.Retry.Attempts <= 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	log := logger.OrNop(opts.Logger)
	if opts.Retry.Logger == nil {
		opts.Retry.Logger = log
	}

	return &Service{
		fetcher: fetcher,
		matcher: matcher,
		store:   store,
		opts:    opts,
		logger:  log,
	}
}

// MaxFiles returns the per-request CV limit
func (s *Service) MaxFiles() int {
	return s.opts.MaxFiles
}

// Process matches every upload against the listing at listingURL and stores
// the verdicts under a new match group. Any CV failure fails the whole call;
// the group row is kept.
func (s *Service) Process(ctx context.Context, listingURL string, uploads []Upload) (*ProcessResult, error) {
	if len(uploads) == 0 {
		return nil, ErrNoFiles
	}
	if len(uploads) > s.opts.MaxFiles {
		return nil, fmt.Errorf("%w: got %d, at most %d allowed", ErrTooManyFiles, len(uploads), s.opts.MaxFiles)
	}

	start := time.Now()
	log := s.logger.With(zap.String(logger.FieldListingURL, listingURL), zap.Int("files", len(uploads)))

	listing, err := s.fetcher.Fetch(ctx, listingURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job listing: %w", err)
	}

	var group *db.MatchGroup
	err = retry.Do(ctx, s.opts.Retry, "create_match_group", func(ctx context.Context) error {
		var err error
		group, err = s.store.CreateMatchGroup(ctx, listingURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	log = log.With(zap.Stringer(logger.FieldGroupID, group.ID))

	ids := make([]uuid.UUID, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for i, upload := range uploads {
		g.Go(func() error {
			id, err := s.processOne(gctx, group.ID, i, upload, *listing, log)
			if err != nil {
				return err
			}
			ids[i] = id
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("processing failed", zap.Error(err))
		return nil, err
	}

	log.Info("processed match group", zap.Duration("duration", time.Since(start)))
	return &ProcessResult{GroupID: group.ID, MatchIDs: ids}, nil
}

func (s *Service) processOne(ctx context.Context, groupID uuid.UUID, index int, upload Upload, listing types.JobListing, log *zap.Logger) (uuid.UUID, error) {
	log = log.With(zap.String(logger.FieldFile, upload.Filename), zap.Int("index", index))
	fail := func(stage string, err error) (uuid.UUID, error) {
		return uuid.Nil, &FileError{Index: index, Filename: upload.Filename, Stage: stage, Err: err}
	}

	profile, report, err := s.Extract(upload.Filename, upload.Data)
	if err != nil {
		return fail("decode", err)
	}
	for _, dropped := range report.Dropped {
		log.Warn("dropped assignment section", zap.Int("section", dropped.Index), zap.Error(dropped.Err))
	}

	if s.opts.Archive != nil {
		if url, err := s.opts.Archive.SaveProfile(ctx, groupID, index, profile); err != nil {
			log.Warn("failed to archive profile", zap.Error(err))
		} else {
			log.Debug("archived profile", zap.String("object", url))
		}
	}

	result, err := s.matcher.Match(ctx, profile, listing)
	if err != nil {
		return fail("match", err)
	}

	input := db.NewMatchResponseInput(upload.Filename, listing, result)
	input.ID = uuid.New()
	var id uuid.UUID
	err = retry.Do(ctx, s.opts.Retry, "save_match_response", func(ctx context.Context) error {
		var err error
		id, err = s.store.SaveMatchResponse(ctx, input)
		return err
	})
	if err != nil {
		return fail("save", err)
	}

	err = retry.Do(ctx, s.opts.Retry, "attach_to_group", func(ctx context.Context) error {
		return s.store.AttachToGroup(ctx, groupID, id, index)
	})
	if err != nil {
		return fail("attach", err)
	}

	log.Info("stored match", zap.Stringer(logger.FieldResponseID, id), zap.Int("assignments", len(profile.Assignments)))
	return id, nil
}

// Extract decodes a DOCX upload and returns its redacted profile, titled
// with the file name. No model call is made.
func (s *Service) Extract(filename string, data []byte) (types.ExtractedProfile, extraction.Report, error) {
	doc, err := docx.DecodeBytes(data)
	if err != nil {
		return types.ExtractedProfile{}, extraction.Report{}, err
	}
	profile, report := extraction.ExtractProfileWithReport(doc, filename)
	return profile, report, nil
}
