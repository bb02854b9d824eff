// Package archive stores redacted profiles in Google Cloud Storage.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/jonathan/cv-matcher/internal/types"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// ProfilePrefix is the object prefix every archived profile lives under
const ProfilePrefix = "profiles"

// Archiver persists redacted profiles. Implementations must be safe for
// concurrent use.
type Archiver interface {
	SaveProfile(ctx context.Context, groupID uuid.UUID, index int, profile types.ExtractedProfile) (string, error)
}

// GCSArchive writes profiles as JSON objects to a bucket.
type GCSArchive struct {
	client     *storage.Client
	bucketName string
	newWriter  func(ctx context.Context, object string) io.WriteCloser
	logger     *zap.Logger
}

// NewGCSArchive creates a Cloud Storage backed archive. Credentials come from
// the environment unless opts say otherwise.
func NewGCSArchive(ctx context.Context, bucketName string, logger *zap.Logger, opts ...option.ClientOption) (*GCSArchive, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloud Storage client: %w", err)
	}

	a := &GCSArchive{
		client:     client,
		bucketName: bucketName,
		logger:     logger,
	}
	a.newWriter = func(ctx context.Context, object string) io.WriteCloser {
		w := client.Bucket(bucketName).Object(object).NewWriter(ctx)
		w.ContentType = "application/json"
		return w
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a, nil
}

// Close closes the Cloud Storage client
func (a *GCSArchive) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

// ObjectName returns profiles/<group>/<index>-<file>.json. The file part is
// reduced to a safe base name.
func ObjectName(groupID uuid.UUID, index int, title string) string {
	return fmt.Sprintf("%s/%s/%d-%s.json", ProfilePrefix, groupID, index, safeName(title))
}

// SaveProfile uploads the profile and returns its gs:// URL.
func (a *GCSArchive) SaveProfile(ctx context.Context, groupID uuid.UUID, index int, profile types.ExtractedProfile) (string, error) {
	body, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode profile: %w", err)
	}

	object := ObjectName(groupID, index, profile.Title)
	wc := a.newWriter(ctx, object)
	if _, err := wc.Write(body); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("failed to write %s: %w", object, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer for %s: %w", object, err)
	}

	url := fmt.Sprintf("gs://%s/%s", a.bucketName, object)
	a.logger.Debug("archived profile", zap.String("object", url), zap.Int("bytes", len(body)))
	return url, nil
}

func safeName(title string) string {
	base := path.Base(strings.ReplaceAll(title, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))

	var sb strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}

	name := strings.Trim(sb.String(), "._")
	if name == "" {
		return "cv"
	}
	return name
}
