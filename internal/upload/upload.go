// Package upload implements the image upload flow: policy issuance followed
// by a direct upload that is repeated until the storage endpoint answers
// with a Location header.
package upload

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"github.com/ikwzm/qiita-utils/internal/qiita"
	"github.com/ikwzm/qiita-utils/internal/retry"
)

// ErrNotLocated means no attempt produced a Location header.
var ErrNotLocated = errors.New("upload not located")

// Gateway is the part of the API client the uploader needs.
type Gateway interface {
	IssueUploadPolicy(ctx context.Context, img qiita.ImageSpec) (*qiita.UploadPolicy, error)
	UploadFile(ctx context.Context, policy *qiita.UploadPolicy, file qiita.FilePart) (string, error)
}

// Request names the local file to upload. Name and MediaType are derived from
// the file when empty.
type Request struct {
	Name       string
	SourcePath string
	MediaType  string
}

// Result is the hosted image.
type Result struct {
	Name       string `json:"name"`
	MediaType  string `json:"type"`
	SourceFile string `json:"file_name"`
	HostedURL  string `json:"url"`
}

type Uploader struct {
	gw     Gateway
	policy retry.Policy
	log    logrus.FieldLogger
}

// New returns an uploader polling with policy.
func New(gw Gateway, policy retry.Policy, log logrus.FieldLogger) *Uploader {
	return &Uploader{gw: gw, policy: policy, log: log}
}

// Upload reads the file, obtains a policy and polls the direct upload. The
// file is read before any network call.
func (u *Uploader) Upload(ctx context.Context, req Request) (*Result, error) {
	req, data, err := Prepare(req)
	if err != nil {
		return nil, err
	}
	name, mediaType := req.Name, req.MediaType

	log := u.log.WithFields(logrus.Fields{"name": name, "file": req.SourcePath, "type": mediaType})
	log.WithField("size", len(data)).Info("requesting upload policy")

	policy, err := u.gw.IssueUploadPolicy(ctx, qiita.ImageSpec{
		ContentType: mediaType,
		Name:        name,
		Size:        len(data),
	})
	if err != nil {
		return nil, err
	}

	file := qiita.FilePart{Name: name, ContentType: mediaType, Data: data}
	var location string

	p := u.policy
	p.Notify = func(attempt int, next time.Duration) {
		log.WithFields(logrus.Fields{"attempt": attempt, "retry_in": next}).Info("upload not located yet")
	}
	err = p.Do(ctx, func(ctx context.Context, attempt int) (bool, error) {
		loc, err := u.gw.UploadFile(ctx, policy, file)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return false, ctxErr
			}
			log.WithError(err).WithField("attempt", attempt).Warn("upload attempt failed")
			return false, nil
		}
		if loc == "" {
			return false, nil
		}
		location = loc
		return true, nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		return nil, fmt.Errorf("%s: %w after %d attempts", req.SourcePath, ErrNotLocated, max(p.MaxAttempts, 1))
	}
	if err != nil {
		return nil, err
	}

	log.WithField("url", location).Info("upload located")
	return &Result{
		Name:       name,
		MediaType:  mediaType,
		SourceFile: req.SourcePath,
		HostedURL:  location,
	}, nil
}

// Prepare reads the file and fills in the name and media type the upload
// would use. Nothing is sent.
func Prepare(req Request) (Request, []byte, error) {
	data, err := os.ReadFile(req.SourcePath)
	if err != nil {
		return req, nil, fmt.Errorf("reading %s: %w", req.SourcePath, err)
	}
	if req.Name == "" {
		req.Name = DefaultName(req.SourcePath)
	}
	if req.MediaType == "" {
		req.MediaType = DetectMediaType(req.SourcePath, data)
	}
	return req, data, nil
}

// DefaultName is the file's base name without its extension.
func DefaultName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DetectMediaType infers a MIME type from the extension, falling back to
// content sniffing. Parameters such as charset are dropped.
func DetectMediaType(path string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return stripParams(t)
	}
	return stripParams(mimetype.Detect(data).String())
}

func stripParams(t string) string {
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}
