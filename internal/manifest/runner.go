package manifest

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ikwzm/qiita-utils/internal/item"
	"github.com/ikwzm/qiita-utils/internal/qiita"
	"github.com/ikwzm/qiita-utils/internal/upload"
)

type Uploader interface {
	Upload(ctx context.Context, req upload.Request) (*upload.Result, error)
}

type Publisher interface {
	Create(ctx context.Context, d item.Draft) (*qiita.Item, error)
	Update(ctx context.Context, id string, u item.Update) (*qiita.Item, error)
}

// Steps selects which phases Run performs. Phases run in field order.
type Steps struct {
	ImageUpload bool
	ItemPost    bool
	ItemPatch   bool
}

type Runner struct {
	Uploader  Uploader
	Publisher Publisher
	DryRun    bool
	Log       logrus.FieldLogger

	// OnUpload and OnItem observe every successful call.
	OnUpload func(*upload.Result)
	OnItem   func(action string, it *qiita.Item)
}

// Summary counts what a run did.
type Summary struct {
	Uploaded int
	Posted   int
	Patched  int
	Skipped  int
	Failed   int
}

// Run processes docs in place, one entry at a time. A failed entry is marked
// with StatusError and the run continues.
func (r *Runner) Run(ctx context.Context, docs []*Document, steps Steps) (Summary, error) {
	var sum Summary

	if steps.ImageUpload {
		for _, doc := range docs {
			for _, it := range doc.Items {
				for _, img := range it.Images {
					if err := r.uploadImage(ctx, img, &sum); err != nil {
						return sum, err
					}
				}
			}
			for _, img := range doc.Images {
				if err := r.uploadImage(ctx, img, &sum); err != nil {
					return sum, err
				}
			}
		}
	}
	if steps.ItemPost {
		for _, doc := range docs {
			for _, it := range doc.Items {
				if err := r.postItem(ctx, it, &sum); err != nil {
					return sum, err
				}
			}
		}
	}
	if steps.ItemPatch {
		for _, doc := range docs {
			for _, it := range doc.Items {
				if err := r.patchItem(ctx, it, &sum); err != nil {
					return sum, err
				}
			}
		}
	}
	return sum, nil
}

// fatal reports errors that must stop the whole run.
func fatal(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (r *Runner) uploadImage(ctx context.Context, img *Image, sum *Summary) error {
	if img.URL != "" || img.Stage == StageLocal || img.FileName == "" {
		sum.Skipped++
		return nil
	}

	req := upload.Request{
		Name:       unquote(img.Name),
		SourcePath: img.FileName,
		MediaType:  unquote(img.Type),
	}
	log := r.Log.WithField("file", img.FileName)
	if r.DryRun {
		log.Warn("dry run: would upload image")
		sum.Skipped++
		return nil
	}

	res, err := r.Uploader.Upload(ctx, req)
	if err != nil {
		if fatal(err) {
			return err
		}
		log.WithError(err).Error("image upload failed")
		img.Status, img.Error = StatusError, err.Error()
		sum.Failed++
		return nil
	}

	img.Name, img.Type, img.URL = res.Name, res.MediaType, res.HostedURL
	img.Status, img.Error = StatusOk, ""
	sum.Uploaded++
	if r.OnUpload != nil {
		r.OnUpload(res)
	}
	return nil
}

func (r *Runner) postItem(ctx context.Context, it *Item, sum *Summary) error {
	if it.ID != "" || it.FileName == "" || it.Stage == StageLocal {
		sum.Skipped++
		return nil
	}
	log := r.Log.WithField("file", it.FileName)
	if r.DryRun {
		log.Warn("dry run: would post item")
		sum.Skipped++
		return nil
	}

	src, err := item.LoadSource(it.FileName, item.SourceOptions{WithTitle: it.WithTitle})
	if err != nil {
		return r.itemFailed(log, it, sum, err)
	}
	title := it.Title
	if src.HasTitle {
		title = src.Title
	}

	res, err := r.Publisher.Create(ctx, item.Draft{
		Title:   title,
		Tags:    item.SplitTags(it.Tags),
		Body:    src.Body,
		Private: privateFor(it.Stage),
	})
	if err != nil {
		if fatal(err) {
			return err
		}
		return r.itemFailed(log, it, sum, err)
	}

	r.itemDone(it, res, "post")
	sum.Posted++
	return nil
}

func (r *Runner) patchItem(ctx context.Context, it *Item, sum *Summary) error {
	if it.ID == "" || it.FileName == "" || it.Stage == StageLocal {
		sum.Skipped++
		return nil
	}
	log := r.Log.WithFields(logrus.Fields{"file": it.FileName, "id": it.ID})
	if r.DryRun {
		log.Warn("dry run: would patch item")
		sum.Skipped++
		return nil
	}

	src, err := item.LoadSource(it.FileName, item.SourceOptions{WithTitle: it.WithTitle})
	if err != nil {
		return r.itemFailed(log, it, sum, err)
	}
	u := item.Update{
		Tags:    item.SplitTags(it.Tags),
		Body:    src.Body,
		Private: privateFor(it.Stage),
	}
	if src.HasTitle {
		u.Title = &src.Title
	}

	res, err := r.Publisher.Update(ctx, it.ID, u)
	if err != nil {
		if fatal(err) {
			return err
		}
		return r.itemFailed(log, it, sum, err)
	}

	r.itemDone(it, res, "patch")
	sum.Patched++
	return nil
}

func (r *Runner) itemFailed(log logrus.FieldLogger, it *Item, sum *Summary, err error) error {
	log.WithError(err).Error("item failed")
	it.Status, it.Error = StatusError, err.Error()
	sum.Failed++
	return nil
}

func (r *Runner) itemDone(it *Item, res *qiita.Item, action string) {
	it.ID, it.URL, it.Title = res.ID, res.URL, res.Title
	it.Tags = res.Tags
	if !res.CreatedAt.IsZero() {
		it.CreatedAt = res.CreatedAt.Format(time.RFC3339)
	}
	if !res.UpdatedAt.IsZero() {
		it.UpdatedAt = res.UpdatedAt.Format(time.RFC3339)
	}
	it.Status, it.Error = StatusOk, ""
	if r.OnItem != nil {
		r.OnItem(action, res)
	}
}
