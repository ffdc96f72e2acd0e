package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ikwzm/qiita-utils/internal/config"
	"github.com/ikwzm/qiita-utils/internal/history"
	"github.com/ikwzm/qiita-utils/internal/logging"
	"github.com/ikwzm/qiita-utils/internal/qiita"
	"github.com/ikwzm/qiita-utils/internal/token"
	"github.com/ikwzm/qiita-utils/internal/upload"
)

func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// env is what every API command needs: config, logger and the journal.
type env struct {
	cfg     *config.Config
	log     *logrus.Logger
	journal *history.Journal
}

func setup(cmd *cobra.Command) (*env, error) {
	log := logging.New(flagDebug, cmd.ErrOrStderr())

	if err := config.LoadEnv(".env"); err != nil {
		log.WithError(err).Warn("ignoring .env")
	}
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &env{cfg: cfg, log: log}, nil
}

// client loads the access token and builds the API client. A missing token
// fails here, before any request is made.
func (e *env) client() (*qiita.Client, error) {
	tok, err := token.Load(token.DefaultDirs())
	if err != nil {
		return nil, fmt.Errorf("loading token: %w", err)
	}
	return qiita.NewClient(tok,
		qiita.WithBaseURL(e.cfg.API.BaseURL),
		qiita.WithHTTPClient(&http.Client{Timeout: e.cfg.TimeoutDuration()}),
		qiita.WithLogger(e.log),
	), nil
}

// openJournal opens the history database if enabled. Failures only warn.
func (e *env) openJournal() {
	if !e.cfg.History.Enabled {
		return
	}
	j, err := history.Open(e.cfg.HistoryPath())
	if err != nil {
		e.log.WithError(err).Warn("history disabled")
		return
	}
	e.journal = j
}

func (e *env) close() {
	if e.journal != nil {
		e.journal.Close()
	}
}

func (e *env) recordUpload(res *upload.Result) {
	if e.journal == nil {
		return
	}
	err := e.journal.RecordUpload(history.Upload{
		URL:        res.HostedURL,
		Name:       res.Name,
		MediaType:  res.MediaType,
		SourceFile: res.SourceFile,
	})
	if err != nil {
		e.log.WithError(err).Warn("history")
	}
}

func (e *env) recordItem(action string, it *qiita.Item) {
	if e.journal == nil {
		return
	}
	err := e.journal.RecordItem(history.Item{
		ID:        it.ID,
		URL:       it.URL,
		Title:     it.Title,
		Tags:      it.Tags,
		Private:   it.Private,
		Action:    action,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	})
	if err != nil {
		e.log.WithError(err).Warn("history")
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
