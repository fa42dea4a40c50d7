// Package replay re-issues recorded HTTP requests against a live target, in
// order, one at a time.
package replay

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/funnyzak/reqplay/internal/console"
	"github.com/funnyzak/reqplay/internal/history"
	"github.com/funnyzak/reqplay/internal/logger"
	"github.com/funnyzak/reqplay/internal/table"
)

// ErrQuit indicates the user ended an interactive run. It is a clean stop,
// not a failure.
var ErrQuit = errors.New("replay stopped by user")

// ErrRequestFailed indicates a replayed request got a non-2xx response and
// skipping is not enabled.
var ErrRequestFailed = errors.New("request returned an error status")

// Options configures a Replayer.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// TLSInsecureSkipVerify stays on for typical targets: restoring state on
	// an internal host with a self-signed certificate must not fail the run.
	TLSInsecureSkipVerify bool
	AuthToken             string
	SkipRequestErrors     bool
	Interactive           bool
	MaxColumnWidth        int
}

// Outcome classifies one replayed request.
type Outcome struct {
	Success    bool
	StatusCode int
}

// Classify maps an HTTP status to an outcome. Success is any status in
// [200,299].
func Classify(statusCode int) Outcome {
	return Outcome{
		Success:    statusCode >= 200 && statusCode <= 299,
		StatusCode: statusCode,
	}
}

// Replayer drives the sequential replay of a sanitized record sequence.
type Replayer struct {
	client *http.Client
	cons   *console.Console
	log    logger.Logger
	opts   Options
}

// New creates a replayer. Redirects are never followed: the recorded
// sequence already contains the requests the original client actually made.
func New(log logger.Logger, cons *console.Console, opts Options) *Replayer {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: opts.TLSInsecureSkipVerify, // #nosec G402
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &Replayer{client: client, cons: cons, log: log, opts: opts}
}

// Run replays every record in order. It returns nil when the sequence
// completed, ErrQuit when the user quit an interactive run, ErrRequestFailed
// (wrapped) when an error status aborted a non-interactive run, and any
// transport error as-is; transport failures are always fatal.
func (r *Replayer) Run(ctx context.Context, records []history.Record) error {
	total := len(records)
	for i, rec := range records {
		num := i + 1
		if !r.opts.Interactive {
			if err := r.replayRecord(ctx, num, rec); err != nil {
				return err
			}
			continue
		}
		if err := r.confirmAndReplay(ctx, num, total, rec); err != nil {
			return err
		}
	}
	return nil
}

// replayRecord handles one record in non-interactive mode.
func (r *Replayer) replayRecord(ctx context.Context, num int, rec history.Record) error {
	outcome, err := r.send(ctx, num, rec)
	if err != nil {
		return err
	}
	if outcome.Success || r.opts.SkipRequestErrors {
		return nil
	}
	return fmt.Errorf("request #%d (%s %s) got status %d: %w",
		num, rec.Method, rec.Path, outcome.StatusCode, ErrRequestFailed)
}

// confirmAndReplay prompts for one record in interactive mode. A confirmed
// request's outcome never stops the run; only the user can, by quitting.
func (r *Replayer) confirmAndReplay(ctx context.Context, num, total int, rec history.Record) error {
	prompt := fmt.Sprintf("%s\nReplay request %d/%d? (ID: %d)",
		table.RenderRecords([]history.Record{rec}, r.opts.MaxColumnWidth), num, total, rec.ID)

	answer, err := r.cons.AskYesNo(prompt)
	if err != nil {
		return err
	}
	switch answer {
	case console.AnswerQuit:
		return ErrQuit
	case console.AnswerNo:
		r.cons.Infof("Skipping request %d.", num)
		return nil
	}

	r.cons.Infof("Executing request %d.", num)
	if _, err := r.send(ctx, num, rec); err != nil {
		return err
	}
	return nil
}

// send issues the record's request and reports the outcome. The returned
// error is non-nil only for transport failures (connection errors, timeouts),
// which abort the run regardless of skip policy.
func (r *Replayer) send(ctx context.Context, num int, rec history.Record) (Outcome, error) {
	url := r.opts.BaseURL + rec.Path
	body := parseBody(rec.Body)
	if body == nil && len(rec.Body) > 0 {
		r.log.Warn("stored request body is not JSON, sending no body",
			"request", num, "path", rec.Path)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(rec.Method), url, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("build request #%d: %w", num, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if r.opts.AuthToken != "" {
		req.Header.Set("Authorization", "Token "+r.opts.AuthToken)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.cons.Failf("exception: %v", err)
		return Outcome{}, fmt.Errorf("replay request #%d: %w", num, err)
	}
	defer resp.Body.Close()

	outcome := Classify(resp.StatusCode)
	msg := fmt.Sprintf("Request #%d (code: %d) %s %s",
		num, outcome.StatusCode, strings.ToUpper(rec.Method), rec.Path)
	if outcome.Success {
		r.cons.Successf("-> SUCCEEDED: %s", msg)
	} else {
		r.cons.Failf("-> FAILED: %s", msg)
	}
	return outcome, nil
}

// parseBody returns the stored payload when it is valid JSON and nil
// otherwise. A non-JSON payload is not an error: the request is still
// attempted, just without a body.
func parseBody(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	var decoded interface{}
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return nil
	}
	encoded, err := json.Marshal(decoded)
	if err != nil {
		return nil
	}
	return encoded
}
