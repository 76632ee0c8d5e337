// Package inbox watches a folder on a cron schedule and translates every new
// document it finds into the outbox.
package inbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/structured-doc-translator/internal/config"
	"github.com/MimeLyc/structured-doc-translator/internal/document"
	"github.com/MimeLyc/structured-doc-translator/internal/glossary"
	"github.com/MimeLyc/structured-doc-translator/internal/jobs"
	"github.com/MimeLyc/structured-doc-translator/internal/packager"
	"github.com/MimeLyc/structured-doc-translator/internal/service"
	"github.com/MimeLyc/structured-doc-translator/pkg/file"
	"github.com/MimeLyc/structured-doc-translator/pkg/icron"
	"github.com/MimeLyc/structured-doc-translator/pkg/log"
)

const Source = "inbox"

// Runner is the part of the pipeline the watcher needs.
type Runner interface {
	Run(ctx context.Context, req service.Request) (*packager.Output, error)
}

type Watcher struct {
	cfg    config.InboxConfig
	runner Runner
	queue  *jobs.Queue
	cron   *cron.Cron

	group singleflight.Group

	mu       sync.Mutex
	lastScan time.Time
}

// Status is reported by GET /api/jobs.
type Status struct {
	Dir      string    `json:"dir"`
	OutDir   string    `json:"out_dir"`
	CronExpr string    `json:"cron_expr"`
	LastScan time.Time `json:"last_scan"`
	NextRun  time.Time `json:"next_run"`
	LastRun  time.Time `json:"last_run"`
}

func NewWatcher(cfg config.InboxConfig, runner Runner, queue *jobs.Queue, c *cron.Cron) *Watcher {
	return &Watcher{
		cfg:    cfg,
		runner: runner,
		queue:  queue,
		cron:   c,
	}
}

// Schedule registers the periodic scan on the cron. Overlapping triggers
// share one scan.
func (w *Watcher) Schedule(ctx context.Context) error {
	log.Info("Watching inbox %s (%s)", w.cfg.Dir, w.cfg.CronExpr)

	_, err := w.cron.AddFunc(w.cfg.CronExpr, func() {
		if _, err := w.Scan(ctx); err != nil {
			log.Error("Failed to scan inbox %s: %v", w.cfg.Dir, err)
		}
	})
	return err
}

// Scan enqueues a job for every supported file changed since the previous
// scan and returns how many jobs were created. The first scan picks up every
// file.
func (w *Watcher) Scan(ctx context.Context) (int, error) {
	v, err, _ := w.group.Do("scan", func() (any, error) {
		return w.scan(ctx)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (w *Watcher) scan(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	w.mu.Lock()
	since := w.lastScan
	w.mu.Unlock()
	started := time.Now()

	paths, err := file.FindRecentAfter(w.cfg.Dir, since, w.accepts)
	if err != nil {
		return 0, fmt.Errorf("find files in %s: %w", w.cfg.Dir, err)
	}

	langs := make([]string, len(w.cfg.TargetLanguages))
	for i, tag := range w.cfg.TargetLanguages {
		langs[i] = tag.String()
	}

	created := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			log.Warn("Skipping %s: %v", path, err)
			continue
		}
		format, _ := document.ParseFormat(filepath.Ext(path))

		job, ok := w.queue.Enqueue(jobs.EnqueueRequest{
			Source:    Source,
			DedupeKey: fmt.Sprintf("%s|%d", path, info.ModTime().UnixNano()),
			Payload: jobs.JobPayload{
				InputPath:       path,
				Format:          string(format),
				TargetLanguages: langs,
				Engine:          w.cfg.Engine,
			},
		})
		if ok {
			created++
			log.Info("Queued %s as job %s", path, job.ID)
		}
	}

	w.mu.Lock()
	w.lastScan = started
	w.mu.Unlock()

	log.Info("Inbox scan found %d files, queued %d jobs", len(paths), created)
	return created, nil
}

// accepts filters supported formats, skips glossary files and keeps the
// outbox out of the scan when it is nested inside the inbox.
func (w *Watcher) accepts(path string) bool {
	if glossary.IsGlossaryFile(path) {
		return false
	}
	if w.cfg.OutDir != "" {
		if rel, err := filepath.Rel(w.cfg.OutDir, path); err == nil && !strings.HasPrefix(rel, "..") {
			return false
		}
	}
	_, err := document.ParseFormat(filepath.Ext(path))
	return err == nil
}

// Execute translates one inbox job and writes the result into the outbox.
// A job whose output is already newer than its input is skipped.
func (w *Watcher) Execute(ctx context.Context, job *jobs.TranslationJob) (jobs.Result, error) {
	p := job.Payload

	info, err := os.Stat(p.InputPath)
	if err != nil {
		return jobs.Result{}, fmt.Errorf("stat %s: %w", p.InputPath, err)
	}

	format, err := document.ParseFormat(p.Format)
	if err != nil {
		return jobs.Result{}, err
	}
	base := packager.BaseName(p.InputPath)
	outPath := filepath.Join(w.cfg.OutDir, packager.OutputName(base, format, p.TargetLanguages))

	if out, err := os.Stat(outPath); err == nil && !out.ModTime().Before(info.ModTime()) {
		log.Info("Output %s is up to date, skipping %s", outPath, p.InputPath)
		return jobs.Result{Skipped: true, OutputFiles: []string{outPath}}, nil
	}

	content, err := os.ReadFile(p.InputPath)
	if err != nil {
		return jobs.Result{}, fmt.Errorf("read %s: %w", p.InputPath, err)
	}

	out, err := w.runner.Run(ctx, service.Request{
		Content:         content,
		FileName:        filepath.Base(p.InputPath),
		Format:          format,
		TargetLanguages: p.TargetLanguages,
		Engine:          p.Engine,
		GlossaryDir:     filepath.Dir(p.InputPath),
	})
	if err != nil {
		return jobs.Result{}, err
	}

	outPath = filepath.Join(w.cfg.OutDir, out.FileName)
	if err := file.WriteAtomic(outPath, out.Body, 0o644); err != nil {
		return jobs.Result{}, err
	}
	log.Info("Wrote %s", outPath)
	return jobs.Result{OutputFiles: []string{outPath}}, nil
}

func (w *Watcher) Status() Status {
	w.mu.Lock()
	last := w.lastScan
	w.mu.Unlock()

	st := Status{
		Dir:      w.cfg.Dir,
		OutDir:   w.cfg.OutDir,
		CronExpr: w.cfg.CronExpr,
		LastScan: last,
	}
	if info, err := icron.GetTriggerInfo(w.cfg.CronExpr, time.Now()); err == nil {
		st.NextRun = info.Next
		st.LastRun = info.Last
	}
	return st
}
