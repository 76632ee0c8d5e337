package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/MimeLyc/structured-doc-translator/internal/config"
	"github.com/MimeLyc/structured-doc-translator/internal/jobs"
	"github.com/MimeLyc/structured-doc-translator/internal/packager"
	"github.com/MimeLyc/structured-doc-translator/internal/service"
)

type fakeRunner struct {
	mu       sync.Mutex
	requests []service.Request
	err      error
}

func (f *fakeRunner) Run(_ context.Context, req service.Request) (*packager.Output, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	docs := make([]packager.LanguageDocument, len(req.TargetLanguages))
	for i, lang := range req.TargetLanguages {
		docs[i] = packager.LanguageDocument{Language: lang, Body: append([]byte(lang+":"), req.Content...)}
	}
	return packager.Package(packager.BaseName(req.FileName), req.Format, docs)
}

func newTestWatcher(t *testing.T, runner Runner, langs ...language.Tag) (*Watcher, string, string) {
	t.Helper()

	root := t.TempDir()
	in := filepath.Join(root, "inbox")
	out := filepath.Join(in, "done")
	require.NoError(t, os.MkdirAll(out, 0o755))

	cfg := config.InboxConfig{
		Dir:             in,
		OutDir:          out,
		CronExpr:        "*/5 * * * *",
		TargetLanguages: langs,
		Workers:         1,
	}
	return NewWatcher(cfg, runner, jobs.NewQueue(1), cron.New()), in, out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatcher_ScanQueuesSupportedFilesOnce(t *testing.T) {
	w, in, out := newTestWatcher(t, &fakeRunner{}, language.German)

	writeFile(t, filepath.Join(in, "a.srt"), "1\n00:00:01,000 --> 00:00:02,000\nHi\n")
	writeFile(t, filepath.Join(in, "b.json"), `{"a": "b"}`)
	writeFile(t, filepath.Join(in, "c.pdf"), "%PDF")
	writeFile(t, filepath.Join(in, "glossary.en-de.json"), `{"Hi": "Hallo"}`)
	writeFile(t, filepath.Join(out, "old-de.srt"), "ignored")

	n, err := w.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list := w.queue.List()
	require.Len(t, list, 2)
	for _, job := range list {
		assert.Equal(t, Source, job.Source)
		assert.Equal(t, []string{"de"}, job.Payload.TargetLanguages)
		assert.Contains(t, []string{"srt", "json"}, job.Payload.Format)
	}

	// unchanged files are not picked up again
	n, err = w.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWatcher_ExecuteWritesOutput(t *testing.T) {
	runner := &fakeRunner{}
	w, in, out := newTestWatcher(t, runner, language.German)

	input := filepath.Join(in, "movie.srt")
	writeFile(t, input, "1\n00:00:01,000 --> 00:00:02,000\nHi\n")

	job := &jobs.TranslationJob{Payload: jobs.JobPayload{
		InputPath:       input,
		Format:          "srt",
		TargetLanguages: []string{"de"},
	}}

	res, err := w.Execute(context.Background(), job)
	require.NoError(t, err)
	want := filepath.Join(out, "movie-de.srt")
	assert.Equal(t, []string{want}, res.OutputFiles)
	assert.False(t, res.Skipped)

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "de:1\n00:00:01,000 --> 00:00:02,000\nHi\n", string(data))
	assert.Equal(t, "movie.srt", runner.requests[0].FileName)
	assert.Equal(t, in, runner.requests[0].GlossaryDir)

	// second run sees an up to date output
	res, err = w.Execute(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Len(t, runner.requests, 1)
}

func TestWatcher_ExecuteMultipleLanguagesWritesArchive(t *testing.T) {
	w, in, out := newTestWatcher(t, &fakeRunner{})

	input := filepath.Join(in, "strings.json")
	writeFile(t, input, `{"a": "b"}`)

	res, err := w.Execute(context.Background(), &jobs.TranslationJob{Payload: jobs.JobPayload{
		InputPath:       input,
		Format:          "json",
		TargetLanguages: []string{"de", "fr"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(out, "strings-translated.zip")}, res.OutputFiles)
}

func TestWatcher_ExecuteReportsRunnerError(t *testing.T) {
	w, in, out := newTestWatcher(t, &fakeRunner{err: errors.New("backend down")})

	input := filepath.Join(in, "a.txt")
	writeFile(t, input, "hello")

	_, err := w.Execute(context.Background(), &jobs.TranslationJob{Payload: jobs.JobPayload{
		InputPath:       input,
		Format:          "txt",
		TargetLanguages: []string{"de"},
	}})
	require.Error(t, err)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWatcher_EndToEndThroughQueue(t *testing.T) {
	w, in, out := newTestWatcher(t, &fakeRunner{}, language.French)
	writeFile(t, filepath.Join(in, "notes.txt"), "hello")

	w.queue.Start(w.Execute)
	defer w.queue.Stop()

	n, err := w.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(out, "notes-fr.txt"))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_ScheduleAndStatus(t *testing.T) {
	w, _, _ := newTestWatcher(t, &fakeRunner{}, language.German)

	require.NoError(t, w.Schedule(context.Background()))
	assert.Len(t, w.cron.Entries(), 1)

	st := w.Status()
	assert.Equal(t, "*/5 * * * *", st.CronExpr)
	assert.True(t, st.NextRun.After(time.Now()))
	assert.True(t, st.LastScan.IsZero())
}
