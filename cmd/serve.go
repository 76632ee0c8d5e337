package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/structured-doc-translator/internal/config"
	"github.com/MimeLyc/structured-doc-translator/internal/httpapi"
	"github.com/MimeLyc/structured-doc-translator/internal/inbox"
	"github.com/MimeLyc/structured-doc-translator/internal/jobs"
	"github.com/MimeLyc/structured-doc-translator/internal/service"
	"github.com/MimeLyc/structured-doc-translator/pkg/log"
)

var (
	serveAddr   string
	serveInbox  string
	serveOutbox string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and, when configured, the inbox watcher",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides HTTP_ADDR)")
	serveCmd.Flags().StringVar(&serveInbox, "inbox", "", "watch folder (overrides INBOX_DIR)")
	serveCmd.Flags().StringVar(&serveOutbox, "outbox", "", "output folder for the watch folder (overrides OUTBOX_DIR)")

	rootCmd.AddCommand(serveCmd)
}

type scheduler interface {
	Schedule(context.Context) error
}

type cronRunner interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(context.Context) error
}

func runServe(cmd *cobra.Command, _ []string) error {
	var opts []config.Option
	if serveAddr != "" {
		opts = append(opts, config.WithHTTPAddr(serveAddr))
	}
	if serveInbox != "" || serveOutbox != "" {
		opts = append(opts, config.WithInboxDir(serveInbox, serveOutbox))
	}

	cfg, cleanup, err := loadConfig(opts...)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline := service.NewPipeline(*cfg)

	var (
		sched      scheduler
		cronEngine cronRunner
		serverOpts []httpapi.Option
	)
	if cfg.Inbox.Enabled() {
		queue := jobs.NewQueue(cfg.Inbox.Workers)
		c := cron.New()
		watcher := inbox.NewWatcher(cfg.Inbox, pipeline, queue, c)

		queue.Start(watcher.Execute)
		defer queue.Stop()

		sched, cronEngine = watcher, c
		serverOpts = append(serverOpts, httpapi.WithInbox(queue, watcher))
	}

	srv := httpapi.NewServer(pipeline, *cfg, serverOpts...)
	return runWithComponents(ctx, cfg, sched, cronEngine, srv)
}

// runWithComponents starts the scheduler, cron and HTTP server and blocks
// until ctx is done or the server fails. sched and cronEngine may be nil.
func runWithComponents(
	ctx context.Context,
	cfg *config.Config,
	sched scheduler,
	cronEngine cronRunner,
	srv httpServer,
) error {
	if sched != nil && cronEngine != nil {
		if err := sched.Schedule(ctx); err != nil {
			return err
		}
		cronEngine.Start()
		defer func() {
			<-cronEngine.Stop().Done()
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe(cfg.HTTP.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
