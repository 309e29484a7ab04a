package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"coursecal/internal/config"
	"coursecal/internal/dataset"
	appLog "coursecal/internal/log"
	"coursecal/internal/share"
	"coursecal/internal/web"
)

const version = "0.3.0"

// shareSweepSchedule drops expired share references.
const shareSweepSchedule = "@every 1m"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	pretty     bool

	once     bool
	semester string
	anchor   string
	out      string
	xlsx     string

	inspect string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf.Normalize()

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		if conf.PublicURL == "http://"+conf.Listen {
			conf.PublicURL = "http://" + flags.listen
		}
		conf.Listen = flags.listen
	}

	appLog.Configure(appLog.Options{
		Level:  appLog.ParseLevel(conf.LogLevel),
		Pretty: flags.pretty,
	})
	appLog.Info("coursecal starting", "version", version)

	switch {
	case flags.inspect != "":
		if err := runInspect(os.Stdout, flags.inspect); err != nil {
			appLog.Error("inspect failed", err, "file", flags.inspect)
			os.Exit(1)
		}
		return
	case flags.once:
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := runOnce(ctx, conf, flags); err != nil {
			appLog.Error("export failed", err, "semester", flags.semester)
			cancel()
			os.Exit(1)
		}
		return
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"public_url", conf.PublicURL,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"cache_dir", conf.CacheDir,
		"share_ttl", conf.ShareTTL().String(),
		"semester_count", len(conf.Semesters),
		"basic_auth", conf.BasicAuth != nil,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, conf); err != nil {
		appLog.Error("server exited with error", err)
		stop()
		os.Exit(1)
	}
	appLog.Info("coursecal exiting")
}

// serve runs the HTTP server and background jobs until ctx is canceled.
func serve(ctx context.Context, conf *config.Config) error {
	fetcher := dataset.NewFetcher(conf.CacheDir)
	shares := share.NewStore(conf.ShareTTL())
	srv := web.NewServer(conf, fetcher, shares)

	// Warm the snapshot cache; failures are served as errors per request.
	if err := srv.Refresh(ctx); err != nil {
		appLog.Warn("initial dataset load incomplete", "error", err.Error())
	}

	sched := cron.New()
	if _, err := sched.AddFunc(conf.RefreshCron, func() {
		rctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		if err := srv.Refresh(rctx); err != nil {
			appLog.Warn("scheduled refresh incomplete", "error", err.Error())
			return
		}
		appLog.Info("scheduled refresh done", "semester_count", len(conf.Semesters))
	}); err != nil {
		return err
	}
	if _, err := sched.AddFunc(shareSweepSchedule, func() { shares.Sweep() }); err != nil {
		return err
	}
	sched.Start()
	defer func() {
		<-sched.Stop().Done()
	}()

	httpSrv := &http.Server{
		Addr:              conf.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		appLog.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/coursecal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.pretty, "pretty", false, "Human-readable console logs instead of JSON")
	flag.BoolVar(&cfg.once, "once", false, "Export one semester and exit")
	flag.StringVar(&cfg.semester, "semester", "", "Semester ID for -once (default: first configured)")
	flag.StringVar(&cfg.anchor, "anchor", "", "Week-1 date YYYY-MM-DD for -once (default: semester anchor_monday)")
	flag.StringVar(&cfg.out, "out", "course_table.ics", "Calendar output file for -once, '-' for stdout")
	flag.StringVar(&cfg.xlsx, "xlsx", "", "Also write the timetable workbook to this file with -once")
	flag.StringVar(&cfg.inspect, "inspect", "", "Print a summary of an exported .ics file and exit")

	flag.Parse()

	return cfg
}
