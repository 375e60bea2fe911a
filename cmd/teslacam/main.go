// teslacam plays a six-camera dashcam event as a navigable panorama with
// telemetry-driven motion, served over HTTP and a websocket HUD feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/teslashibe/go-teslacam/internal/config"
	"github.com/teslashibe/go-teslacam/internal/log"
	"github.com/teslashibe/go-teslacam/pkg/media"
	"github.com/teslashibe/go-teslacam/pkg/playback"
	"github.com/teslashibe/go-teslacam/pkg/rig"
	"github.com/teslashibe/go-teslacam/pkg/session"
	"github.com/teslashibe/go-teslacam/pkg/telemetry"
	"github.com/teslashibe/go-teslacam/pkg/web"
)

type options struct {
	app       config.App
	dir       string
	clip      string
	telemetry string
	autostart bool
	snapshot  string
	at        float64
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(2)
	}
	log.Init(opts.app.LogLevel)

	if err := run(opts); err != nil {
		log.Error("teslacam failed", "error", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags and returns configuration.
// Flags override the config file, which overrides the environment defaults.
func parseFlags() (options, error) {
	var o options

	configPath := flag.String("config", config.Env(config.EnvConfig, ""), "YAML config file")
	dir := flag.String("dir", config.EventDir(""), "Event folder containing <stamp>-<camera>.mp4 clips")
	clip := flag.String("clip", "", "Clip timestamp prefix (default: first clip in the folder)")
	telemetryPath := flag.String("telemetry", "", "Telemetry CSV (default: <stamp>-front.csv next to the clips)")
	port := flag.String("port", "", "HTTP port (overrides config and TESLACAM_PORT)")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	autostart := flag.Bool("autostart", true, "Start playback immediately")
	snapshot := flag.String("snapshot", "", "Render the equirectangular panorama to this PNG and exit")
	at := flag.Float64("at", 0, "Playback time in seconds for -snapshot")
	flag.Parse()

	app, err := config.Load(*configPath)
	if err != nil {
		return o, err
	}
	app = app.ApplyEnv()
	if *port != "" {
		app.Port = *port
	}
	if *debug {
		app.LogLevel = "debug"
	}
	if errs := app.Validate(); len(errs) > 0 {
		return o, fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	if *dir == "" {
		return o, fmt.Errorf("-dir or %s is required", config.EnvEventDir)
	}

	o = options{
		app:       app,
		dir:       *dir,
		clip:      *clip,
		telemetry: *telemetryPath,
		autostart: *autostart,
		snapshot:  *snapshot,
		at:        *at,
	}
	return o, nil
}

func run(o options) error {
	r, err := o.app.LoadRig()
	if err != nil {
		return err
	}

	stamp := o.clip
	if stamp == "" {
		if stamp, err = firstClip(o.dir, r); err != nil {
			return err
		}
	}
	logger := log.Component("main").With("clip", stamp)

	sources := make([]playback.Source, rig.NumCameras)
	for i, c := range r {
		path := filepath.Join(o.dir, c.ClipName(stamp))
		if _, err := os.Stat(path); err != nil {
			logger.Warn("camera clip missing, using placeholder", "camera", c.ID)
			continue
		}
		sources[i] = media.NewVideoFile(path)
	}

	telemetryPath := o.telemetry
	if telemetryPath == "" {
		telemetryPath = filepath.Join(o.dir, fmt.Sprintf("%s-%s.csv", stamp, rig.Front))
	}
	samples := telemetry.LoadOrEmpty(telemetryPath)
	timeline, err := telemetry.UniformTimeline(len(samples), o.app.TelemetryFPS)
	if err != nil {
		return err
	}
	logger.Info("event loaded", "telemetry_frames", len(samples))

	cfg := o.app.SessionConfig(r)
	if o.snapshot != "" {
		cfg.TickInterval = -1
	}
	sess := session.New(cfg, sources, samples, timeline)
	defer sess.Teardown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if o.snapshot != "" {
		return writeSnapshot(ctx, sess, o)
	}

	opts := web.DefaultOptions()
	opts.Port = o.app.Port
	opts.HUDRate = o.app.HUDRate
	opts.FrameWidth, opts.FrameHeight = o.app.RenderWidth, o.app.RenderHeight
	srv := web.NewServer(sess, opts)
	sess.Subscribe(srv.Publish)
	srv.StartAsync()
	defer srv.Shutdown()

	if o.autostart {
		if err := sess.Start(ctx); err != nil {
			// The API stays up so a client can inspect the failure.
			logger.Error("autostart failed", "error", err)
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// writeSnapshot renders one equirectangular frame at o.at seconds.
func writeSnapshot(ctx context.Context, sess *session.Session, o options) error {
	if err := sess.Start(ctx); err != nil {
		return err
	}
	sess.Pause()
	if err := sess.SeekTo(o.at); err != nil {
		return err
	}
	sess.Tick(time.Second / 60)

	img := sess.RenderEquirect(2*o.app.RenderHeight, o.app.RenderHeight)
	f, err := os.Create(o.snapshot)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return err
	}
	log.Info("snapshot written", "path", o.snapshot, "time", o.at)
	return nil
}

// firstClip returns the earliest timestamp prefix with a front clip in dir.
func firstClip(dir string, r rig.Rig) (string, error) {
	suffix := "-" + r[0].ID + ".mp4"
	matches, err := filepath.Glob(filepath.Join(dir, "*"+suffix))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no *%s clips in %s", suffix, dir)
	}
	sort.Strings(matches)
	return strings.TrimSuffix(filepath.Base(matches[0]), suffix), nil
}
