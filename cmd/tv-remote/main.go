// Command tv-remote reads debounced GPIO buttons and sends the bound key
// reports to a TV over MQTT, a WebSocket bridge, or the log.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sweeney/tv-remote/internal/config"
	"github.com/sweeney/tv-remote/internal/dispatch"
	"github.com/sweeney/tv-remote/internal/gpio"
	"github.com/sweeney/tv-remote/internal/logic"
	"github.com/sweeney/tv-remote/internal/mqtt"
	"github.com/sweeney/tv-remote/internal/sink"
	"github.com/sweeney/tv-remote/internal/status"
	"github.com/sweeney/tv-remote/internal/web"
	"github.com/sweeney/tv-remote/internal/ws"
)

// waitingInterval rate-limits the "waiting for connection" log line.
const waitingInterval = 5 * time.Second

var (
	configPath string
	logLevel   string
	sinkKind   string
	broker     string
	clientID   string
	topic      string
	wsURL      string
	inputKind  string
	httpAddr   string

	mainCmd = &cobra.Command{
		Use:               "tv-remote",
		Short:             "GPIO buttons to TV key reports",
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Poll the buttons and send key reports",
		Args:  cobra.NoArgs,
		RunE:  runRemote,
	}
	printStateCmd = &cobra.Command{
		Use:   "print-state",
		Short: "Print the current level of every button and exit",
		Args:  cobra.NoArgs,
		RunE:  runPrintState,
	}
	defaultConfigCmd = &cobra.Command{
		Use:   "default-config",
		Short: "Print the built-in configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), config.DefaultTOML)
			return err
		},
	}
)

func init() {
	mainCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config path. Empty uses the built-in Fire TV layout")
	mainCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	runCmd.Flags().StringVar(&sinkKind, "sink", "mqtt", "Key report output: mqtt, ws or log")
	runCmd.Flags().StringVar(&broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	runCmd.Flags().StringVar(&clientID, "client-id", "tv-remote", "MQTT client id")
	runCmd.Flags().StringVar(&topic, "topic", mqtt.DefaultBaseTopic, "MQTT base topic")
	runCmd.Flags().StringVar(&wsURL, "ws-url", "ws://127.0.0.1:8765/keys", "WebSocket bridge URL")
	runCmd.Flags().StringVar(&inputKind, "input", "gpio", "Button input: gpio or term")
	runCmd.Flags().StringVar(&httpAddr, "http", ":8080", "HTTP status address (empty to disable)")

	mainCmd.AddCommand(runCmd, printStateCmd, defaultConfigCmd)
}

func main() {
	if err := mainCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {
	lvl, err := log.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func runPrintState(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reader, err := gpio.NewRealReader(cfg.Chip, cfg.Pins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()
	return printState(cmd.OutOrStdout(), cfg, reader)
}

// printState writes one line per button with its raw level.
func printState(w io.Writer, cfg *config.Config, reader gpio.Reader) error {
	var errs []error
	for _, b := range cfg.DispatchButtons() {
		level, err := reader.Read(b.Pin)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s (pin %d): %w", b.ID, b.Pin, err))
			continue
		}
		state := "released"
		if level == b.Active {
			state = "pressed"
		}
		fmt.Fprintf(w, "%-12s pin %-3d %-4s %s\n", b.ID, b.Pin, level, state)
	}
	return errors.Join(errs...)
}

func runRemote(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	bindings, err := cfg.Bindings()
	if err != nil {
		return err
	}
	logger := log.StandardLogger()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	reader, err := openReader(inputKind, cfg, sigCh, logger)
	if err != nil {
		return err
	}
	defer func() {
		reader.Close()
		logger.SetOutput(os.Stderr)
	}()

	out, announce, target, closeSink, err := openSink(sinkKind, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	d, err := dispatch.New(cfg.DispatchButtons(), bindings, reader, out, cfg.DispatchConfig())
	if err != nil {
		return fmt.Errorf("init dispatcher: %w", err)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Name:         cfg.Name,
		PollMs:       cfg.PollMs,
		DebounceMs:   cfg.DebounceMs,
		LockoutMs:    cfg.LockoutMs,
		LockoutScope: cfg.LockoutScope,
		HeartbeatMs:  cfg.HeartbeatMs,
		Input:        inputKind,
		Sink:         sinkKind,
		Target:       target,
		HTTPAddr:     httpAddr,
	}, cfg.DispatchButtons(), actionNames(bindings), status.DefaultHistorySize)
	tracker.SetConnected(out.IsConnected())

	if announce != nil {
		snap := tracker.Snapshot()
		startup := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := announce.PublishSystem(startup); err != nil {
			logger.WithError(err).Warn("failed to publish startup event")
		} else {
			logger.Info("published startup event")
		}
	}

	if httpAddr != "" {
		srv := web.New(httpAddr, tracker, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("http server error")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		logger.WithField("addr", httpAddr).Info("http status server listening")
	}

	logger.WithFields(log.Fields{
		"buttons":  len(cfg.Buttons),
		"poll":     cfg.Poll(),
		"debounce": cfg.Debounce(),
		"lockout":  cfg.Lockout(),
		"scope":    cfg.LockoutScope,
		"sink":     sinkKind,
		"input":    inputKind,
	}).Info("started")

	ticker := time.NewTicker(cfg.Poll())
	defer ticker.Stop()

	l := &loop{
		d:         d,
		announce:  announce,
		tracker:   tracker,
		heartbeat: cfg.Heartbeat(),
		now:       time.Now,
		after:     time.After,
		logger:    logger,
	}
	return l.run(ticker.C, sigCh)
}

func openReader(kind string, cfg *config.Config, sigCh chan os.Signal, logger *log.Logger) (gpio.Reader, error) {
	switch kind {
	case "gpio":
		r, err := gpio.NewRealReader(cfg.Chip, cfg.Pins())
		if err != nil {
			return nil, fmt.Errorf("init gpio: %w", err)
		}
		return r, nil

	case "term":
		bindings, err := cfg.TermBindings()
		if err != nil {
			return nil, err
		}
		screen, err := tcell.NewScreen()
		if err != nil {
			return nil, fmt.Errorf("open terminal: %w", err)
		}
		r := gpio.NewTermReader(screen, bindings, cfg.TermTap(), time.Now, func() {
			select {
			case sigCh <- syscall.SIGINT:
			default:
			}
		})
		if err := r.Start(); err != nil {
			return nil, err
		}
		logger.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
		logger.SetOutput(r)
		return r, nil
	}
	return nil, fmt.Errorf("unknown input %q (want gpio or term)", kind)
}

func openSink(kind string, logger log.FieldLogger) (out sink.Sink, announce mqtt.SystemPublisher, target string, closeFn func(), err error) {
	switch kind {
	case "mqtt":
		s := mqtt.Connect(broker, clientID, topic, logger)
		return s, s, broker, func() { s.Close() }, nil
	case "ws":
		s := ws.New(wsURL, ws.DefaultRetry, logger, time.Now)
		s.Start()
		return s, nil, wsURL, func() { s.Close() }, nil
	case "log":
		return sink.NewLogSink(logger), nil, "", func() {}, nil
	}
	return nil, nil, "", nil, fmt.Errorf("unknown sink %q (want mqtt, ws or log)", kind)
}

func actionNames(b *logic.Bindings) map[string]string {
	out := make(map[string]string, b.Len())
	for _, id := range b.IDs() {
		if a, ok := b.Lookup(id); ok {
			out[id] = a.String()
		}
	}
	return out
}

// loop drives the dispatcher from the poll ticker. It is the only goroutine
// that touches the dispatcher.
type loop struct {
	d         *dispatch.Dispatcher
	announce  mqtt.SystemPublisher // nil when the sink has no system topic
	tracker   *status.Tracker      // may be nil
	heartbeat time.Duration        // zero disables
	now       func() time.Time
	after     func(time.Duration) <-chan time.Time
	logger    log.FieldLogger

	start         time.Time
	lastHeartbeat time.Time
	waiting       bool
	lastWaiting   time.Time
	holdC         <-chan time.Time
}

func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal) error {
	if l.start.IsZero() {
		l.start = l.now()
		l.lastHeartbeat = l.start
	}

	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil

		case <-tick:
			l.step()

		case <-l.holdC:
			l.holdC = nil
			l.step()
		}
	}
}

func (l *loop) step() {
	t := l.now()
	ms := logic.Millis(t.Sub(l.start).Milliseconds())

	rep, err := l.d.Tick(ms)
	l.logReport(rep, err, t)

	// wake when the chord hold ends rather than on the next poll
	if rem, ok := l.d.HoldRemaining(ms); ok && l.holdC == nil && l.after != nil {
		l.holdC = l.after(rem)
	}

	if l.tracker != nil {
		l.tracker.Record(rep, err, t)
		l.tracker.Update(l.d.States(), func(id string) time.Duration {
			return l.d.LockoutRemaining(id, ms)
		})
	}

	if l.heartbeat > 0 && t.Sub(l.lastHeartbeat) >= l.heartbeat {
		l.lastHeartbeat = t
		l.publishSystem("HEARTBEAT", "", false, t)
	}
}

func (l *loop) logReport(rep dispatch.Report, err error, t time.Time) {
	for _, e := range rep.Edges {
		l.logger.WithFields(log.Fields{"button": e.ID, "pin": e.Pin, "edge": e.Edge}).Debug("edge")
	}
	for _, id := range rep.Dropped {
		l.logger.WithField("button", id).Info("press dropped, not connected")
	}
	for _, id := range rep.Suppressed {
		l.logger.WithField("button", id).Warn("press suppressed by lockout")
	}
	if rep.Fired != "" && rep.Action != nil {
		l.logger.WithFields(log.Fields{"button": rep.Fired, "key": rep.Action.String()}).Info("sending key")
	}
	if rep.Released {
		l.logger.Debug("chord released")
	}
	if err != nil {
		l.logger.WithError(err).Warn("dispatch failed")
	}

	switch {
	case !rep.Connected && (!l.waiting || t.Sub(l.lastWaiting) >= waitingInterval):
		l.logger.Info("waiting for connection")
		l.waiting = true
		l.lastWaiting = t
	case rep.Connected && l.waiting:
		l.logger.Info("connected")
		l.waiting = false
	}
}

func (l *loop) shutdown(s os.Signal) {
	l.logger.WithField("signal", s).Info("shutting down")
	if err := l.d.Flush(); err != nil {
		l.logger.WithError(err).Warn("release held chord")
	}
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}
	l.publishSystem("SHUTDOWN", signalName, true, l.now())
}

func (l *loop) publishSystem(event, reason string, retained bool, t time.Time) {
	if l.announce == nil {
		return
	}
	se := mqtt.SystemEvent{
		Timestamp: t,
		Event:     event,
		Reason:    reason,
		Retained:  retained,
	}
	if l.tracker != nil {
		se.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), event, reason)
	}
	if err := l.announce.PublishSystem(se); err != nil {
		l.logger.WithError(err).WithField("event", event).Warn("failed to publish system event")
		return
	}
	l.logger.WithField("event", event).Info("published system event")
}
