package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mickamy/engine-tap/config"
	"github.com/mickamy/engine-tap/relay"
	"github.com/mickamy/engine-tap/session"
	"github.com/mickamy/engine-tap/transport"
)

var version = "dev"

const statusInterval = 30 * time.Second

func main() {
	fs := flag.NewFlagSet("engine-tapd", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "engine-tapd — relay matching-engine events to WebSocket subscribers\n\nUsage:\n  engine-tapd [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n  ENGINE_HOST, ENGINE_PORT, TRANSPORT, MULTICAST_GROUP, MULTICAST_INTERFACE,\n  WS_HOST, WS_PORT, FILTER, VERBOSE mirror the flags.\n")
	}

	flags := config.Register(fs)
	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("engine-tapd %s\n", version)
		return
	}

	cfg, err := flags.Resolve()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := newLogger(cfg.Verbose)
	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("relay failed")
		os.Exit(1)
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{
		Out:         os.Stderr,
		NoColor:     true,
		FormatLevel: func(i any) string { return fmt.Sprintf("[%s]", i) },
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	filter, err := relay.ParseFilter(cfg.Filter)
	if err != nil {
		return err
	}

	tr, err := openTransport(ctx, cfg)
	if err != nil {
		return err
	}
	sess := session.New(tr)
	defer func() { _ = sess.Close() }()

	// A multicast subscription cannot carry a probe; payloads classify
	// themselves on decode.
	if cfg.Transport != "multicast" {
		proto, err := sess.Detect()
		if err != nil {
			return fmt.Errorf("detect protocol: %w", err)
		}
		log.Info().Stringer("protocol", proto).Msg("engine protocol detected")
	}

	metrics := relay.NewMetrics()
	hub := relay.NewHub(log, metrics)
	srv := relay.NewServer(hub, log, metrics)

	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", cfg.WSAddr())
	if err != nil {
		return fmt.Errorf("bind %s: %w", cfg.WSAddr(), err)
	}
	go func() {
		log.Info().Str("addr", cfg.WSAddr()).Msg("websocket server listening")
		if err := srv.Serve(lis); err != nil {
			log.Error().Err(err).Msg("serve")
		}
	}()

	producer := relay.NewProducer(sess, hub, filter, log, metrics)
	producerDone := make(chan error, 1)
	go func() { producerDone <- producer.Run(ctx) }()

	log.Info().
		Str("engine", cfg.EngineAddr()).
		Str("transport", cfg.Transport).
		Str("filter", filter.String()).
		Msg("relaying")

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return shutdown(srv, sess, producerDone)
		case err := <-producerDone:
			if err != nil {
				log.Warn().Err(err).Msg("producer stopped")
			}
			producerDone = nil
			stop()
		case <-ticker.C:
			log.Info().Int("subscribers", hub.Len()).Msg("status")
		}
	}
}

// shutdown order: close the engine transport, then stop the listener
// and close-frame the subscribers (the server shutdown does both). The
// listener is still accepting while the engine transport closes.
func shutdown(srv *relay.Server, sess *session.Session, producerDone chan error) error {
	_ = sess.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if producerDone != nil {
		select {
		case <-producerDone:
		case <-time.After(time.Second):
		}
	}
	return err
}

func openTransport(ctx context.Context, cfg config.Config) (transport.Transport, error) {
	switch cfg.Transport {
	case "tcp":
		return transport.DialStream(ctx, cfg.EngineAddr(), 5*time.Second)
	case "udp":
		return transport.DialDatagram(cfg.EngineAddr())
	case "multicast":
		return transport.JoinMulticast(cfg.MulticastGroup, cfg.MulticastInterface)
	}
	return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
}
