package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mickamy/engine-tap/scenario"
	"github.com/mickamy/engine-tap/session"
	"github.com/mickamy/engine-tap/transport"
	"github.com/mickamy/engine-tap/wire"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("engine-tap", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "engine-tap — drive a matching engine with scripted load\n\nUsage:\n  engine-tap [flags] <scenario-id>\n  engine-tap [flags] repl\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nScenarios:\n")
		for _, s := range scenario.Catalog() {
			fmt.Fprintf(os.Stderr, "  %3d  %s\n", s.ID, s.Name)
		}
	}

	host := fs.String("host", "127.0.0.1", "engine host")
	port := fs.Int("port", 9000, "engine port")
	transportType := fs.String("transport", "tcp", "engine transport: tcp or udp")
	protocol := fs.String("protocol", "", "force wire protocol: binary or csv (default: probe)")
	verbose := fs.Bool("v", false, "debug logging")
	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("engine-tap %s\n", version)
		return
	}
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	log := newLogger(*verbose)
	sess, err := connect(*host, *port, *transportType)
	if err != nil {
		log.Error().Err(err).Msg("connect")
		os.Exit(1)
	}
	defer func() { _ = sess.Close() }()

	switch *protocol {
	case "":
		proto, err := sess.Detect()
		if err != nil {
			log.Error().Err(err).Msg("protocol discovery")
			os.Exit(1)
		}
		log.Info().Stringer("protocol", proto).Msg("engine protocol detected")
	case "binary":
		sess.SetProtocol(session.Binary)
	case "csv":
		sess.SetProtocol(session.CSV)
	default:
		log.Error().Str("protocol", *protocol).Msg("unknown protocol (want binary or csv)")
		os.Exit(1)
	}

	if fs.Arg(0) == "repl" {
		runREPL(sess, log)
		return
	}

	id, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		fs.Usage()
		os.Exit(1)
	}

	v := scenario.New(sess, log).Run(id)
	if v.Passed {
		fmt.Println("*** TEST PASSED ***")
		return
	}
	fmt.Println("*** TEST FAILED ***")
	os.Exit(1)
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

func connect(host string, port int, transportType string) (*session.Session, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	switch transportType {
	case "tcp":
		st, err := transport.DialStream(context.Background(), addr, 5*time.Second)
		if err != nil {
			return nil, err
		}
		return session.New(st), nil
	case "udp":
		dg, err := transport.DialDatagram(addr)
		if err != nil {
			return nil, err
		}
		return session.New(dg), nil
	}
	return nil, fmt.Errorf("unknown transport %q (want tcp or udp)", transportType)
}

// runREPL is a thin shell over the session. The background reader that
// prints incoming events is the REPL's own adapter; the session itself
// never spawns goroutines.
func runREPL(sess *session.Session, log zerolog.Logger) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			ev, ok, err := sess.Recv(time.Now().Add(200 * time.Millisecond))
			if err != nil {
				log.Warn().Err(err).Msg("session closed")
				return
			}
			if ok {
				printEvent(ev)
			}
		}
	}()

	fmt.Println("engine-tap repl — type help for commands")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "exit":
			return
		case "help":
			printHelp()
		case "proto":
			replProto(sess, fields[1:])
		case "new":
			replNew(sess, log, fields[1:])
		case "cancel":
			replCancel(sess, log, fields[1:])
		case "flush":
			if err := sess.SendRequest(wire.Flush{}); err != nil {
				log.Error().Err(err).Msg("send flush")
			}
		default:
			fmt.Printf("unknown command %q — type help\n", fields[0])
		}
	}
}

func printHelp() {
	fmt.Print(`commands:
  new <user> <symbol> <price> <qty> <B|S>   place an order (id auto-assigned)
  cancel <user> <symbol> <order-id>         withdraw an order
  flush                                     clear the engine books
  proto [binary|csv]                        show or force the wire protocol
  quit                                      leave
`)
}

func replProto(sess *session.Session, args []string) {
	if len(args) == 0 {
		fmt.Println(sess.Protocol())
		return
	}
	switch args[0] {
	case "binary":
		sess.SetProtocol(session.Binary)
	case "csv":
		sess.SetProtocol(session.CSV)
	default:
		fmt.Printf("unknown protocol %q\n", args[0])
	}
}

func replNew(sess *session.Session, log zerolog.Logger, args []string) {
	usage := func() { fmt.Println("usage: new <user> <symbol> <price> <qty> <B|S>") }
	if len(args) != 5 {
		usage()
		return
	}
	user, err1 := strconv.ParseUint(args[0], 10, 32)
	price, err2 := strconv.ParseUint(args[2], 10, 32)
	qty, err3 := strconv.ParseUint(args[3], 10, 32)
	if err1 != nil || err2 != nil || err3 != nil {
		usage()
		return
	}
	var side wire.Side
	switch args[4] {
	case "B", "b":
		side = wire.Buy
	case "S", "s":
		side = wire.Sell
	default:
		usage()
		return
	}
	req := wire.NewOrder{
		User:    uint32(user),
		Symbol:  args[1],
		Price:   uint32(price),
		Qty:     uint32(qty),
		Side:    side,
		OrderID: sess.NextOrderID(),
	}
	if err := sess.SendRequest(req); err != nil {
		log.Error().Err(err).Msg("send order")
		return
	}
	fmt.Printf("-> order %d sent\n", req.OrderID)
}

func replCancel(sess *session.Session, log zerolog.Logger, args []string) {
	if len(args) != 3 {
		fmt.Println("usage: cancel <user> <symbol> <order-id>")
		return
	}
	user, err1 := strconv.ParseUint(args[0], 10, 32)
	order, err2 := strconv.ParseUint(args[2], 10, 32)
	if err1 != nil || err2 != nil {
		fmt.Println("usage: cancel <user> <symbol> <order-id>")
		return
	}
	req := wire.Cancel{User: uint32(user), Symbol: args[1], OrderID: uint32(order)}
	if err := sess.SendRequest(req); err != nil {
		log.Error().Err(err).Msg("send cancel")
	}
}

func printEvent(ev wire.Event) {
	switch e := ev.(type) {
	case wire.Ack:
		fmt.Printf("<- ack %s user=%d order=%d\n", e.Symbol, e.User, e.OrderID)
	case wire.CancelAck:
		fmt.Printf("<- cancel-ack %s user=%d order=%d\n", e.Symbol, e.User, e.OrderID)
	case wire.Reject:
		fmt.Printf("<- reject %s user=%d order=%d reason=%d\n", e.Symbol, e.User, e.OrderID, e.Reason)
	case wire.CancelReject:
		fmt.Printf("<- cancel-reject %s user=%d order=%d reason=%d\n", e.Symbol, e.User, e.OrderID, e.Reason)
	case wire.Trade:
		fmt.Printf("<- trade %s %d@%d buy(%d/%d) sell(%d/%d)\n",
			e.Symbol, e.Qty, e.Price, e.BuyUser, e.BuyOrder, e.SellUser, e.SellOrder)
	case wire.TopOfBook:
		if e.Eliminated() {
			fmt.Printf("<- tob %s %s eliminated\n", e.Symbol, e.Side)
			return
		}
		fmt.Printf("<- tob %s %s %d@%d\n", e.Symbol, e.Side, e.Qty, e.Price)
	case wire.ParseError:
		fmt.Printf("<- parse error: %v (%d bytes)\n", e.Err, len(e.Raw))
	}
}
