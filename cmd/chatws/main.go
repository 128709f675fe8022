// Command chatws is a terminal chat client: it prints messages broadcast in a room and sends
// every line read from stdin as a chat message.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sonirico/chatws"
)

// Version of the binary, assigned during build.
var Version = "dev"

// Options contains the flag options. Unset flags keep the values read from CHATWS_* variables.
type Options struct {
	Verbose      []bool        `short:"v" long:"verbose" description:"Show verbose logging."`
	Version      bool          `long:"version" description:"Print version and exit."`
	Host         string        `long:"host" description:"Chat server base URL, e.g. http://localhost:8080."`
	User         string        `short:"u" long:"user" description:"User id to send messages as. Random when empty."`
	Room         string        `short:"r" long:"room" description:"Room to send messages to."`
	Origin       string        `long:"origin" description:"Origin header sent on the handshake."`
	PingInterval time.Duration `long:"ping-interval" description:"Send keep-alive pings at this interval."`
}

var logLevels = []logrus.Level{
	logrus.WarnLevel,
	logrus.InfoLevel,
	logrus.DebugLevel,
}

func fail(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(code)
}

func main() {
	options := Options{}
	parser := flags.NewParser(&options, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(2)
	}

	if options.Version {
		fmt.Println(Version)
		return
	}

	cfg, err := chatws.ParseConfigEnv()
	if err != nil {
		fail(2, "%s\n", err)
	}
	applyOptions(&cfg, options)

	user := options.User
	if user == "" {
		user = uuid.NewString()
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	numVerbose := len(options.Verbose)
	if numVerbose >= len(logLevels) {
		numVerbose = len(logLevels) - 1
	}
	log.SetLevel(logLevels[numVerbose])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, chatws.NewLogrusLogger(log), cfg, user, os.Stdin, os.Stdout); err != nil {
		fail(1, "%s\n", err)
	}
}

func applyOptions(cfg *chatws.Config, options Options) {
	if options.Host != "" {
		cfg.Host = options.Host
	}
	if options.Room != "" {
		cfg.Room = options.Room
	}
	if options.Origin != "" {
		cfg.Origin = options.Origin
	}
	if options.PingInterval > 0 {
		cfg.PingInterval = options.PingInterval
	}
}

func run(ctx context.Context, logger chatws.Logger, cfg chatws.Config, user string, in io.Reader, out io.Writer) error {
	out = &lockedWriter{w: out}
	client := chatws.NewChatClientFromConfig(logger, cfg)
	defer client.Disconnect()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client.OnMessage(func(m chatws.InboundMessage) {
		fmt.Fprintln(out, formatMessage(m))
	})
	client.OnEvent(chatws.EventClose, func(e chatws.Event) {
		fmt.Fprintf(out, "* disconnected: %v\n", e.Err)
		cancel()
	})

	if err := client.Connect(ctx).Wait(ctx); err != nil {
		return errors.Wrapf(err, "cannot connect to %s", client.URL())
	}
	fmt.Fprintf(out, "* connected to %s as %s in #%s\n", client.URL(), user, cfg.Room)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			if _, err := client.SendMessage(user, line, cfg.Room); err != nil {
				fmt.Fprintf(out, "* not sent: %s\n", err)
			}
		}
	}
}

func formatMessage(m chatws.InboundMessage) string {
	var p chatws.OutboundPayload
	if err := m.Decode(&p); err != nil || p.UserID == "" {
		return string(m.Raw)
	}

	ts := p.Timestamp
	if t, err := p.Time(); err == nil {
		ts = t.Local().Format("15:04:05")
	}
	return fmt.Sprintf("[%s] #%s <%s> %s", ts, p.Room, p.UserID, p.Message)
}

// lockedWriter serializes writes coming from stdin handling and from the socket goroutine.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.Write(p)
}
