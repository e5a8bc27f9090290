// Serialmux provides an abstraction over the pose-oracle link with the
// ability for multiple clients to subscribe to the frame lines it emits and
// send control commands to the single oracle process or device.
package serialmux

import (
	"bufio"
	"bytes"
	"context"
	crand "crypto/rand"
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"tailscale.com/tsweb"
)

var ErrWriteFailed = fmt.Errorf("failed to write to oracle port")

// subscriberBuffer is how many lines a slow subscriber may lag before lines
// are dropped for it.
const subscriberBuffer = 64

// maxLineBytes bounds one oracle line.
const maxLineBytes = 1 << 20

//go:embed templates/*
var adminTemplateFS embed.FS

var sendCommandTemplate = template.Must(template.ParseFS(adminTemplateFS, "templates/send-command.html.tmpl"))

// SerialMux is a generic line multiplexer that allows multiple clients to
// subscribe to the lines read from a single oracle port.
type SerialMux[T SerialPorter] struct {
	port          T
	startCommands []string
	status        *OracleStatus

	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	ended        bool // guarded by subscriberMu; no more lines will arrive
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex

	linesRead    atomic.Uint64
	linesDropped atomic.Uint64
}

// SerialMuxInterface defines the interface for the SerialMux type.
type SerialMuxInterface interface {
	// Subscribe creates a new channel for receiving lines from the oracle.
	// The channel ID is used to identify the unique channel when
	// unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// SendCommand writes the provided command line to the oracle.
	SendCommand(string) error
	// Monitor reads lines from the port and sends them to the subscribers.
	Monitor(context.Context) error
	// Close closes all subscribed channels and closes the port.
	Close() error

	// Initialise sends the configured start-up commands.
	Initialise() error

	// AttachAdminRoutes attaches admin debugging endpoints to the given HTTP
	// mux served at /debug/. These routes are accessible only over
	// localhost/via Tailscale and are not publicly accessible.
	AttachAdminRoutes(*http.ServeMux)
}

// Option customises a SerialMux.
type Option func(*muxOptions)

type muxOptions struct {
	startCommands []string
}

// WithStartCommands sets the lines Initialise writes to the oracle, in order.
func WithStartCommands(cmds ...string) Option {
	return func(o *muxOptions) { o.startCommands = append([]string(nil), cmds...) }
}

// NewSerialMux creates a SerialMux instance backed by the given port.
func NewSerialMux[T SerialPorter](port T, opts ...Option) *SerialMux[T] {
	var o muxOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &SerialMux[T]{
		port:          port,
		startCommands: o.startCommands,
		status:        NewOracleStatus(),
		subscribers:   make(map[string]chan string),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (s *SerialMux[T]) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string, subscriberBuffer)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if s.ended {
		close(ch)
		return id, ch
	}
	s.subscribers[id] = ch
	return id, ch
}

// endSubscribers closes every subscriber channel. Later subscribers receive
// an already closed channel.
func (s *SerialMux[T]) endSubscribers() {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.ended = true
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Unsubscribe removes a subscriber from the serial mux.
func (s *SerialMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Initialise writes the configured start-up commands, stopping at the first
// failure.
func (s *SerialMux[T]) Initialise() error {
	for _, command := range s.startCommands {
		if err := s.SendCommand(command); err != nil {
			return fmt.Errorf("failed to send start command %q: %w", command, err)
		}
	}
	if len(s.startCommands) > 0 {
		diagf("sent %d start-up commands to oracle", len(s.startCommands))
	}
	return nil
}

// SendCommand sends a command line to the oracle.
func (s *SerialMux[T]) SendCommand(command string) error {
	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	if !bytes.HasSuffix([]byte(command), []byte("\n")) {
		command += "\n" // ensure command ends with a newline
	}
	n, err := s.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	tracef("sent command %q", strings.TrimSpace(command))
	return nil
}

// Monitor reads lines from the port and fans them out to subscribers. It
// returns nil when the port reaches EOF.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)
	scan.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// the blocking scan.Scan will not interfere with our outer loop awaiting
	// lines & context cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			opsf("oracle port read failed: %v", err)
			return err

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					opsf("oracle port read failed: %v", err)
					return err
				default:
				}
				diagf("oracle port reached EOF after %d lines", s.linesRead.Load())
				s.endSubscribers()
				return nil
			}
			s.closingMu.Lock()
			if s.closing {
				s.closingMu.Unlock()
				return nil
			}
			s.closingMu.Unlock()

			s.linesRead.Add(1)
			if err := s.status.HandleLine(line); err != nil {
				opsf("bad oracle status line: %v", err)
			}

			s.subscriberMu.Lock()
			for _, ch := range s.subscribers {
				select {
				case ch <- line:
				default:
					// slow subscriber; drop rather than stall the oracle
					if n := s.linesDropped.Add(1); n == 1 || n%1000 == 0 {
						opsf("dropped %d oracle lines for slow subscribers", n)
					}
				}
			}
			s.subscriberMu.Unlock()
		}
	}
}

func (s *SerialMux[T]) Close() error {
	s.closingMu.Lock()
	s.closing = true
	s.closingMu.Unlock()

	s.endSubscribers()
	return s.port.Close()
}

// Status returns the oracle's self-reported status.
func (s *SerialMux[T]) Status() *OracleStatus { return s.status }

// LineCounts reports lines read from the port and lines dropped for slow
// subscribers.
func (s *SerialMux[T]) LineCounts() (read, dropped uint64) {
	return s.linesRead.Load(), s.linesDropped.Load()
}

func (s *SerialMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	// Basic command / live tail monitor interface using the below two API endpoints.
	debug.HandleFunc("send-command", "send a command to the pose oracle", func(w http.ResponseWriter, r *http.Request) {
		buf := bytes.NewBuffer(nil)
		if err := sendCommandTemplate.Execute(buf, nil); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
			return
		}
		io.Copy(w, buf)
	})

	// API endpoint to write a command to the oracle
	debug.HandleSilentFunc("send-command-api", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		command := strings.TrimSpace(r.FormValue("command"))
		if command == "" {
			http.Error(w, "Missing command", http.StatusBadRequest)
			return
		}
		if err := s.SendCommand(command); err != nil {
			http.Error(w, "Failed to write command", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, fmt.Sprintf("Wrote command %q to oracle", command))
	})

	debug.HandleFunc("oracle-status", "last status reported by the pose oracle", oracleStatusHandler(true, s.status, s.LineCounts))

	// API endpoint to issue Server-Side Events (SSE) for lines coming from the oracle.
	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		id, c := s.Subscribe()
		defer s.Unsubscribe(id)

		// Send initial ping to establish connection
		w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				_, err := w.Write([]byte(fmt.Sprintf("data: %s\n\n", payload)))
				if err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})

	debug.HandleSilentFunc("tail.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		w.Header().Set("Cache-Control", "no-cache")

		f, err := adminTemplateFS.Open("templates/tail.js")
		if err != nil {
			http.Error(w, "Failed to open tail.js", http.StatusInternalServerError)
			return
		}
		defer f.Close()
		io.Copy(w, f)
	})
}
