package serialmux

import (
	"context"
	"net/http"
	"sync"

	"tailscale.com/tsweb"
)

// DisabledSerialMux stands in for the oracle when the server runs without a
// pose source (-disable-serial). No lines are ever delivered; subscriber
// channels stay open until Unsubscribe or Close.
type DisabledSerialMux struct {
	status *OracleStatus

	mu          sync.Mutex
	subscribers map[string]chan string
	closing     bool
}

func NewDisabledSerialMux() *DisabledSerialMux {
	return &DisabledSerialMux{
		status:      NewOracleStatus(),
		subscribers: make(map[string]chan string),
	}
}

func (d *DisabledSerialMux) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		close(ch)
		return id, ch
	}
	d.subscribers[id] = ch
	return id, ch
}

func (d *DisabledSerialMux) Unsubscribe(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.subscribers[id]; ok {
		close(ch)
		delete(d.subscribers, id)
	}
}

// SendCommand discards the command.
func (d *DisabledSerialMux) SendCommand(string) error { return nil }

// Monitor blocks until ctx is cancelled.
func (d *DisabledSerialMux) Monitor(ctx context.Context) error {
	diagf("pose oracle disabled; no frames will be read")
	<-ctx.Done()
	return ctx.Err()
}

func (d *DisabledSerialMux) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		return nil
	}
	d.closing = true
	for id, ch := range d.subscribers {
		close(ch)
		delete(d.subscribers, id)
	}
	return nil
}

// Initialise has no start-up commands to send.
func (d *DisabledSerialMux) Initialise() error { return nil }

// Status is always empty.
func (d *DisabledSerialMux) Status() *OracleStatus { return d.status }

// LineCounts is always zero.
func (d *DisabledSerialMux) LineCounts() (read, dropped uint64) { return 0, 0 }

// AttachAdminRoutes serves the same oracle-status route as SerialMux, marked
// as disabled.
func (d *DisabledSerialMux) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("oracle-status", "pose oracle disabled", oracleStatusHandler(false, d.status, d.LineCounts))
}

var (
	_ SerialMuxInterface = (*DisabledSerialMux)(nil)
	_ SerialMuxInterface = (*SerialMux[SerialPorter])(nil)
)
