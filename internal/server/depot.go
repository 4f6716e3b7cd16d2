package server

import (
	"context"
	"log/slog"

	"github.com/frjnn/wordquizzle/internal/protocol"
)

// Mail is one pending outbound reply: a payload addressed to the session
// that must receive it. The destination session is read-disabled when
// the mail is enqueued; delivery re-arms it.
type Mail struct {
	Session *Session
	Payload string
}

const depotCapacity = 1024

// Depot is the FIFO queue of pending mails, produced by worker tasks and
// drained by the single mailman. Per-session delivery order equals
// enqueue order.
type Depot struct {
	ch chan Mail
}

// NewDepot creates an empty depot.
func NewDepot() *Depot {
	return &Depot{ch: make(chan Mail, depotCapacity)}
}

// Put enqueues a mail.
func (d *Depot) Put(m Mail) {
	d.ch <- m
}

// Mailman is the dedicated consumer of the depot. For every mail it
// drains the payload onto the destination connection and then either
// closes the connection (logout sentinel) or re-arms the session for the
// next frame.
type Mailman struct {
	depot *Depot
}

// NewMailman creates a mailman over the given depot.
func NewMailman(depot *Depot) *Mailman {
	return &Mailman{depot: depot}
}

// Run delivers mails until ctx is cancelled.
func (m *Mailman) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case mail := <-m.depot.ch:
			m.deliver(mail)
		}
	}
}

func (m *Mailman) deliver(mail Mail) {
	if mail.Payload != "" {
		if err := mail.Session.Write(mail.Payload); err != nil {
			slog.Error("mail delivery failed", "port", mail.Session.RemotePort(), "err", err)
		}
	}

	if mail.Payload == protocol.MsgLogoutOK {
		mail.Session.Close()
		return
	}
	mail.Session.Rearm()
}
