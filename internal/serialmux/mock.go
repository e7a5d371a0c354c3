package serialmux

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
)

// Responder produces the reply line for one command line. An empty reply
// sends nothing.
type Responder func(command string) string

// ResponderPort is an in-memory SerialPorter that answers each written
// command line through a Responder, like a controller on the other end of
// the cable. It backs the simulator-free tests of this package and of the
// hardware layer.
type ResponderPort struct {
	mu       sync.Mutex
	respond  Responder
	commands []string
	partial  bytes.Buffer
	closed   bool

	// WriteError is returned by the next Write call if set.
	WriteError error

	r    *io.PipeReader
	w    *io.PipeWriter
	out  chan string
	done chan struct{}
}

// NewResponderPort starts a port that answers commands with respond. A nil
// respond never replies.
func NewResponderPort(respond Responder) *ResponderPort {
	if respond == nil {
		respond = func(string) string { return "" }
	}
	r, w := io.Pipe()
	p := &ResponderPort{
		respond: respond,
		r:       r,
		w:       w,
		out:     make(chan string, 64),
		done:    make(chan struct{}),
	}
	go p.pump()
	return p
}

func (p *ResponderPort) pump() {
	for {
		select {
		case <-p.done:
			return
		case line := <-p.out:
			if _, err := io.WriteString(p.w, line+"\n"); err != nil {
				return
			}
		}
	}
}

// Read returns reply bytes as the mux reads them.
func (p *ResponderPort) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

// Write records each complete command line and queues its reply.
func (p *ResponderPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, errors.New("serial port closed")
	}
	if p.WriteError != nil {
		err := p.WriteError
		p.WriteError = nil
		return 0, err
	}

	p.partial.Write(b)
	scan := bufio.NewScanner(bytes.NewReader(p.partial.Bytes()))
	consumed := 0
	for scan.Scan() {
		raw := scan.Bytes()
		if consumed+len(raw) >= p.partial.Len() {
			// no trailing newline yet
			break
		}
		consumed += len(raw) + 1
		cmd := strings.TrimSpace(string(raw))
		if cmd == "" {
			continue
		}
		p.commands = append(p.commands, cmd)
		if reply := p.respond(cmd); reply != "" {
			p.queue(reply)
		}
	}
	p.partial.Next(consumed)
	return len(b), nil
}

// queue drops the line when nobody is reading and the backlog is full.
func (p *ResponderPort) queue(line string) {
	select {
	case p.out <- line:
	default:
	}
}

// Emit pushes an unsolicited line to the reader.
func (p *ResponderPort) Emit(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.queue(line)
	}
}

// Commands returns every command line written so far.
func (p *ResponderPort) Commands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.commands))
	copy(out, p.commands)
	return out
}

// SetResponder swaps the reply function.
func (p *ResponderPort) SetResponder(respond Responder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.respond = respond
}

// Close stops the port; pending reads return io.EOF.
func (p *ResponderPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)
	p.w.Close()
	return nil
}

// Closed reports whether Close was called.
func (p *ResponderPort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
