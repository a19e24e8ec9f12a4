// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package socket

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/tripmate-app/tripmate/lib/secret"
)

// MemoryTransport is an in-process [Transport] for tests. Each
// successful Dial produces a [MemoryPeer] that the test retrieves with
// Accept and uses to play the server side of the link.
type MemoryTransport struct {
	mu      sync.Mutex
	dialErr error
	dials   int

	accepted chan *MemoryPeer
}

// NewMemoryTransport returns a transport whose dials succeed until
// FailDials is called.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{accepted: make(chan *MemoryPeer, 16)}
}

// FailDials makes subsequent dials return err. A nil err lets dials
// succeed again.
func (t *MemoryTransport) FailDials(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dialErr = err
}

// Dials returns the number of Dial calls, successful or not.
func (t *MemoryTransport) Dials() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

// Dial implements [Transport].
func (t *MemoryTransport) Dial(ctx context.Context, token *secret.Token) (Link, error) {
	t.mu.Lock()
	t.dials++
	dialErr := t.dialErr
	t.mu.Unlock()
	if dialErr != nil {
		return nil, dialErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	peer := &MemoryPeer{
		toClient:   make(chan []byte, 64),
		fromClient: make(chan memoryFrame, 64),
		closed:     make(chan struct{}),
	}
	if token != nil {
		peer.Token = token.String()
	}
	select {
	case t.accepted <- peer:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &memoryLink{peer: peer}, nil
}

// Accept waits for the next successful Dial and returns its server
// side.
func (t *MemoryTransport) Accept(ctx context.Context) (*MemoryPeer, error) {
	select {
	case peer := <-t.accepted:
		return peer, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type memoryFrame struct {
	data   []byte
	binary bool
}

// MemoryPeer is the server end of a [MemoryTransport] link.
type MemoryPeer struct {
	// Token is the session token presented by the dialer.
	Token string

	toClient   chan []byte
	fromClient chan memoryFrame

	closeOnce sync.Once
	closed    chan struct{}
}

// Send delivers frame to the client. Returns net.ErrClosed after
// either side closed the link.
func (p *MemoryPeer) Send(frame []byte) error {
	select {
	case <-p.closed:
		return net.ErrClosed
	default:
	}
	select {
	case p.toClient <- frame:
		return nil
	case <-p.closed:
		return net.ErrClosed
	}
}

// Receive returns the next frame written by the client and whether it
// was sent as binary.
func (p *MemoryPeer) Receive(ctx context.Context) ([]byte, bool, error) {
	select {
	case frame := <-p.fromClient:
		return frame.data, frame.binary, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Drop severs the link from the server side. The client's next read
// fails with io.EOF.
func (p *MemoryPeer) Drop() {
	p.closeOnce.Do(func() { close(p.closed) })
}

// Closed is closed once either side has torn the link down.
func (p *MemoryPeer) Closed() <-chan struct{} {
	return p.closed
}

type memoryLink struct {
	peer *MemoryPeer
}

func (l *memoryLink) ReadFrame() ([]byte, error) {
	// Frames queued before a drop are still delivered.
	select {
	case frame := <-l.peer.toClient:
		return frame, nil
	default:
	}
	select {
	case frame := <-l.peer.toClient:
		return frame, nil
	case <-l.peer.closed:
		return nil, io.EOF
	}
}

func (l *memoryLink) WriteFrame(frame []byte, binary bool) error {
	select {
	case <-l.peer.closed:
		return net.ErrClosed
	default:
	}
	copied := append([]byte(nil), frame...)
	select {
	case l.peer.fromClient <- memoryFrame{data: copied, binary: binary}:
		return nil
	case <-l.peer.closed:
		return net.ErrClosed
	}
}

func (l *memoryLink) Close() error {
	l.peer.Drop()
	return nil
}
