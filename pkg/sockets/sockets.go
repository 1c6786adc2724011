package sockets

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
)

const defaultReadBufferSize = 4096

// Listener receives event datagrams on a UDP port and hands them to the
// OnMessage callback, one goroutine per datagram.
type Listener struct {
	host           string
	port           int
	readBufferSize int
	onError        func(err error)
	onMessage      func([]byte, *net.UDPAddr)
	onStarted      func(*net.UDPAddr)

	mu   sync.Mutex
	conn *net.UDPConn
}

func NewListener(opts ...func(*Listener)) *Listener {
	l := &Listener{readBufferSize: defaultReadBufferSize}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Addr is the bound address, or nil before Listen has bound.
func (l *Listener) Addr() *net.UDPAddr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr().(*net.UDPAddr)
}

// Listen binds and reads until ctx is done. OnStarted fires once the
// socket is bound.
func (l *Listener) Listen(ctx context.Context) error {
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", net.JoinHostPort(l.host, strconv.Itoa(l.port)))
	if err != nil {
		return err
	}
	conn := pc.(*net.UDPConn)
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	if l.onStarted != nil {
		l.onStarted(conn.LocalAddr().(*net.UDPAddr))
	}

	buf := make([]byte, l.readBufferSize)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}
			if l.onError != nil {
				l.onError(err)
			}
			continue
		}
		l.onMsg(append([]byte(nil), buf[:n]...), addr)
	}
}

func (l *Listener) onMsg(msg []byte, addr *net.UDPAddr) {
	if l.onMessage != nil {
		go l.onMessage(msg, addr)
	}
}
