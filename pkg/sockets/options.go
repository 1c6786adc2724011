package sockets

import "net"

func WithHost(host string) func(*Listener) {
	return func(l *Listener) {
		l.host = host
	}
}

// WithPort sets the UDP port. Zero picks a free port.
func WithPort(port int) func(*Listener) {
	return func(l *Listener) {
		l.port = port
	}
}

func WithReadBufferSize(size int) func(*Listener) {
	return func(l *Listener) {
		if size > 0 {
			l.readBufferSize = size
		}
	}
}

func OnMessage(f func([]byte, *net.UDPAddr)) func(*Listener) {
	return func(l *Listener) {
		l.onMessage = f
	}
}

func OnError(f func(error)) func(*Listener) {
	return func(l *Listener) {
		l.onError = f
	}
}

func OnStarted(f func(*net.UDPAddr)) func(*Listener) {
	return func(l *Listener) {
		l.onStarted = f
	}
}
