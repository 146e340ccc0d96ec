package events

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
)

// Server accepts raw TCP feed subscribers.
type Server struct {
	Addr string
	Hub  *Hub
	Log  *slog.Logger
}

func NewServer(addr string, hub *Hub, log *slog.Logger) *Server {
	return &Server{Addr: addr, Hub: hub, Log: log}
}

// ListenAndServe listens on s.Addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.Log.Info("activity feed listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.Log.Warn("feed accept failed", "error", err)
			continue
		}

		_, _ = conn.Write(s.Hub.welcome("tcp"))
		s.Hub.Add(conn)
		s.Log.Debug("feed client connected", "remote", conn.RemoteAddr().String())

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				s.Log.Debug("feed client disconnected", "remote", c.RemoteAddr().String())
			}()

			// clients don't send anything meaningful; read until they hang up
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}
