// Package peer is a bench stand-in for the remote end of the link. It
// accepts clients, logs heartbeats and sensor frames, and can answer
// heartbeats so the client's receiver sees traffic.
package peer

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/antonionduarte/go-link-supervisor/pkg/link"
	linknet "github.com/antonionduarte/go-link-supervisor/pkg/link/net"
)

type (
	Server struct {
		logger *slog.Logger
		reply  bool

		mu    sync.Mutex
		stats Stats
	}

	// Stats counts what the peer has seen across all clients.
	Stats struct {
		Clients    int
		Heartbeats int
		Frames     int
		Unknown    int
		LastSeq    string
		LastFrame  link.SensorReading
	}
)

func New(logger *slog.Logger, reply bool) *Server {
	if logger == nil {
		logger = slog.Default().With("component", link.ComponentPeer)
	}
	return &Server{logger: logger, reply: reply}
}

func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Info("peer listening", "addr", listener.Addr().String())
	return s.Serve(ctx, listener)
}

// Serve accepts clients until ctx is cancelled. Clients are handled one at
// a time, matching the single-connection client.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept failed", "err", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		s.mu.Lock()
		s.stats.Clients++
		s.mu.Unlock()

		s.logger.Info("client connected", "remote", conn.RemoteAddr().String())
		s.handle(ctx, conn)
		s.logger.Info("client disconnected", "remote", conn.RemoteAddr().String())
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	r := bufio.NewReader(conn)
	for {
		first, err := r.Peek(1)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("read failed", "err", err)
			}
			return
		}

		if first[0] == linknet.HeartbeatPrefix[0] {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			s.onLine(conn, strings.TrimSuffix(line, "\n"))
			continue
		}

		frame := make([]byte, link.SensorFrameSize)
		if _, err := io.ReadFull(r, frame); err != nil {
			return
		}
		s.onFrame(frame)
	}
}

func (s *Server) onLine(conn net.Conn, line string) {
	seq, ok := strings.CutPrefix(line, linknet.HeartbeatPrefix)
	s.mu.Lock()
	if ok {
		s.stats.Heartbeats++
		s.stats.LastSeq = seq
	} else {
		s.stats.Unknown++
	}
	s.mu.Unlock()

	if !ok {
		s.logger.Warn("unexpected line", "line", line)
		return
	}
	s.logger.Debug("heartbeat", "seq", seq)
	if s.reply {
		_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if _, err := conn.Write([]byte("PONG#" + seq + "\n")); err != nil {
			s.logger.Warn("reply failed", "err", err)
		}
	}
}

func (s *Server) onFrame(frame []byte) {
	reading, ok := link.DecodeSensorFrame(frame)
	s.mu.Lock()
	if ok {
		s.stats.Frames++
		s.stats.LastFrame = reading
	} else {
		s.stats.Unknown++
	}
	s.mu.Unlock()

	if !ok {
		s.logger.Warn("malformed frame", "bytes", frame)
		return
	}
	s.logger.Info("sensor frame",
		"seq", reading.Sequence,
		"temperature", reading.Temperature,
		"humidity", reading.Humidity,
		"pressure", reading.Pressure)
}
