package net

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/engine"
	"fenrir/internal/worker"
)

const (
	maxRecvSize        = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = 30 * time.Second
)

var ErrImproperConversion = errors.New("net: improper task type conversion")

// session tracks one connected client's socket.
type session struct {
	conn net.Conn
}

// Server is the TCP ingress/egress adapter in front of an Engine: it
// turns wire frames into Commands on the way in, and fans the Engine's
// published Events out to every connected client on the way out. It
// holds no matching state of its own.
type Server struct {
	address  string
	commands chan<- engine.Command
	sub      *engine.Subscription
	pool     *worker.Pool
	cancel   context.CancelFunc

	sessionsMu sync.Mutex
	sessions   map[string]session
}

// New constructs a Server that enqueues parsed commands onto commands
// and fans events read from sub out to every connected client.
func New(address string, commands chan<- engine.Command, sub *engine.Subscription) *Server {
	return &Server{
		address:  address,
		commands: commands,
		sub:      sub,
		pool:     worker.NewPool(defaultNWorkers),
		sessions: make(map[string]session),
	}
}

// Shutdown cancels the server's run context.
func (s *Server) Shutdown() {
	log.Info().Msg("net: server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run starts the listener, the connection worker pool, and the event
// fan-out goroutine. It blocks until ctx is done or the listener fails.
func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.address)
	if err != nil {
		log.Error().Err(err).Str("address", s.address).Msg("net: unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("net: unable to close listener")
		}
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})

	t.Go(func() error {
		return s.fanOutEvents(t)
	})

	log.Info().Str("address", s.address).Msg("net: server listening")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("net: error accepting connection")
				continue
			}

			log.Info().Str("remote", conn.RemoteAddr().String()).Msg("net: client connected")
			s.addSession(conn)
			s.pool.AddTask(conn)
		}
	}
}

// fanOutEvents drains the engine's broadcast subscription and writes
// each event to every currently connected session.
func (s *Server) fanOutEvents(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case ev, ok := <-s.sub.Events():
			if !ok {
				return nil
			}
			frame, err := EncodeEvent(ev)
			if err != nil {
				log.Error().Err(err).Msg("net: unable to encode event")
				continue
			}
			s.broadcastFrame(frame)
		}
	}
}

func (s *Server) broadcastFrame(frame []byte) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	for addr, sess := range s.sessions {
		if _, err := sess.conn.Write(frame); err != nil {
			log.Error().Err(err).Str("remote", addr).Msg("net: failed to write event frame, dropping session")
			delete(s.sessions, addr)
		}
	}
}

// handleConnection reads the next frame off conn, translates it into a
// Command and enqueues it onto the engine's inbound channel — a
// blocking send, which is the system's sole back-pressure mechanism —
// then re-queues the connection to read its next frame. Any error
// returned from here is fatal to the worker pool's tomb.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	remote := conn.RemoteAddr().String()

	if err := conn.SetReadDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().Err(err).Str("remote", remote).Msg("net: failed setting read deadline")
		s.removeSession(remote)
		return nil
	}

	select {
	case <-t.Dying():
		return nil
	default:
	}

	buffer := make([]byte, maxRecvSize)
	n, err := conn.Read(buffer)
	if err != nil {
		log.Info().Err(err).Str("remote", remote).Msg("net: connection closed")
		s.removeSession(remote)
		return nil
	}

	msg, err := parseMessage(buffer[:n])
	if err != nil {
		log.Error().Err(err).Str("remote", remote).Msg("net: error parsing message")
		if _, werr := conn.Write(EncodeErrorFrame(err)); werr != nil {
			s.removeSession(remote)
			return nil
		}
		s.pool.AddTask(conn)
		return nil
	}

	if msg != nil {
		select {
		case s.commands <- msg.Command():
		case <-t.Dying():
			return nil
		}
	}

	s.pool.AddTask(conn)
	return nil
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions[conn.RemoteAddr().String()] = session{conn: conn}
}

func (s *Server) removeSession(address string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.sessions, address)
}
