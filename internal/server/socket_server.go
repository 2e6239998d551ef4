package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/slot-booking/internal/dto"
	appErrors "github.com/noah-isme/slot-booking/pkg/errors"
	"github.com/noah-isme/slot-booking/pkg/framing"
	"github.com/noah-isme/slot-booking/pkg/logger"
	"github.com/noah-isme/slot-booking/pkg/middleware/requestid"
)

// RequestHandler turns one framed request into one framed reply.
type RequestHandler interface {
	Handle(ctx context.Context, raw []byte, callerAddress string) []byte
}

type connectionObserver interface {
	ConnectionOpened()
	ConnectionClosed()
}

// Config tunes connection handling.
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int
}

// SocketServer serves the booking protocol over TCP. Each connection carries
// exactly one request and one reply, then closes.
type SocketServer struct {
	cfg      Config
	handler  RequestHandler
	observer connectionObserver
	logger   *zap.Logger

	mu       sync.Mutex
	listener  net.Listener
	ready     chan struct{}
	readyOnce sync.Once

	// active tracks in-flight connections so Serve can wait for them.
	active sync.WaitGroup
}

// NewSocketServer creates a server. observer may be nil.
func NewSocketServer(cfg Config, handler RequestHandler, observer connectionObserver, logger *zap.Logger) *SocketServer {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = framing.DefaultMaxMessageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SocketServer{
		cfg:      cfg,
		handler:  handler,
		observer: observer,
		logger:   logger,
		ready:    make(chan struct{}),
	}
}

// Serve listens on the configured address and blocks until ctx is cancelled.
// It then stops accepting and waits for in-flight connections.
func (s *SocketServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, listener)
}

// ServeListener is Serve on an existing listener, which it closes on return.
func (s *SocketServer) ServeListener(ctx context.Context, listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })

	defer listener.Close()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("socket server listening", zap.String("addr", listener.Addr().String()))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", zap.Error(err))
			continue
		}

		s.active.Add(1)
		go func() {
			defer s.active.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.active.Wait()
	s.logger.Info("socket server stopped")
	return nil
}

// Addr blocks until the server is listening and returns its address.
func (s *SocketServer) Addr() net.Addr {
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener.Addr()
}

func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	if s.observer != nil {
		s.observer.ConnectionOpened()
		defer s.observer.ConnectionClosed()
	}

	connID := requestid.New()
	remote := conn.RemoteAddr().String()
	log := logger.ForConnection(s.logger, connID, remote)

	transceiver := framing.NewTransceiver(conn, s.cfg.MaxMessageSize)

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	raw, err := transceiver.Receive()
	if err != nil {
		if errors.Is(err, io.EOF) {
			log.Debug("client connected but sent nothing")
			return
		}
		log.Warn("receive failed", zap.Error(err))
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return
		}
		s.reject(conn, transceiver, err, log)
		return
	}

	reply := s.handler.Handle(requestid.WithContext(ctx, connID), raw, remote)

	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := transceiver.Send(reply); err != nil {
		log.Error("send reply failed", zap.Int("reply_bytes", len(reply)), zap.Error(err))
	}
}

// reject answers a request that could not be read off the wire.
func (s *SocketServer) reject(conn net.Conn, transceiver *framing.Transceiver, cause error, log *zap.Logger) {
	reply, err := dto.EncodeReply(dto.Failure(appErrors.Wrap(cause, appErrors.ErrMalformedRequest.Code, "malformed request: "+cause.Error())))
	if err != nil {
		log.Error("encode rejection failed", zap.Error(err))
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := transceiver.Send(reply); err != nil {
		log.Error("send rejection failed", zap.Error(err))
	}
}
