package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/nickyhof/deltactl"
)

// Server is a TCP server that runs deltactl commands, one JSON request per
// line. Every connection gets its own query session.
type Server struct {
	listener   net.Listener
	opts       deltactl.Options
	authConfig *AuthConfig
	tlsConfig  *tls.Config
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewServer creates a server without authentication.
func NewServer(opts deltactl.Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// NewServerWithAuth creates a server that requires AUTH before commands.
func NewServerWithAuth(opts deltactl.Options, authConfig *AuthConfig) *Server {
	s := NewServer(opts)
	s.authConfig = authConfig
	return s
}

func (s *Server) authEnabled() bool {
	return s.authConfig != nil && s.authConfig.Enabled
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	log.WithFields(log.Fields{"addr": listener.Addr().String(), "auth": s.authEnabled()}).Info("server listening")

	go s.acceptLoop()
	return nil
}

// StartTLS begins listening for TLS connections using the given certificate.
func (s *Server) StartTLS(addr, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}
	s.tlsConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	listener, err := tls.Listen("tcp", addr, s.tlsConfig)
	if err != nil {
		return fmt.Errorf("failed to start TLS server: %w", err)
	}
	s.listener = listener

	log.WithFields(log.Fields{"addr": listener.Addr().String(), "auth": s.authEnabled(), "tls": true}).Info("server listening")

	go s.acceptLoop()
	return nil
}

// TLSEnabled reports whether the server was started with TLS.
func (s *Server) TLSEnabled() bool {
	return s.tlsConfig != nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	close(s.done)
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				log.WithError(err).Warn("accept failed")
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	logger := log.WithField("client", conn.RemoteAddr().String())
	logger.Debug("client connected")

	var (
		state    ConnectionState
		instance *deltactl.Instance
	)
	defer func() {
		if instance != nil {
			instance.Close()
		}
	}()

	reader := bufio.NewReader(conn)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		// One request per line
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				logger.WithError(err).Warn("read failed")
			}
			return
		}

		request := strings.TrimSpace(line)
		if request == "" {
			continue
		}

		if strings.EqualFold(request, "quit") || strings.EqualFold(request, "exit") {
			logger.Debug("client disconnected")
			return
		}

		var response Response
		switch {
		case isAuthCommand(request):
			response = s.handleAuth(request, &state)
			if response.Success {
				logger.WithField("identity", state.Identity().String()).Info("client authenticated")
			}
		case s.authEnabled() && !state.IsAuthenticated():
			response = Response{Success: false, Error: "authentication required: send AUTH JWT <token>"}
		default:
			if instance == nil {
				instance, err = deltactl.Open(s.opts)
				if err != nil {
					response = Response{Success: false, Error: err.Error()}
					break
				}
			}
			response = s.executeCommand(instance, request)
		}

		data, err := EncodeResponse(response)
		if err != nil {
			logger.WithError(err).Error("failed to encode response")
			continue
		}

		if _, err := conn.Write(data); err != nil {
			logger.WithError(err).Warn("write failed")
			return
		}
	}
}

func (s *Server) executeCommand(instance *deltactl.Instance, request string) Response {
	cmd, err := DecodeRequest([]byte(request))
	if err != nil {
		return Response{Success: false, Error: fmt.Sprintf("invalid request: %v", err)}
	}

	result, err := instance.Execute(s.ctx, cmd)
	if err != nil {
		return Response{Success: false, Type: string(cmd.Name), Error: err.Error()}
	}

	data, err := json.Marshal(result)
	if err != nil {
		return Response{Success: false, Type: string(cmd.Name), Error: err.Error()}
	}
	return Response{Success: true, Type: result.Type().String(), Result: data}
}
