package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ab2005/whatsapp-mcp/internal/config"
	"github.com/ab2005/whatsapp-mcp/internal/constants"
	"github.com/ab2005/whatsapp-mcp/internal/middleware"
	"github.com/ab2005/whatsapp-mcp/internal/service"
	"github.com/ab2005/whatsapp-mcp/internal/versioning"
	"github.com/ab2005/whatsapp-mcp/pkg/bridge"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Server struct {
	router     *mux.Router
	logger     *logrus.Logger
	cfg        *config.Config
	msgService service.MessageService
	bridge     bridge.Client
	server     *http.Server

	// verbose disables privacy masking in request-scoped logs
	verbose bool
}

func NewServer(cfg *config.Config, msgService service.MessageService, bridgeClient bridge.Client, logger *logrus.Logger, verbose bool) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		logger:     logger,
		cfg:        cfg,
		msgService: msgService,
		bridge:     bridgeClient,
		verbose:    verbose,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RecoveryMiddleware(s.logger))
	s.router.Use(s.verboseContext)
	s.router.Use(middleware.ObservabilityMiddleware(s.logger))
	if s.verbose {
		s.router.Use(middleware.DetailedLoggingMiddleware(s.logger, middleware.DefaultDetailedLoggingConfig()))
	}

	// Operational endpoints
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	// Store queries
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(versioning.NewVersionMiddleware(s.logger).VersionHandler)
	api.HandleFunc("/version", s.handleVersion()).Methods(http.MethodGet)
	api.HandleFunc("/messages", s.handleSearchMessages()).Methods(http.MethodGet)
	api.HandleFunc("/messages/{id}/context", s.handleMessageContext()).Methods(http.MethodGet)
	api.HandleFunc("/chats", s.handleSearchChats()).Methods(http.MethodGet)
	api.HandleFunc("/chats/{jid}", s.handleGetChat()).Methods(http.MethodGet)
	api.HandleFunc("/contacts", s.handleListContacts()).Methods(http.MethodGet)

	// Bridge-backed operations get the outbound middleware on top
	api.Handle("/messages/send",
		middleware.OutboundObservabilityMiddleware(s.logger, "send_message")(s.handleSendMessage())).Methods(http.MethodPost)
	api.Handle("/files/send",
		middleware.OutboundObservabilityMiddleware(s.logger, "send_file")(s.handleSendFile())).Methods(http.MethodPost)
	api.Handle("/media/download",
		middleware.OutboundObservabilityMiddleware(s.logger, "media_download")(s.handleDownloadMedia())).Methods(http.MethodPost)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// verboseContext propagates the verbose flag so log helpers know
// whether identifiers may appear unmasked.
func (s *Server) verboseContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), service.VerboseContextKey, s.verbose)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.ServerPort),
		Handler:      s.router,
		ReadTimeout:  constants.DefaultServerReadTimeoutSec * time.Second,
		WriteTimeout: constants.DefaultServerWriteTimeoutSec * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeoutSec * time.Second,
	}

	s.logger.WithField("port", s.cfg.ServerPort).Info("Starting server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
