package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"smartplate/internal/location"
	"smartplate/internal/metrics"
	"smartplate/internal/realtime"
	"smartplate/internal/requests"
	"smartplate/internal/session"
	"smartplate/internal/verification"
	"smartplate/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

type Service struct {
	logger *logrus.Logger
	config *types.Config

	sessions     *session.Manager
	tokens       TokenVerifier
	verification *verification.Service
	requests     *requests.Service
	locations    *location.Registry
	fixes        location.FixStore
	hub          *realtime.Hub

	cookie   *securecookie.SecureCookie
	upgrader websocket.Upgrader

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	sessions *session.Manager,
	tokens TokenVerifier,
	verificationService *verification.Service,
	requestsService *requests.Service,
	locations *location.Registry,
	fixes location.FixStore,
	hub *realtime.Hub,
) (*Service, error) {
	mux := flow.New()

	hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie hash key: %w", err)
	}
	blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie block key: %w", err)
	}

	s := &Service{
		logger:       logger,
		config:       config,
		sessions:     sessions,
		tokens:       tokens,
		verification: verificationService,
		requests:     requestsService,
		locations:    locations,
		fixes:        fixes,
		hub:          hub,
		cookie:       securecookie.New(hashKey, blockKey),
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)
	r.Use(s.WithSession)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", metrics.Handler(), http.MethodGet)

	r.HandleFunc("/auth/register", s.handlePostRegister, http.MethodPost)
	r.HandleFunc("/auth/register/confirm", s.handlePostRegisterConfirm, http.MethodPost)
	r.HandleFunc("/auth/login", s.handlePostLogin, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/auth/logout", s.handlePostLogout, http.MethodPost)
		r.HandleFunc("/auth/me", s.handleGetMe, http.MethodGet)
		r.HandleFunc("/auth/me/profile", s.handlePutProfile, http.MethodPut)
		r.HandleFunc("/auth/role/refresh", s.handlePostRefreshRole, http.MethodPost)

		r.HandleFunc("/requests", s.handleListRequests, http.MethodGet)
		r.HandleFunc("/requests/:id", s.handleGetRequest, http.MethodGet)

		r.HandleFunc("/location", s.handleGetLocation, http.MethodGet)
		r.HandleFunc("/location", s.handlePostLocation, http.MethodPost)

		r.HandleFunc("/realtime", s.handleRealtime, http.MethodGet)

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireRole(types.RoleNGO, types.RoleVolunteer))

			r.HandleFunc("/verification", s.handleGetVerification, http.MethodGet)
			r.HandleFunc("/verification/documents", s.handleListDocuments, http.MethodGet)
			r.HandleFunc("/verification/documents", s.handlePostDocument, http.MethodPost)
		})

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireRole(types.RoleNGO))

			r.HandleFunc("/verification/ngo", s.handlePutNGODetails, http.MethodPut)
			r.HandleFunc("/requests", s.handlePostRequest, http.MethodPost)
			r.HandleFunc("/requests/:id", s.handleDeleteRequest, http.MethodDelete)
			r.HandleFunc("/requests/:id/photos", s.handlePostRequestPhoto, http.MethodPost)
		})

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireRole(types.RoleVolunteer))

			r.HandleFunc("/verification/volunteer", s.handlePutVolunteerDetails, http.MethodPut)
			r.HandleFunc("/requests/:id/deliver", s.handlePostDeliver, http.MethodPost)
		})

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireRole(types.RoleDonor))

			r.HandleFunc("/requests/:id/accept", s.handlePostAccept, http.MethodPost)
		})

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireRole(types.RoleVolunteer, types.RoleAdmin))

			r.HandleFunc("/requests/:id/complete", s.handlePostComplete, http.MethodPost)
		})

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireRole(types.RoleAdmin))

			r.HandleFunc("/admin/stats", s.handleGetStats, http.MethodGet)
			r.HandleFunc("/admin/verifications/:kind", s.handleListVerifications, http.MethodGet)
			r.HandleFunc("/admin/verifications/:kind/:id/approve", s.handleApproveVerification, http.MethodPost)
			r.HandleFunc("/admin/verifications/:kind/:id/reject", s.handleRejectVerification, http.MethodPost)
			r.HandleFunc("/admin/users/:id/documents", s.handleListUserDocuments, http.MethodGet)
			r.HandleFunc("/admin/documents/:id/verify", s.handlePostVerifyDocument, http.MethodPost)
			r.HandleFunc("/requests/:id/approve", s.handlePostApproveRequest, http.MethodPost)
			r.HandleFunc("/requests/:id/reject", s.handlePostRejectRequest, http.MethodPost)
		})
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
