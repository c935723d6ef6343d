// Copyright 2024 lingstore authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes a backend over HTTP.
//
// The routes mirror what the remote backend expects, so a remote backend
// pointed at this server is interchangeable with the backend behind it.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lingstore/lingstore/internal/backends"
	"github.com/lingstore/lingstore/internal/entities"
	"github.com/lingstore/lingstore/internal/util/lazyerrors"
	"github.com/lingstore/lingstore/internal/util/must"
)

// Handler routes entity requests to a backend.
type Handler struct {
	b     backends.Backend
	descs map[string]*entities.Descriptor
	auth  string
	l     *zap.Logger
	mux   *http.ServeMux

	requests *prometheus.CounterVec
}

// NewHandlerParams represents the parameters of NewHandler function.
type NewHandlerParams struct {
	// Backend serves all routed requests.
	Backend backends.Backend

	// Descriptors lists the entity types the handler serves, keyed by resource name.
	Descriptors []*entities.Descriptor

	// Authorization, if not empty, is the exact Authorization header value required on every request.
	Authorization string

	L *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(params *NewHandlerParams) (*Handler, error) {
	descs := make(map[string]*entities.Descriptor, len(params.Descriptors))

	for _, desc := range params.Descriptors {
		if _, dup := descs[desc.Name()]; dup {
			return nil, lazyerrors.Errorf("duplicate resource %q", desc.Name())
		}

		descs[desc.Name()] = desc
	}

	h := &Handler{
		b:     params.Backend,
		descs: descs,
		auth:  params.Authorization,
		l:     params.L,
		mux:   http.NewServeMux(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lingstore",
				Subsystem: "server",
				Name:      "requests_total",
				Help:      "Total number of requests by resource, operation, and result.",
			},
			[]string{"resource", "operation", "result"},
		),
	}

	h.mux.HandleFunc("POST /{resource}", h.wrap("create", h.handleCreate))
	h.mux.HandleFunc("GET /{resource}", h.wrap("search", h.handleSearch))
	h.mux.HandleFunc("GET /{resource}/{id}", h.wrap("get", h.handleGet))
	h.mux.HandleFunc("PUT /{resource}/{id}", h.wrap("save", h.handleSave))
	h.mux.HandleFunc("DELETE /{resource}/{id}", h.wrap("remove", h.handleRemove))
	h.mux.HandleFunc("GET /{resource}/{id}/{language}", h.wrap("get", h.handleGet))
	h.mux.HandleFunc("PUT /{resource}/{id}/{language}", h.wrap("save", h.handleSave))
	h.mux.HandleFunc("DELETE /{resource}/{id}/{language}", h.wrap("removeLanguage", h.handleRemoveLanguage))
	h.mux.HandleFunc("GET /{resource}/{id}/{language}/others", h.wrap("others", h.handleOtherLanguages))

	return h, nil
}

// ServeHTTP implements http.Handler interface.
func (h *Handler) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	if h.auth != "" && req.Header.Get("Authorization") != h.auth {
		h.l.Warn("Unauthorized request", zap.String("path", req.URL.Path))
		http.Error(rw, "unauthorized", http.StatusUnauthorized)

		return
	}

	h.mux.ServeHTTP(rw, req)
}

// Run runs an HTTP server for the given handler until ctx is canceled.
func Run(ctx context.Context, addr string, h *Handler, l *zap.Logger) error {
	s := http.Server{
		Addr:    addr,
		Handler: h,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
		ErrorLog: must.NotFail(zap.NewStdLogAt(l, zap.WarnLevel)),
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return lazyerrors.Error(err)
	}

	l.Sugar().Infof("Listening on http://%s ...", lis.Addr())

	go func() {
		<-ctx.Done()

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer stopCancel()

		s.Shutdown(stopCtx) //nolint:contextcheck // use new context for cancellation
		s.Close()
	}()

	if err = s.Serve(lis); err != http.ErrServerClosed {
		return lazyerrors.Error(err)
	}

	return nil
}

// Describe implements prometheus.Collector interface.
func (h *Handler) Describe(ch chan<- *prometheus.Desc) {
	h.requests.Describe(ch)

	if c, ok := h.b.(prometheus.Collector); ok {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector interface.
func (h *Handler) Collect(ch chan<- prometheus.Metric) {
	h.requests.Collect(ch)

	if c, ok := h.b.(prometheus.Collector); ok {
		c.Collect(ch)
	}
}

// check interfaces
var (
	_ http.Handler         = (*Handler)(nil)
	_ prometheus.Collector = (*Handler)(nil)
)
