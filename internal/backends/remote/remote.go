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

// Package remote provides the stateless HTTP backend.
//
// Each operation maps to one request against a path built from the resource
// name, identifier, and language; there are no transaction semantics beyond
// what the remote service provides. The optional authorization header is
// carried by the backend instance, set at construction; callers needing a
// different credential construct a new backend.
package remote

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/lingstore/lingstore/internal/backends"
	"github.com/lingstore/lingstore/internal/entities"
	"github.com/lingstore/lingstore/internal/util/lazyerrors"
	"github.com/lingstore/lingstore/internal/util/resource"
)

// backend implements backends.Backend interface.
type backend struct {
	base *url.URL
	c    *http.Client
	auth string
	l    *zap.Logger

	token *resource.Token
}

// NewBackendParams represents the parameters of NewBackend function.
type NewBackendParams struct {
	// Base is the URL prefix of the remote service, e.g. "https://api.example.com/v1".
	Base string

	// HTTPClient is used for all requests; http.DefaultClient if nil.
	HTTPClient *http.Client

	// Authorization, if not empty, is sent as the Authorization header with every request.
	Authorization string

	L *zap.Logger
}

// NewBackend creates a new remote backend.
func NewBackend(params *NewBackendParams) (backends.Backend, error) {
	base, err := url.Parse(strings.TrimSuffix(params.Base, "/"))
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, lazyerrors.Errorf("unsupported base URL %q", params.Base)
	}

	c := params.HTTPClient
	if c == nil {
		c = http.DefaultClient
	}

	b := &backend{
		base:  base,
		c:     c,
		auth:  params.Authorization,
		l:     params.L,
		token: resource.NewToken(),
	}

	resource.Track(b, b.token)

	return backends.BackendContract(b), nil
}

// Close implements backends.Backend interface.
func (b *backend) Close() {
	b.c.CloseIdleConnections()

	resource.Untrack(b, b.token)
}

// Resource implements backends.Backend interface.
func (b *backend) Resource(desc *entities.Descriptor) (backends.Resource, error) {
	return newResource(b, desc), nil
}

// check interfaces
var (
	_ backends.Backend = (*backend)(nil)
)
