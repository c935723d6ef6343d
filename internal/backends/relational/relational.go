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

// Package relational provides the transactional relational backend.
//
// The backend holds two independent connection pools: one dedicated to reads,
// one dedicated to writes. Read-heavy query traffic never contends with the
// write pool's transaction state; the write pool is capped at one connection,
// so it owns at most one transaction at a time.
//
// Concurrent saves targeting the same identifier are last-writer-wins at the
// store's default isolation level; no row-level or advisory locks are taken.
package relational

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lingstore/lingstore/internal/backends"
	"github.com/lingstore/lingstore/internal/entities"
	"github.com/lingstore/lingstore/internal/util/fsql"
	"github.com/lingstore/lingstore/internal/util/lazyerrors"
	"github.com/lingstore/lingstore/internal/util/resource"
)

// backend implements backends.Backend interface.
type backend struct {
	rdb *fsql.DB
	wdb *fsql.DB
	d   dialect
	l   *zap.Logger

	token *resource.Token
}

// NewBackendParams represents the parameters of NewBackend function.
type NewBackendParams struct {
	// ReadURI and WriteURI may point at the same database;
	// they still get independent pools.
	ReadURI  string
	WriteURI string

	// Descriptors of all entity types this backend serves.
	// Their storage relations are created at construction time when absent.
	Descriptors []*entities.Descriptor

	L *zap.Logger
}

// NewBackend creates a new relational backend.
func NewBackend(ctx context.Context, params *NewBackendParams) (backends.Backend, error) {
	rdb, rd, err := openDB(params.ReadURI, "read", false, params.L)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	wdb, wd, err := openDB(params.WriteURI, "write", true, params.L)
	if err != nil {
		_ = rdb.Close()
		return nil, lazyerrors.Error(err)
	}

	if rd != wd {
		_ = rdb.Close()
		_ = wdb.Close()

		return nil, lazyerrors.Errorf("read and write URIs use different engines")
	}

	b := &backend{
		rdb:   rdb,
		wdb:   wdb,
		d:     wd,
		l:     params.L,
		token: resource.NewToken(),
	}

	for _, desc := range params.Descriptors {
		if err = b.ensureResource(ctx, desc); err != nil {
			_ = rdb.Close()
			_ = wdb.Close()

			return nil, lazyerrors.Error(err)
		}
	}

	resource.Track(b, b.token)

	return backends.BackendContract(b), nil
}

// Close implements backends.Backend interface.
func (b *backend) Close() {
	_ = b.rdb.Close()
	_ = b.wdb.Close()

	resource.Untrack(b, b.token)
}

// Resource implements backends.Backend interface.
func (b *backend) Resource(desc *entities.Descriptor) (backends.Resource, error) {
	return newResource(b, desc), nil
}

// ensureResource creates the base and language relations for the given type when absent.
//
// This is create-if-absent only; existing relations are never altered.
func (b *backend) ensureResource(ctx context.Context, desc *entities.Descriptor) error {
	for _, q := range createStatements(b.d, desc) {
		if _, err := b.wdb.ExecContext(ctx, q); err != nil {
			return lazyerrors.Error(err)
		}
	}

	return nil
}

// Describe implements prometheus.Collector.
func (b *backend) Describe(ch chan<- *prometheus.Desc) {
	b.rdb.Describe(ch)
	b.wdb.Describe(ch)
}

// Collect implements prometheus.Collector.
func (b *backend) Collect(ch chan<- prometheus.Metric) {
	b.rdb.Collect(ch)
	b.wdb.Collect(ch)
}

// check interfaces
var (
	_ backends.Backend     = (*backend)(nil)
	_ prometheus.Collector = (*backend)(nil)
)
