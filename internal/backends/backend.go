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

// Package backends provides common interfaces (backends.Backend, backends.Resource, etc)
// and code shared by all backend implementations.
//
// # Design principles
//
//  1. Interfaces are relatively high-level and "fat".
//     We are generally doing one interface call per operation,
//     handling all the multilingual-entity logic in the backend.
//  2. Backends are wrapped by contracts (see BackendContract, ResourceContract)
//     that enforce their error semantics in debug builds.
//  3. Errors that could be handled by the caller are distinguished by error codes;
//     all other errors are opaque.
package backends

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lingstore/lingstore/internal/entities"
	"github.com/lingstore/lingstore/internal/util/resource"
)

// Backend is a generic interface for all backends for accessing them.
//
// Backend object is expected to be stateful and wrap store connection(s).
//
// Backend(s) methods can be called by multiple clients concurrently.
// They should be thread-safe.
//
// See backendContract and its methods for additional details.
type Backend interface {
	Close()
	Resource(*entities.Descriptor) (Resource, error)
}

// backendContract implements Backend interface.
type backendContract struct {
	b     Backend
	token *resource.Token
}

// BackendContract wraps Backend and enforces its contract.
//
// All backend implementations should use that function when they create new Backend instances.
// The caller should not use that function.
//
// See backendContract and its methods for additional details.
func BackendContract(b Backend) Backend {
	bc := &backendContract{
		b:     b,
		token: resource.NewToken(),
	}
	resource.Track(bc, bc.token)

	return bc
}

// Close closes all store connections and frees all resources associated with the backend.
func (bc *backendContract) Close() {
	bc.b.Close()

	resource.Untrack(bc, bc.token)
}

// Resource returns a Resource instance for the given entity type.
//
// The storage relations do not need to exist.
func (bc *backendContract) Resource(desc *entities.Descriptor) (Resource, error) {
	if desc == nil {
		panic("desc must not be nil")
	}

	var res Resource

	err := validateResourceName(desc.Name())
	if err == nil {
		res, err = bc.b.Resource(desc)
	}

	checkError(err, ErrorCodeResourceNameIsInvalid)

	return res, err
}

// Describe implements prometheus.Collector for backends that collect metrics.
func (bc *backendContract) Describe(ch chan<- *prometheus.Desc) {
	if c, ok := bc.b.(prometheus.Collector); ok {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector for backends that collect metrics.
func (bc *backendContract) Collect(ch chan<- prometheus.Metric) {
	if c, ok := bc.b.(prometheus.Collector); ok {
		c.Collect(ch)
	}
}

// check interfaces
var (
	_ Backend              = (*backendContract)(nil)
	_ prometheus.Collector = (*backendContract)(nil)
)
