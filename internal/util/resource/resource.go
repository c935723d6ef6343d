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

// Package resource provides utilities for tracking resource lifetimes.
//
// Tracked objects appear in a per-type pprof profile until they are untracked,
// making leaked backends, connections, and transactions visible.
package resource

import (
	"fmt"
	"reflect"
	"runtime"
	"runtime/pprof"
	"sync"
	"sync/atomic"

	"github.com/lingstore/lingstore/internal/util/debugbuild"
)

// Token is stored in a tracked object and identifies it in the profile.
type Token struct {
	tracked atomic.Bool
	msg     string
	stack   []byte
}

// NewToken returns a new Token.
func NewToken() *Token {
	return &Token{
		stack: debugbuild.Stack(),
	}
}

// profilesM protects the creation of new profiles.
var profilesM sync.Mutex

// profileName returns the pprof profile name for the given object.
func profileName(obj any) string {
	return "lingstore/" + reflect.TypeOf(obj).Elem().String()
}

// Track tracks the lifetime of an object until Untrack is called on it.
//
// Obj should be a pointer to a struct with a field of type *Token.
// If the object is garbage-collected while still being tracked, Track panics in the finalizer.
func Track[T any](obj *T, token *Token) {
	checkArgs(obj, token)

	name := profileName(obj)

	p := pprof.Lookup(name)
	if p == nil {
		profilesM.Lock()

		// a concurrent call might have created a profile already; check again
		if p = pprof.Lookup(name); p == nil {
			p = pprof.NewProfile(name)
		}

		profilesM.Unlock()
	}

	// use token instead of obj itself,
	// because otherwise the profile would hold a reference to obj and the finalizer would never run
	p.Add(token, 1)

	token.tracked.Store(true)

	token.msg = fmt.Sprintf("%T has not been finalized", obj)
	if token.stack != nil {
		token.msg += "\nObject created by " + string(token.stack)
	}

	runtime.SetFinalizer(obj, func(*T) {
		if token.tracked.Load() {
			panic(token.msg)
		}
	})
}

// Untrack stops tracking the lifetime of an object.
func Untrack[T any](obj *T, token *Token) {
	checkArgs(obj, token)

	if !token.tracked.Swap(false) {
		return
	}

	p := pprof.Lookup(profileName(obj))
	if p == nil {
		panic("object is not tracked")
	}

	p.Remove(token)
}

// checkArgs checks Track and Untrack arguments.
func checkArgs(obj any, token *Token) {
	if obj == nil {
		panic("obj must not be nil")
	}

	if token == nil {
		panic("token must not be nil")
	}
}
