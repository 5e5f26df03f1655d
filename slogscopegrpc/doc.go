// Copyright 2026 Patrick J. Scruggs
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

// Package slogscopegrpc connects gRPC servers and clients to slogscope's
// call-local fields.
//
// Server interceptors store the service and method, a request id, the peer
// address, selected metadata values, and the active trace and span ids as
// call-local fields on the RPC context and attach the scope's logger with
// [slogscope.ContextWithLogger]. Client interceptors copy configured locals,
// the request id by default, into outgoing metadata and inject trace
// context.
//
// [ServerOptions] and [DialOptions] bundle the interceptors with otelgrpc
// stats handlers:
//
//	server := grpc.NewServer(slogscopegrpc.ServerOptions(
//	    slogscopegrpc.WithManager(m),
//	    slogscopegrpc.WithMetadataLocal("x-tenant", "tenant"),
//	)...)
package slogscopegrpc
