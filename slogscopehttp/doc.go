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

// Package slogscopehttp connects net/http servers and clients to slogscope's
// call-local fields.
//
// [Middleware] stores a request id, the method and path, selected request
// headers, and the active trace and span ids as call-local fields on every
// request context, and attaches the scope's logger with
// [slogscope.ContextWithLogger]. A [slogscope.FieldFilter] then decides
// which of those locals reach records:
//
//	m.SetLoggingFields(map[string]string{
//	    slogscopehttp.LocalRequestID: "request_id",
//	    slogscopehttp.LocalTraceID:   "trace_id",
//	}, nil)
//	handler := slogscopehttp.Middleware(slogscopehttp.WithManager(m))(mux)
//
// [Transport] does the reverse for outbound requests: it injects trace
// context and copies configured locals, the request id by default, into
// request headers. Both wrap otelhttp unless [WithOTel] disables it.
package slogscopehttp
