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

package slogscopegrpc

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"

	"github.com/pjscruggs/slogscope"
)

// UnaryServerInterceptor stores RPC call-local fields and the scope's logger
// on the context of unary RPCs.
func UnaryServerInterceptor(opts ...Option) grpc.UnaryServerInterceptor {
	cfg := applyOptions(opts)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return handler(serverContext(ctx, cfg, info.FullMethod), req)
	}
}

// StreamServerInterceptor stores RPC call-local fields and the scope's
// logger on the context of streaming RPCs.
func StreamServerInterceptor(opts ...Option) grpc.StreamServerInterceptor {
	cfg := applyOptions(opts)

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		wrapped := &serverStream{
			ServerStream: ss,
			ctx:          serverContext(ss.Context(), cfg, info.FullMethod),
		}
		return handler(srv, wrapped)
	}
}

// UnaryClientInterceptor copies call-local fields and trace context into
// outgoing metadata.
func UnaryClientInterceptor(opts ...Option) grpc.UnaryClientInterceptor {
	cfg := applyOptions(opts)

	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		return invoker(clientContext(ctx, cfg), method, req, reply, cc, callOpts...)
	}
}

// StreamClientInterceptor copies call-local fields and trace context into
// outgoing metadata.
func StreamClientInterceptor(opts ...Option) grpc.StreamClientInterceptor {
	cfg := applyOptions(opts)

	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, callOpts ...grpc.CallOption) (grpc.ClientStream, error) {
		return streamer(clientContext(ctx, cfg), desc, cc, method, callOpts...)
	}
}

// ServerOptions returns grpc.ServerOptions that install otelgrpc stats
// handlers and the server interceptors.
func ServerOptions(opts ...Option) []grpc.ServerOption {
	cfg := applyOptions(opts)
	var serverOpts []grpc.ServerOption

	if cfg.enableOTel {
		serverOpts = append(serverOpts, grpc.StatsHandler(otelgrpc.NewServerHandler(statsHandlerOptions(cfg)...)))
	}

	serverOpts = append(serverOpts,
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(opts...)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor(opts...)),
	)
	return serverOpts
}

// DialOptions returns grpc.DialOptions that install otelgrpc stats handlers
// and the client interceptors.
func DialOptions(opts ...Option) []grpc.DialOption {
	cfg := applyOptions(opts)
	var dialOpts []grpc.DialOption

	if cfg.enableOTel {
		dialOpts = append(dialOpts, grpc.WithStatsHandler(otelgrpc.NewClientHandler(statsHandlerOptions(cfg)...)))
	}

	dialOpts = append(dialOpts,
		grpc.WithChainUnaryInterceptor(UnaryClientInterceptor(opts...)),
		grpc.WithChainStreamInterceptor(StreamClientInterceptor(opts...)),
	)
	return dialOpts
}

// statsHandlerOptions configures otelgrpc instrumentation. Propagation is
// left to the interceptors when it is disabled.
func statsHandlerOptions(cfg *config) []otelgrpc.Option {
	var opts []otelgrpc.Option
	if cfg.tracerProvider != nil {
		opts = append(opts, otelgrpc.WithTracerProvider(cfg.tracerProvider))
	}
	switch {
	case !cfg.propagateTrace:
		opts = append(opts, otelgrpc.WithPropagators(noopPropagator{}))
	case cfg.propagatorsSet && cfg.propagators != nil:
		opts = append(opts, otelgrpc.WithPropagators(cfg.propagators))
	}
	for _, f := range cfg.filters {
		opts = append(opts, otelgrpc.WithFilter(f))
	}
	return opts
}

// serverContext derives the handler context for an inbound RPC.
func serverContext(ctx context.Context, cfg *config, fullMethod string) context.Context {
	md, _ := metadata.FromIncomingContext(ctx)
	ctx = ensureServerSpanContext(ctx, md, cfg)

	service, method := splitFullMethod(fullMethod)
	locals := map[string]any{
		LocalService: service,
		LocalMethod:  method,
	}
	if cfg.requestIDKey != "" {
		id := strings.TrimSpace(first(md, cfg.requestIDKey))
		if id == "" {
			id = uuid.NewString()
		}
		locals[LocalRequestID] = id
	}
	if cfg.includePeer {
		if addr, ok := peerAddress(ctx); ok {
			locals[LocalPeer] = addr
		}
	}
	for key, local := range cfg.metadataLocals {
		if v := first(md, key); v != "" {
			locals[local] = v
		}
	}
	addTraceLocals(ctx, locals)

	ctx = slogscope.WithLocals(ctx, locals)
	return slogscope.ContextWithLogger(ctx, cfg.logger.Logger().Logger)
}

// clientContext returns ctx with a copy of its outgoing metadata carrying
// the configured locals and trace context. Keys already present win.
func clientContext(ctx context.Context, cfg *config) context.Context {
	md, ok := metadata.FromOutgoingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.New(nil)
	}
	for local, key := range cfg.outboundLocals {
		if len(md.Get(key)) > 0 {
			continue
		}
		if v, ok := slogscope.Local(ctx, local); ok {
			md.Set(key, fmt.Sprint(v))
		}
	}
	injectClientTrace(ctx, md, cfg)
	return metadata.NewOutgoingContext(ctx, md)
}

// splitFullMethod splits "/pkg.Service/Method".
func splitFullMethod(full string) (service, method string) {
	full = strings.TrimPrefix(full, "/")
	if i := strings.LastIndex(full, "/"); i >= 0 {
		return full[:i], full[i+1:]
	}
	return "", full
}

// peerAddress extracts the remote host of the peer in ctx.
func peerAddress(ctx context.Context) (string, bool) {
	pr, ok := peer.FromContext(ctx)
	if !ok || pr == nil || pr.Addr == nil {
		return "", false
	}
	addr := pr.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host, true
	}
	return addr, true
}

type serverStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the derived RPC context.
func (s *serverStream) Context() context.Context {
	return s.ctx
}
