// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package fileserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"syscall"

	"github.com/z5labs/fileserver/mimetype"
	"github.com/z5labs/fileserver/pkg/slogfield"
	"github.com/z5labs/fileserver/resolve"
	"github.com/z5labs/fileserver/server"
)

// Build returns an App which serves cfg.Root on cfg.Addr. The listener is
// bound before Build returns so address conflicts are reported here.
// Logs are written to stderr.
func Build(ctx context.Context, cfg Config) (App, error) {
	fs, err := newFileServer(ctx, cfg, os.Stderr)
	if err != nil {
		return nil, err
	}

	app := WithLifecycleHooks(Recover(fs), Lifecycle{
		PostRun: fs.shutdown,
	})
	return WithSignalNotifications(app, os.Interrupt, syscall.SIGTERM), nil
}

type fileServer struct {
	log      *slog.Logger
	resolver *resolve.Resolver
	srv      *server.Server
	ln       net.Listener
	shutdown LifecycleHook
}

func newFileServer(ctx context.Context, cfg Config, logOut io.Writer) (fs *fileServer, err error) {
	logHandler := newLogHandler(logOut, cfg.Log)

	tel, err := initOTel(ctx, cfg.OTel)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err == nil || tel.shutdown == nil {
			return
		}
		err = errors.Join(err, tel.shutdown.Run(ctx))
	}()

	resolver, err := resolve.New(
		cfg.Root,
		resolve.IndexFile(cfg.IndexFile),
		resolve.Listing(cfg.Listing.Enabled),
		resolve.ContentTypes(mimetype.New(cfg.MIME.Types)),
	)
	if err != nil {
		return nil, err
	}

	srv, err := server.New(
		resolver,
		server.LogHandler(logHandler),
		server.IdleTimeout(cfg.HTTP.IdleTimeout),
		server.RequestTimeout(cfg.HTTP.RequestTimeout),
		server.ShutdownTimeout(cfg.HTTP.ShutdownTimeout),
		server.MaxRequestsPerConn(cfg.HTTP.MaxRequestsPerConn),
		server.MaxRequestLine(cfg.HTTP.MaxRequestLine),
		server.MaxHeaderBytes(cfg.HTTP.MaxHeaderBytes),
		server.MaxDiscardBytes(cfg.HTTP.MaxDiscardBytes),
		server.BufferSize(cfg.HTTP.BufferSize),
		server.TracerProvider(tel.tracerProvider),
		server.MeterProvider(tel.meterProvider),
		server.Propagator(tel.propagator),
	)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, err
	}

	fs = &fileServer{
		log:      slog.New(logHandler),
		resolver: resolver,
		srv:      srv,
		ln:       ln,
		shutdown: ComposeLifecycleHooks(tel.shutdown),
	}
	return fs, nil
}

// Addr is the address the server is listening on.
func (fs *fileServer) Addr() net.Addr {
	return fs.ln.Addr()
}

// Run implements the App interface.
func (fs *fileServer) Run(ctx context.Context) error {
	fs.log.InfoContext(
		ctx,
		"serving files",
		slogfield.String("url", "http://"+fs.Addr().String()),
		slogfield.String("root", fs.resolver.Root()),
	)
	return fs.srv.Run(ctx, fs.ln)
}
