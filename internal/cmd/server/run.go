package serverrun

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	cfgpkg "github.com/rzbill/flo-transform/internal/config"
	"github.com/rzbill/flo-transform/internal/runtime"
	grpcserver "github.com/rzbill/flo-transform/internal/server/grpc"
	httpserver "github.com/rzbill/flo-transform/internal/server/http"
	logsvc "github.com/rzbill/flo-transform/internal/services/logs"
	transformsvc "github.com/rzbill/flo-transform/internal/services/transforms"
	pebblestore "github.com/rzbill/flo-transform/internal/storage/pebble"
	logpkg "github.com/rzbill/flo-transform/pkg/log"
)

// Options configures Run. Empty addresses fall back to Config.
type Options struct {
	DataDir       string
	GRPCAddr      string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	// Logger overrides the logger built from Config.Log.
	Logger logpkg.Logger
	// Ready, when set, is called once both listeners are bound.
	Ready func(grpcAddr, httpAddr string)
}

// Run opens the store, resumes stored transforms and serves gRPC and HTTP
// until ctx is cancelled or a signal arrives.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	if opts.GRPCAddr == "" {
		opts.GRPCAddr = opts.Config.GRPCAddr
	}
	if opts.HTTPAddr == "" {
		opts.HTTPAddr = opts.Config.HTTPAddr
	}
	if err := opts.Config.Validate(); err != nil {
		return err
	}

	procLogger := opts.Logger
	if procLogger == nil {
		l, err := logpkg.ApplyConfig(&opts.Config.Log)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		procLogger = l
		// Pebble and gRPC internals log through the standard library.
		logpkg.RedirectStdLog(procLogger)
	}

	storeDir := filepath.Join(opts.DataDir, "store")
	rt, err := runtime.Open(runtime.Options{DataDir: storeDir, Fsync: opts.Fsync, FsyncInterval: opts.FsyncInterval, Config: opts.Config})
	if err != nil {
		return err
	}
	defer rt.Close()

	procLogger.Info("Starting flo-transform server",
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("grpc", opts.GRPCAddr),
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("fsync", opts.Config.Fsync),
		logpkg.Str("level", opts.Config.Log.Level),
		logpkg.Str("format", opts.Config.Log.Format),
	)

	gsrv := grpcserver.New(rt, procLogger)
	transforms := transformsvc.New(sctx, rt, procLogger, gsrv.TransformStatus)
	defer transforms.Close()
	if opts.Config.Transform.Resume {
		if err := transforms.Resume(sctx); err != nil {
			procLogger.Warn("some transforms did not resume", logpkg.Err(err))
		}
	}
	hsrv := httpserver.New(rt, transforms, logsvc.New(rt, procLogger), procLogger)

	glis, err := net.Listen("tcp", opts.GRPCAddr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	hlis, err := net.Listen("tcp", opts.HTTPAddr)
	if err != nil {
		_ = glis.Close()
		return fmt.Errorf("http listen: %w", err)
	}
	if opts.Ready != nil {
		opts.Ready(glis.Addr().String(), hlis.Addr().String())
	}

	var (
		wg   conc.WaitGroup
		errs = make(chan error, 2)
	)
	wg.Go(func() {
		if err := gsrv.Serve(sctx, glis); err != nil && sctx.Err() == nil {
			errs <- fmt.Errorf("grpc: %w", err)
			stop()
		}
	})
	wg.Go(func() {
		if err := hsrv.Serve(sctx, hlis); err != nil && sctx.Err() == nil {
			errs <- fmt.Errorf("http: %w", err)
			stop()
		}
	})

	<-sctx.Done()
	// Both servers drain on sctx; processors and the store close after.
	wg.Wait()
	close(errs)

	var all []error
	for err := range errs {
		procLogger.Error("server error", logpkg.Err(err))
		all = append(all, err)
	}
	procLogger.Info("flo-transform server stopped")
	return errors.Join(all...)
}
