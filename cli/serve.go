package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stevemurr/habit-store/handler"
)

// shutdownTimeout bounds how long in-flight requests get after a signal.
const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve habits over HTTP",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			if addr == "" {
				addr = s.cfg.Addr
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return WrapExitError(ExitFailure, "listen", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, s, ln)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")

	return cmd
}

// serve runs the HTTP server on ln until ctx is done, then shuts it down.
func serve(ctx context.Context, s *session, ln net.Listener) error {
	h := handler.New(s.repo, s.logger)
	srv := &http.Server{
		Handler:           handler.CORS(handler.AccessLog(h, s.logger), s.cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("habit store starting",
		zap.String("addr", ln.Addr().String()),
		zap.String("backend", s.kv.Name()),
		zap.String("data_dir", s.cfg.DataDir),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
