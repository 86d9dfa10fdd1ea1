package cli

import (
	"io"

	"go.uber.org/zap"

	"github.com/stevemurr/habit-store/config"
	"github.com/stevemurr/habit-store/habit"
	"github.com/stevemurr/habit-store/logging"
	"github.com/stevemurr/habit-store/store"
)

// session is everything a command needs once flags are parsed.
type session struct {
	cfg    config.Config
	logger *zap.Logger
	kv     *store.Adapter
	repo   *habit.Repository
}

// openSession loads configuration (file, then env, then flags) and opens the
// configured store. Configuration problems are usage errors, a store that
// cannot be opened is a failure.
func openSession(opts *RootOptions, logOut io.Writer) (*session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitUsage, "load config", err)
	}
	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitUsage, "invalid config", err)
	}

	logger, err := logging.New(logOut, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, WrapExitError(ExitUsage, "init logger", err)
	}

	backend, err := store.New(cfg.Backend, cfg.DataDir)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "open store", err)
	}
	kv := store.NewAdapter(backend)
	logger.Debug("store opened", zap.String("backend", kv.Name()), zap.String("data_dir", cfg.DataDir))

	return &session{
		cfg:    cfg,
		logger: logger,
		kv:     kv,
		repo: habit.NewRepository(kv,
			habit.WithLogger(logger),
			habit.WithConcurrency(cfg.Concurrency),
		),
	}, nil
}

func (s *session) Close() {
	if err := s.kv.Close(); err != nil {
		s.logger.Warn("close store", zap.Error(err))
	}
	_ = s.logger.Sync()
}
