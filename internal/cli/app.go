package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/xjournal/internal/codec"
	"github.com/dmitrijs2005/xjournal/internal/config"
	"github.com/dmitrijs2005/xjournal/internal/cryptox"
	"github.com/dmitrijs2005/xjournal/internal/keyvault"
	"github.com/dmitrijs2005/xjournal/internal/logging"
	"github.com/dmitrijs2005/xjournal/internal/netgate"
	"github.com/dmitrijs2005/xjournal/internal/remote"
	"github.com/dmitrijs2005/xjournal/internal/repositories/records"
	"github.com/dmitrijs2005/xjournal/internal/store"
	"github.com/dmitrijs2005/xjournal/internal/syncengine"
	"github.com/spf13/afero"
)

var ErrNoRemote = errors.New("no remote configured")

// App bundles the components one command invocation works with.
type App struct {
	cfg    *config.Config
	fs     afero.Fs
	logger logging.Logger
	db     *sql.DB
	codec  *codec.Codec
	store  *store.Store

	closers []func() error
}

// openApp unlocks the vault and opens the entry database.
func openApp(ctx context.Context, opts *RootOptions, stderr io.Writer) (*App, error) {
	cfg := opts.cfg

	logger, err := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	pass, err := getPassphrase(stderr)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	vault, err := keyvault.OpenFileVault(opts.fs, cfg.VaultPath, pass)
	cryptox.Wipe(pass)
	if err != nil {
		return nil, err
	}

	c, err := codec.New(ctx, vault)
	if err != nil {
		return nil, err
	}

	db, err := records.OpenDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:    cfg,
		fs:     opts.fs,
		logger: logger,
		db:     db,
		codec:  c,
		store:  store.New(db, c, logger),
	}
	a.closers = append(a.closers, db.Close)
	return a, nil
}

// Close releases everything opened for the invocation, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func (a *App) newRemote(ctx context.Context) (remote.ObjectStore, error) {
	rc := a.cfg.Remote
	switch rc.Kind {
	case config.RemoteDir:
		return remote.NewDirStore(a.fs, rc.Dir), nil
	case config.RemoteS3:
		return remote.NewS3Store(ctx, remote.S3Config{
			Endpoint:  rc.S3Endpoint,
			Region:    rc.S3Region,
			Bucket:    rc.S3Bucket,
			Prefix:    rc.S3Prefix,
			AccessKey: rc.S3AccessKey,
			SecretKey: rc.S3SecretKey,
		})
	case config.RemotePostgres:
		db, err := remote.OpenPostgres(ctx, rc.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return remote.NewPostgresStore(db), nil
	default:
		return nil, ErrNoRemote
	}
}

func (a *App) newGate() *netgate.Gate {
	rc := a.cfg.Remote
	var conn netgate.Connectivity = netgate.Always{}
	if rc.ProbeAddr != "" {
		conn = netgate.NewProbe(rc.ProbeAddr, rc.ProbeInterval, rc.ProbeTimeout)
	}
	return netgate.New(conn, a.logger)
}

func (a *App) newEngine(ctx context.Context, gate *netgate.Gate, m *syncengine.Metrics) (*syncengine.Engine, error) {
	obj, err := a.newRemote(ctx)
	if err != nil {
		return nil, err
	}
	return syncengine.New(a.store, a.codec, obj, gate, a.logger,
		syncengine.WithConfig(syncengine.Config{
			MaxAttempts: a.cfg.Sync.MaxAttempts,
			RetryDelay:  a.cfg.Sync.RetryDelay,
			RetryFailed: a.cfg.Sync.RetryFailed,
		}),
		syncengine.WithMetrics(m),
	), nil
}

// withApp opens the App for the duration of fn.
func withApp(ctx context.Context, opts *RootOptions, stderr io.Writer, fn func(a *App) error) (err error) {
	a, err := openApp(ctx, opts, stderr)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a)
}
