package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"xlog/internal/assembler"
	"xlog/internal/config"
	"xlog/internal/disk"
	"xlog/internal/profile"
	"xlog/internal/registry"
	"xlog/internal/session"
	"xlog/internal/textenc"
	"xlog/internal/transcript"
)

// App is the store stack shared by the bot and the MCP server.
type App struct {
	Config     *config.Config
	Location   *time.Location
	Store      *disk.Store
	Files      *profile.FileStore
	Transcript *transcript.Log
	Assembler  *assembler.Assembler
	Registry   *registry.Registry
	log        zerolog.Logger
}

// New wires the store stack from cfg and checks that the remote store
// accepts the configured credentials.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	backend, err := NewBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store := disk.New(backend, NewDecoder(cfg, log), disk.Options{Root: cfg.RootFolder, TempDir: cfg.TempDir}, log.With().Str("component", "disk").Logger())
	if err := store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("remote store check failed: %w", err)
	}
	log.Info().Str("backend", string(cfg.StoreBackend)).Str("root", cfg.RootFolder).Msg("remote store connected")

	profiles, err := registry.LoadProfiles(cfg.ProfilesPath)
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(profiles, cfg.StateFilePath, log.With().Str("component", "registry").Logger())
	if err != nil {
		return nil, err
	}

	return Build(store, reg, loc, cfg, log), nil
}

// Build assembles the components over an existing store and registry.
func Build(store *disk.Store, reg *registry.Registry, loc *time.Location, cfg *config.Config, log zerolog.Logger) *App {
	files := profile.NewFileStore(store, log.With().Str("component", "profile").Logger())
	tl := transcript.New(store, log.With().Str("component", "transcript").Logger())
	tl.SetLocation(loc)
	return &App{
		Config:     cfg,
		Location:   loc,
		Store:      store,
		Files:      files,
		Transcript: tl,
		Assembler:  assembler.New(files, tl, log.With().Str("component", "assembler").Logger()),
		Registry:   reg,
		log:        log,
	}
}

// NewBackend returns the remote store selected by STORE_BACKEND.
func NewBackend(ctx context.Context, cfg *config.Config) (disk.Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendYandex:
		return disk.NewYandex(ctx, cfg.YandexDiskToken, cfg.YandexDiskAPIURL), nil
	case config.BackendGDrive:
		return disk.NewDrive(ctx, disk.DriveCredentials{
			ClientID:     cfg.GDriveClientID,
			ClientSecret: cfg.GDriveClientSecret,
			RefreshToken: cfg.GDriveRefreshToken,
		})
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}

func NewDecoder(cfg *config.Config, log zerolog.Logger) *textenc.Decoder {
	var det textenc.Detector
	if cfg.DetectCharset {
		det = textenc.NewChardet()
	}
	return textenc.New(det, log.With().Str("component", "textenc").Logger())
}

// Sessions returns the Redis session store when REDIS_URL is set and the
// in-memory one otherwise.
func (a *App) Sessions(ctx context.Context) (session.Store, error) {
	if a.Config.RedisURL == "" {
		a.log.Info().Msg("sessions kept in memory")
		return session.NewMemory(), nil
	}
	s, err := session.NewRedis(ctx, a.Config.RedisURL, a.Config.SessionTTL)
	if err != nil {
		return nil, err
	}
	a.log.Info().Dur("ttl", a.Config.SessionTTL).Msg("sessions kept in redis")
	return s, nil
}
