package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"momentfeed/internal/api"
	"momentfeed/internal/comment"
	"momentfeed/internal/compose"
	"momentfeed/internal/config"
	"momentfeed/internal/database"
	"momentfeed/internal/feed"
	"momentfeed/internal/middleware"
	"momentfeed/internal/notify"
	"momentfeed/internal/repository"
	"momentfeed/internal/service"
	"momentfeed/internal/session"
	"momentfeed/internal/storage"
)

// App is the assembled client: one API client shared by every repository,
// the session state machine, and the controllers that depend on it.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Client   *api.Client
	Repo     *repository.Repository
	Services *service.Service
	Session  *session.Controller
	Feed     *feed.Controller
	Comments *comment.Controller
	Composer *compose.Composer
	Uploader storage.Uploader

	db *database.DB
}

func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Transport builds the outgoing middleware chain from the API settings.
func Transport(cfg config.API, logger *slog.Logger) http.RoundTripper {
	mws := []middleware.Middleware{
		middleware.RateLimitMiddleware(middleware.NewLimiter(cfg.RateLimit, cfg.RateBurst)),
		middleware.UserAgentMiddleware(cfg.UserAgent),
		middleware.RequestIDMiddleware,
	}
	if cfg.LogRequests {
		mws = append([]middleware.Middleware{middleware.LoggingMiddleware(logger)}, mws...)
	}
	return middleware.Chain(http.DefaultTransport, mws...)
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, notifier notify.Notifier) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NewSlogNotifier(logger)
	}

	transport := Transport(cfg.API, logger)
	client := api.NewClient(cfg.API.BaseURL,
		api.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout, Transport: transport}),
		api.WithLogger(logger),
	)

	a := &App{Config: cfg, Logger: logger, Client: client}

	kv, err := a.openSessionStore(ctx)
	if err != nil {
		return nil, err
	}

	uploader, err := newUploader(cfg, transport, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Uploader = uploader

	validate := validator.New()
	a.Repo = repository.NewRepository(client, kv)
	a.Services = service.NewService(a.Repo, client, validate, logger)

	store := session.NewStore(kv, cfg.Session.TTL)
	a.Session = session.NewController(store, a.Services.Auth, validate, notifier, logger)

	feedOpts := feed.Options{
		PageLimit:       cfg.Feed.PageLimit,
		MaxPages:        cfg.Feed.MaxPages,
		ScrollThreshold: cfg.Feed.ScrollThreshold,
		Transformer:     feed.NewTransformer(cfg.Feed.ServerClockOffset),
	}
	a.Feed = feed.NewController(a.Repo.Record, a.Session, notifier, logger, feedOpts)
	a.Comments = comment.NewController(a.Repo.Comment, a.Session, notifier, logger)
	a.Composer = compose.NewComposer(a.Repo.Record, uploader, a.Session, validate, notifier, logger, cfg.DebounceWait)

	return a, nil
}

// Init restores the cached session within the configured probe timeout.
func (a *App) Init(ctx context.Context) error {
	if a.Config.API.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Config.API.ProbeTimeout)
		defer cancel()
	}
	return a.Session.Init(ctx)
}

func (a *App) Close() error {
	if a.db != nil {
		return a.db.CloseDB()
	}
	return nil
}

func (a *App) openSessionStore(ctx context.Context) (repository.KeyValueStore, error) {
	switch a.Config.Session.Backend {
	case config.SessionBackendPostgres:
		db, err := database.ConnectDB(ctx, a.Config, a.Logger)
		if err != nil {
			return nil, err
		}
		a.db = db
		return repository.NewSQLKV(db.DB), nil
	default:
		kv, err := repository.NewFileKV(a.Config.Session.FilePath)
		if err != nil {
			return nil, err
		}
		a.Logger.Debug("using file session store", "path", kv.Path())
		return kv, nil
	}
}

func newUploader(cfg *config.Config, transport http.RoundTripper, logger *slog.Logger) (storage.Uploader, error) {
	switch cfg.Upload.Backend {
	case config.UploadBackendMinIO:
		uploader, err := storage.NewMinIOUploader(cfg.MinIO, cfg.Upload.MaxUploadSize, logger)
		if err != nil {
			return nil, fmt.Errorf("init minio uploader: %w", err)
		}
		return uploader, nil
	default:
		hc := &http.Client{Timeout: 2 * time.Minute, Transport: transport}
		return storage.NewHTTPUploader(cfg.Upload.Endpoint, hc, cfg.Upload.MaxUploadSize, logger), nil
	}
}
