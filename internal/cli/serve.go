package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evcraddock/offer-form/internal/admin"
	"github.com/evcraddock/offer-form/internal/auth"
	"github.com/evcraddock/offer-form/internal/blob"
	"github.com/evcraddock/offer-form/internal/config"
	"github.com/evcraddock/offer-form/internal/db"
	"github.com/evcraddock/offer-form/internal/draft"
	"github.com/evcraddock/offer-form/internal/email"
	"github.com/evcraddock/offer-form/internal/formsvc"
	"github.com/evcraddock/offer-form/internal/logging"
	"github.com/evcraddock/offer-form/internal/pdf"
	"github.com/evcraddock/offer-form/internal/places"
	"github.com/evcraddock/offer-form/internal/qr"
	"github.com/evcraddock/offer-form/internal/roster"
	"github.com/evcraddock/offer-form/internal/settings"
	"github.com/evcraddock/offer-form/internal/shortlink"
	"github.com/evcraddock/offer-form/internal/submit"
	"github.com/evcraddock/offer-form/internal/web"
	"github.com/evcraddock/offer-form/internal/webhook"
)

const (
	sweepInterval       = time.Minute
	maintenanceInterval = time.Hour
)

func newServeCmd() *cobra.Command {
	var (
		configFile string
		addr       string
		dev        bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the form server",
		Long: "Start the HTTP server for the offer form and its admin API. Configuration comes from offer.yaml, " +
			".env and OFFER_* environment variables.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("dev") {
				cfg.DevMode = dev
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "path to a YAML config file (default: ./offer.yaml or ~/.config/offer/offer.yaml)")
	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (overrides config)")
	cmd.Flags().BoolVar(&dev, "dev", false, "development mode: debug logging and insecure cookies")

	return cmd
}

func runServe(cfg *config.Config) error {
	logger, err := logging.Setup(cfg.DevMode)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB(database)

	schema, err := db.Version(database)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, database)
	if err != nil {
		return err
	}
	defer a.close()

	formsDone := make(chan struct{})
	go func() {
		a.forms.Run(ctx, sweepInterval)
		close(formsDone)
	}()
	go a.maintain(ctx, maintenanceInterval)

	logger.Info("starting server",
		zap.String("addr", cfg.Addr),
		zap.String("base_url", cfg.BaseURL),
		zap.String("drafts", cfg.Draft.Backend),
		zap.Int("schema", schema),
		zap.Bool("webhook", cfg.Webhook.URL != ""),
		zap.Bool("dev_mode", cfg.DevMode),
	)

	err = a.server.ListenAndServe(ctx, cfg.Addr)
	stop()
	<-formsDone
	return err
}

// purger removes drafts older than a cutoff. Only the SQLite store needs
// it; redis expires keys itself.
type purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// app is the wired server and the background work around it.
type app struct {
	server   *web.Server
	forms    *formsvc.Service
	sessions *auth.SessionStore
	passkeys *auth.PasskeyStore
	drafts   purger
	window   time.Duration
	redis    *redis.Client
}

// buildApp wires every component from cfg.
func buildApp(ctx context.Context, cfg *config.Config, database *sql.DB) (*app, error) {
	gate := auth.NewGate(cfg.AdminPassphrase)
	if !gate.Enabled() {
		zap.L().Warn("admin passphrase not set, admin login disabled")
	}
	a := &app{
		sessions: auth.NewSessionStore(database, gate, !cfg.DevMode),
		passkeys: auth.NewPasskeyStore(database, gate),
		window:   cfg.Draft.Window,
	}

	var drafts draft.Store
	switch cfg.Draft.Backend {
	case "redis":
		rc, err := draft.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.redis = rc
		drafts = draft.NewRedisStore(rc, cfg.Draft.Window)
	default:
		store := draft.NewSQLiteStore(database)
		a.drafts = store
		drafts = store
	}

	var objects blob.Store
	if cfg.Blob.Bucket != "" {
		s3, err := blob.NewS3Store(ctx, blob.S3Options{
			Bucket:    cfg.Blob.Bucket,
			Region:    cfg.Blob.Region,
			Endpoint:  cfg.Blob.Endpoint,
			AccessKey: cfg.Blob.AccessKey,
			SecretKey: cfg.Blob.SecretKey,
			PublicURL: cfg.Blob.PublicURL,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		objects = s3
	}

	notifier, err := newNotifier(ctx, cfg.Email)
	if err != nil {
		a.close()
		return nil, err
	}

	var deliverer submit.Deliverer
	if cfg.Webhook.URL != "" {
		wh, err := webhook.NewClient(cfg.Webhook.URL, cfg.Webhook.Timeout)
		if err != nil {
			a.close()
			return nil, err
		}
		deliverer = wh
	} else {
		zap.L().Warn("no webhook configured, submissions run in demo mode")
	}

	var lookup web.AddressLookup
	if cfg.Places.APIKey != "" {
		pc, err := places.NewClient(cfg.Places.APIKey, cfg.Places.Country)
		if err != nil {
			a.close()
			return nil, err
		}
		lookup = pc
	}

	links := shortlink.NewStore(database)
	adm, err := admin.NewService(
		roster.NewStore(database),
		settings.NewStore(database, cfg.LogoURL),
		links,
		blob.NewUploader(objects, cfg.Blob.InlineLimit),
		qr.NewClient(cfg.QR.BaseURL),
		cfg.BaseURL,
	)
	if err != nil {
		a.close()
		return nil, err
	}

	renderer := pdf.NewRenderer()
	pipeline := submit.NewPipeline(submit.Deps{
		Renderer:  renderer,
		Webhook:   deliverer,
		Drafts:    drafts,
		Notifier:  notifier,
		Audit:     submit.NewAuditLog(database),
		DemoDelay: cfg.Webhook.DemoDelay,
	})

	a.forms = formsvc.NewService(formsvc.Deps{
		Env:       adm.Hub(),
		Links:     links,
		Drafts:    drafts,
		Submitter: pipeline,
		Renderer:  renderer,
		LogoURL: func() string {
			return adm.Hub().Settings.Current().LogoURL
		},
		Debounce:    cfg.Draft.Debounce,
		DraftWindow: cfg.Draft.Window,
		IdleTimeout: cfg.Forms.IdleTimeout,
	})

	a.server, err = web.NewServer(web.Deps{
		Forms:    a.forms,
		Admin:    adm,
		Places:   lookup,
		Gate:     gate,
		Sessions: a.sessions,
		APIKeys:  auth.NewAPIKeyStore(database),
		Passkeys: a.passkeys,
		Passkey: web.PasskeyConfig{
			RPID:      cfg.Passkey.RPID,
			RPOrigins: cfg.Passkey.RPOrigins,
		},
		DevMode: cfg.DevMode,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	return a, nil
}

// newNotifier returns the configured agent notification sender, or nil
// when email is disabled.
func newNotifier(ctx context.Context, cfg config.EmailConfig) (email.Sender, error) {
	switch cfg.Provider {
	case "smtp":
		return email.NewSMTPSender(email.SMTPConfig{
			Host: cfg.SMTP.Host,
			Port: cfg.SMTP.Port,
			User: cfg.SMTP.User,
			Pass: cfg.SMTP.Pass,
			From: cfg.From,
		})
	case "ses":
		return email.NewSESSender(ctx, cfg.SESRegion, cfg.From)
	default:
		return nil, nil
	}
}

// maintain deletes lapsed admin grants and stale drafts every interval.
func (a *app) maintain(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.cleanup(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *app) cleanup(ctx context.Context) {
	if n, err := a.sessions.Cleanup(); err != nil {
		zap.L().Warn("cleaning up sessions", zap.Error(err))
	} else if n > 0 {
		zap.L().Debug("removed expired sessions", zap.Int64("count", n))
	}
	if n, err := a.passkeys.Prune(); err != nil {
		zap.L().Warn("pruning passkeys", zap.Error(err))
	} else if n > 0 {
		zap.L().Info("removed passkeys from an earlier passphrase", zap.Int64("count", n))
	}

	if a.drafts == nil {
		return
	}
	n, err := a.drafts.Purge(ctx, time.Now().Add(-a.window))
	if err != nil {
		zap.L().Warn("purging drafts", zap.Error(err))
	} else if n > 0 {
		zap.L().Debug("purged stale drafts", zap.Int64("count", n))
	}
}

func (a *app) close() {
	if a.redis == nil {
		return
	}
	if err := a.redis.Close(); err != nil {
		zap.L().Warn("closing redis", zap.Error(err))
	}
}
