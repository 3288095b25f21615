package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/text/language"

	"countryreport/internal/config"
	"countryreport/internal/etl"
	_ "countryreport/internal/etl/sources"
	"countryreport/internal/metrics"
	"countryreport/internal/mirror"
	"countryreport/internal/report"
	"countryreport/internal/service"
	"countryreport/internal/storage"
)

// app is the set of resources one command invocation works with.
// Close releases all of them.
type app struct {
	cfg       *config.Config
	locale    language.Tag
	db        *storage.DB
	countries *storage.CountryStore
	runs      *storage.RunStore
	mirror    *mirror.Mongo
	metrics   *metrics.Recorder
}

func openApp(cfg *config.Config) (*app, error) {
	locale, err := report.ParseLocale(cfg.Locale)
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(connectionFromConfig(cfg), storage.Options{TraceSQL: cfg.TraceSQL})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &app{
		cfg:       cfg,
		locale:    locale,
		db:        db,
		countries: storage.NewCountryStore(db),
		runs:      storage.NewRunStore(db),
		metrics:   metrics.New(cfg.MetricsFile),
	}

	if cfg.Mirror.MongoURI != "" {
		m, err := mirror.NewMongo(mirror.Config{
			URI:        cfg.Mirror.MongoURI,
			Database:   cfg.Mirror.Database,
			Collection: cfg.Mirror.Collection,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("open mirror: %w", err)
		}
		a.mirror = m
	}
	return a, nil
}

// refresher builds the refresh service. emitter may be nil.
func (a *app) refresher(emitter service.EventEmitter) (*service.RefreshService, error) {
	job, err := syncJob(a.cfg)
	if err != nil {
		return nil, err
	}
	deps := service.Deps{
		Engine:  &etl.Engine{Dest: &etl.StoreWriter{Store: a.countries}},
		Job:     job,
		Runs:    a.runs,
		Metrics: a.metrics,
		Emitter: emitter,
	}
	if a.mirror != nil {
		deps.Mirror = a.mirror
	}
	return service.NewRefreshService(deps), nil
}

func (a *app) Close() error {
	var result *multierror.Error
	if a.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mirror.Close(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("close mirror: %w", err))
		}
	}
	if err := a.db.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close store: %w", err))
	}
	return result.ErrorOrNil()
}

// closeApp folds the Close error into *errp so commands can defer it.
func closeApp(a *app, errp *error) {
	if cerr := a.Close(); cerr != nil && *errp == nil {
		*errp = cerr
	}
}

func connectionFromConfig(cfg *config.Config) storage.Connection {
	db := cfg.Database
	return storage.Connection{
		Driver:   db.Driver,
		Path:     db.Path,
		DSN:      db.DSN,
		Host:     db.Host,
		Port:     db.Port,
		Database: db.Name,
		Username: db.User,
		Password: db.Password,
		SSLMode:  db.SSLMode,
	}
}

// syncJob picks the file source when one is configured, the HTTP source otherwise.
func syncJob(cfg *config.Config) (*etl.SyncJob, error) {
	if cfg.Source.File != "" {
		return &etl.SyncJob{
			SourceType: "json_file",
			SourceCfg:  etl.SourceConfig{"filePath": cfg.Source.File},
		}, nil
	}
	timeout, err := cfg.HTTPTimeout()
	if err != nil {
		return nil, err
	}
	return &etl.SyncJob{
		SourceType: "http",
		SourceCfg:  etl.SourceConfig{"url": cfg.Source.URL, "timeout": timeout},
	}, nil
}
