package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"rotapost/internal/config"
	"rotapost/internal/content"
	"rotapost/internal/delivery"
	"rotapost/internal/eventbus"
	"rotapost/internal/pipeline"
	"rotapost/internal/render"
	"rotapost/internal/rotation"
	"rotapost/internal/schedule"
	"rotapost/internal/storage"
	"rotapost/internal/upload"
	logx "rotapost/pkg/logx"
)

const userAgent = "rotapost/1.0"

// App owns every component of one process. Build it once per process and
// Close it on the way out.
type App struct {
	cfg *Config

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	runner *pipeline.Runner
}

// NewApp loads the config at cfgPath (empty selects the built-in defaults)
// and wires the components.
func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfgm.SetLogger(logx.NewConsole("INFO").With(logx.String("comp", "config")))
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// New wires the components for an already loaded config.
func New(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	ok := false
	defer func() {
		if !ok {
			_ = logSvc.Close()
		}
	}()

	bus := eventbus.New()

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	uc, err := mapUploadConfig(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	dc, err := mapDeliveryConfig(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	pc, err := mapPixabayConfig(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	quoteTimeout, err := parseDurationOrDefault("quotes.timeout", cfg.Quotes.Timeout, 10*time.Second)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	httpc := resty.New().
		SetHeader("User-Agent", userAgent).
		SetLogger(log.With(logx.String("comp", "http")))

	studio := render.NewStudio(mapRenderConfig(cfg),
		render.NewFontLoader(mapFontConfig(cfg), httpc, log.With(logx.String("comp", "fonts"))))

	resolver := &content.Resolver{
		WorkDir: cfg.Render.WorkDir,
		Quotes: &content.QuotePicker{
			Source:   content.NewZenQuotes(httpc, cfg.Quotes.Endpoint, quoteTimeout),
			Attempts: cfg.Quotes.Attempts,
			Log:      log.With(logx.String("comp", "quotes")),
		},
		Backgrounds: content.NewPixabay(pc, httpc, log.With(logx.String("comp", "backgrounds"))),
		Renderer:    studio,
		History:     store,
		Author:      cfg.Quotes.Author,
		Log:         log.With(logx.String("comp", "content")),
	}

	factory := mapFactory(cfg, dc)
	factory.HTTP = httpc
	factory.Log = log.With(logx.String("comp", "delivery"))

	orch := pipeline.NewOrchestrator(
		resolver,
		upload.New(uc, httpc, log),
		delivery.NewDispatcher(dc, log, bus),
		&factory,
		log,
		bus,
	)
	runner := pipeline.NewRunner(cfg.Topics, store, orch, log, bus)

	ok = true
	return &App{
		cfg:    cfg,
		log:    log.With(logx.String("comp", "app")),
		logs:   logSvc,
		bus:    bus,
		store:  store,
		runner: runner,
	}, nil
}

func (a *App) Logger() logx.Logger { return a.log }

func (a *App) Bus() eventbus.Bus { return a.bus }

// Run performs one invocation.
func (a *App) Run(ctx context.Context, mode rotation.Mode) (pipeline.Summary, error) {
	return a.runner.Run(ctx, mode)
}

// Status is the rotation position as seen by the next scheduled run.
type Status struct {
	CurrentIndex int
	Topics       []string
	Next         string
	Stale        bool
}

func (a *App) Status(ctx context.Context) (Status, error) {
	st, plan, err := a.runner.Peek(ctx)
	if err != nil {
		return Status{}, err
	}
	out := Status{CurrentIndex: st.CurrentIndex, Stale: plan.Stale}
	for _, t := range a.cfg.Topics {
		out.Topics = append(out.Topics, t.ID)
	}
	if len(plan.Topics) > 0 {
		out.Next = plan.Topics[0].ID
	}
	return out, nil
}

// Daemon triggers scheduled runs on schedule.spec until ctx is done.
func (a *App) Daemon(ctx context.Context) error {
	spec := a.cfg.Schedule.Spec
	if spec == "" {
		return fmt.Errorf("schedule.spec is required for the daemon")
	}
	d, err := schedule.NewDaemon(spec, a.cfg.Schedule.Timezone, func(c context.Context) error {
		_, err := a.Run(c, rotation.Scheduled)
		return err
	}, a.log)
	if err != nil {
		return err
	}

	events, unsub := a.bus.Subscribe(64)
	defer unsub()
	go func() {
		for e := range events {
			a.log.Debug("event", logx.String("type", e.Type), logx.Any("data", e.Data))
		}
	}()

	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	d.Stop(stopCtx)
	return nil
}

func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.logs != nil {
		errs = append(errs, a.logs.Close())
	}
	return errors.Join(errs...)
}
