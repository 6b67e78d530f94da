package ukur

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bratomyr/ukur/anshar"
	"github.com/bratomyr/ukur/archive"
	"github.com/bratomyr/ukur/cluster"
	"github.com/bratomyr/ukur/et"
	"github.com/bratomyr/ukur/live"
	"github.com/bratomyr/ukur/metrics"
	"github.com/bratomyr/ukur/queue"
	"github.com/bratomyr/ukur/scheduler"
	"github.com/bratomyr/ukur/subscription"
	"github.com/bratomyr/ukur/sx"
	"github.com/bratomyr/ukur/tiamat"
)

// App owns every component of one replica and its lifecycle.
type App struct {
	cfg         *Config
	log         zerolog.Logger
	metrics     metrics.Provider
	hostname    string
	requestorID string
	nodeStarted time.Time

	sharedMap   cluster.SharedMap
	coordinator *cluster.Coordinator
	inflight    *scheduler.Inflight
	scheduler   *scheduler.Scheduler

	subs     *subscription.Index
	mapping  *tiamat.Mapping
	journeys *live.Journeys

	etQueue  queue.Queue
	sxQueue  queue.Queue
	etEngine *et.Engine
	sxEngine *sx.Engine

	refresher  *tiamat.Refresher
	pollers    []*anshar.Poller
	subscriber *anshar.Subscriber
	callback   *anshar.Callback

	server *Server

	triggers []string
	disabled []string

	consumersCancel context.CancelFunc
}

// NewApp builds and wires a replica from cfg. Nothing runs until Start.
func NewApp(cfg *Config, log zerolog.Logger) (*App, error) {
	a := &App{
		cfg:         cfg,
		log:         log,
		metrics:     metrics.New(),
		hostname:    Hostname(),
		nodeStarted: time.Now(),
		sharedMap:   cluster.NewLocalMap(),
		inflight:    scheduler.NewInflight(),
		subs:        subscription.NewIndex(),
		mapping:     tiamat.NewMapping(),
		journeys:    live.NewJourneys(),
	}
	a.requestorID = cluster.RequestorID(a.sharedMap)
	memberID := fmt.Sprintf("%s-%s", a.hostname, uuid.NewString()[:8])
	a.coordinator = cluster.NewCoordinator(a.sharedMap, memberID, cfg.Cluster.LeaseTTL(), log)
	a.scheduler = scheduler.New(a.coordinator, a.inflight, log)

	var err error
	a.etQueue, a.sxQueue, err = buildQueues(cfg.Queue)
	if err != nil {
		return nil, err
	}

	arch, err := buildArchive(cfg.Archive)
	if err != nil {
		return nil, err
	}

	notifier := &subscription.LogNotifier{Log: log}
	a.etEngine = et.NewEngine(a.subs, notifier, a.mapping, a.journeys, arch, a.metrics, log)
	a.sxEngine = sx.NewEngine(sx.LogProcessor{Log: log}, a.metrics, log)

	client := anshar.Client{Name: cfg.ProductName, ID: a.hostname}
	pipeline := anshar.NewPipeline(cfg.Operator, a.etQueue, a.sxQueue, a.metrics, log)

	if cfg.Tiamat.Enabled {
		a.refresher = tiamat.NewRefresher(cfg.Tiamat.URL, client.Name, client.ID, a.mapping, a.inflight, a.metrics, log)
	}

	if cfg.Anshar.UseSubscription {
		a.subscriber = anshar.NewSubscriber(a.requestorID, cfg.ProductName,
			cfg.Anshar.SubscriptionURL, cfg.Anshar.OwnBaseURL,
			cfg.Anshar.ETEnabled, cfg.Anshar.SXEnabled,
			a.sharedMap, a.inflight, a.metrics, log)
		a.callback = anshar.NewCallback(a.requestorID,
			cfg.Anshar.ETEnabled, cfg.Anshar.SXEnabled,
			a.sharedMap, pipeline, a.metrics, log)
	} else {
		if cfg.Anshar.ETEnabled {
			a.pollers = append(a.pollers, anshar.NewPoller(anshar.KindET,
				cfg.Anshar.PollingETURL, a.requestorID, client, pipeline, a.inflight, a.metrics, log))
		}
		if cfg.Anshar.SXEnabled {
			a.pollers = append(a.pollers, anshar.NewPoller(anshar.KindSX,
				cfg.Anshar.PollingSXURL, a.requestorID, client, pipeline, a.inflight, a.metrics, log))
		}
	}

	a.registerTriggers()
	a.server = NewServer(cfg.Server.Port, a.Router(), log)
	return a, nil
}

func (a *App) registerTriggers() {
	interval := a.cfg.Anshar.PollingInterval()
	a.register(live.Workflow, interval, live.Workflow, a.flushOldJourneys)

	if a.refresher != nil {
		a.register(tiamat.Workflow, a.cfg.Tiamat.Interval(), tiamat.Workflow, a.refresher.Run)
	} else {
		a.disabled = append(a.disabled, tiamat.Workflow)
	}

	if a.cfg.Anshar.UseSubscription {
		if !a.cfg.Anshar.ETEnabled && !a.cfg.Anshar.SXEnabled {
			a.log.Warn().Msg("subscription mode with both ET and SX disabled, nothing will be subscribed")
			a.disabled = append(a.disabled, anshar.WorkflowRenewer, anshar.WorkflowChecker)
			return
		}
		a.register(anshar.WorkflowRenewer, anshar.SubscriptionDuration, anshar.WorkflowRenewer, a.subscriber.Renew)
		a.register(anshar.WorkflowChecker, anshar.HeartbeatInterval, anshar.WorkflowChecker, a.subscriber.Check)
		return
	}

	for _, p := range a.pollers {
		a.register(p.Workflow(), interval, p.Workflow(), p.Run)
	}
	if !a.cfg.Anshar.ETEnabled {
		a.disabled = append(a.disabled, anshar.WorkflowPollET)
	}
	if !a.cfg.Anshar.SXEnabled {
		a.disabled = append(a.disabled, anshar.WorkflowPollSX)
	}
}

func (a *App) register(name string, period time.Duration, workflow string, fire func()) {
	a.scheduler.RegisterTrigger(name, period, workflow, fire)
	a.triggers = append(a.triggers, name)
}

// Start launches the coordinator, the queue consumers, the trigger timers
// and the HTTP server.
func (a *App) Start() {
	a.coordinator.Start()

	ctx, cancel := context.WithCancel(context.Background())
	a.consumersCancel = cancel
	go a.etQueue.Consume(ctx, a.cfg.Queue.Workers, a.etEngine.HandleMessage)
	go a.sxQueue.Consume(ctx, a.cfg.Queue.Workers, a.sxEngine.HandleMessage)

	a.scheduler.Start()
	a.server.Start()
	a.log.Info().
		Str("requestorId", a.requestorID).
		Str("hostname", a.hostname).
		Bool("useSubscription", a.cfg.Anshar.UseSubscription).
		Msg("ukur started")
}

// Stop shuts the replica down: timers first so no new work starts, then
// leases, consumers and finally the HTTP server.
func (a *App) Stop(ctx context.Context) {
	a.scheduler.Stop()
	a.coordinator.Stop()
	if a.consumersCancel != nil {
		a.consumersCancel()
	}
	_ = a.etQueue.Close()
	_ = a.sxQueue.Close()
	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Error().Err(err).Msg("server shutdown error")
	}
	a.log.Info().Msg("ukur stopped")
}

func (a *App) flushOldJourneys() {
	exit := a.inflight.Enter(live.Workflow)
	defer exit()
	removed := a.journeys.FlushOldJourneys(time.Now())
	a.metrics.SetLiveJourneys(a.journeys.Count())
	if removed > 0 {
		a.log.Info().Int("removed", removed).Int("remaining", a.journeys.Count()).Msg("flushed old journeys")
	}
}

func buildQueues(cfg QueueConfig) (queue.Queue, queue.Queue, error) {
	if cfg.RabbitMQ == nil {
		return queue.NewChan(cfg.Capacity), queue.NewChan(cfg.Capacity), nil
	}
	etCfg := *cfg.RabbitMQ
	if etCfg.Queue == "" {
		etCfg.Queue = "ukur"
	}
	sxCfg := etCfg
	etCfg.Queue += "-et"
	sxCfg.Queue += "-sx"
	etQ, err := queue.NewRabbit(etCfg)
	if err != nil {
		return nil, nil, err
	}
	sxQ, err := queue.NewRabbit(sxCfg)
	if err != nil {
		_ = etQ.Close()
		return nil, nil, err
	}
	return etQ, sxQ, nil
}

func buildArchive(cfg ArchiveConfig) (archive.Archive, error) {
	if !cfg.StoreMessagesToFile {
		return archive.Disabled{}, nil
	}
	dir := cfg.Dir
	if dir == "" {
		dir = "archive"
	}
	return archive.NewFileArchive(dir)
}

// Hostname identifies this replica towards upstreams and in route status.
func Hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "Ukur-UnknownHost"
	}
	return name
}
