package client

import (
	"context"
	"encoding/json"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"campsync/internal/app/client/config"
	"campsync/internal/domain/campaign"
	syncdomain "campsync/internal/domain/sync"
)

const statsKey = "sync_stats"

// App wires the offline sync core together: the pending change queue, the
// handler registry, the sync engine, the connectivity monitor, the realtime
// reconciler and the local state store.
type App struct {
	config     *config.Config
	log        *slog.Logger
	kv         KV
	sqlite     *SQLiteStorage
	remote     *RemoteClient
	queue      *Queue
	registry   *Registry
	engine     *Engine
	monitor    *Monitor
	store      *Store
	reconciler *Reconciler

	statsMu gosync.Mutex
	stats   syncdomain.Stats
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	var kv KV
	sqlite, err := NewSQLiteStorage(cfg.DataPath)
	if err != nil {
		log.Warn("failed to open local database, falling back to memory", "error", err)
		kv = NewMemoryKV()
		sqlite = nil
	} else {
		kv = sqlite
	}

	remote := NewRemoteClient(cfg, log)
	store := NewStore()
	queue := NewQueue(kv, log)
	registry := NewRegistry()
	engine := NewEngine(queue, registry, log)

	app := &App{
		config:     cfg,
		log:        log,
		kv:         kv,
		sqlite:     sqlite,
		remote:     remote,
		queue:      queue,
		registry:   registry,
		engine:     engine,
		store:      store,
		reconciler: NewReconciler(store, NewRealtimeFeed(remote.BaseURL(), log), log),
	}
	app.monitor = NewMonitor(app, false, log)
	app.registerHandlers()
	app.loadStats()

	return app, nil
}

// registerHandlers resolves every entity kind to its remote-write path once
// at startup.
func (a *App) registerHandlers() {
	for _, kind := range []syncdomain.Kind{campaign.KindCampaign, campaign.KindItem} {
		a.registry.Register(kind, a.remoteWriteHandler)
	}
}

func (a *App) remoteWriteHandler(ctx context.Context, change syncdomain.PendingChange) error {
	switch change.Action {
	case syncdomain.ActionCreate:
		return a.remote.CreateEntity(ctx, a.config.Scope, change.Kind, change.EntityID, change.Payload)
	case syncdomain.ActionUpdate:
		return a.remote.UpdateEntity(ctx, change.EntityID, change.Payload)
	case syncdomain.ActionDelete:
		return a.remote.DeleteEntity(ctx, change.EntityID)
	default:
		return fmt.Errorf("unknown action %q", change.Action)
	}
}

// CheckConnection probes the service once and feeds the result into the
// connectivity monitor.
func (a *App) CheckConnection(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := a.remote.Ping(probeCtx)
	a.monitor.SetState(err == nil)
	return err
}

// Run starts the connectivity probe loop and the push subscription and
// blocks until ctx is done. Cancelling ctx releases both.
func (a *App) Run(ctx context.Context) error {
	if err := a.reconciler.Subscribe(ctx, a.config.Scope); err != nil {
		a.log.Warn("push subscription unavailable", "error", err)
	}
	defer a.reconciler.Unsubscribe()

	a.monitor.Run(ctx, a.remote, time.Duration(a.config.ProbeInterval)*time.Second)
	return nil
}

// Drain satisfies the monitor's Drainer and folds the outcome into the
// persisted stats.
func (a *App) Drain(ctx context.Context) syncdomain.SyncResult {
	result := a.engine.Drain(ctx)
	if len(result.Errors) == 1 && result.Errors[0].Message == ErrDrainInProgress.Error() {
		return result
	}
	a.recordDrain(result)
	return result
}

// RetryOne retries a single pending or evicted change out of band.
func (a *App) RetryOne(ctx context.Context, id string) error {
	return a.engine.RetryOne(ctx, id)
}

// Hydrate pulls the full scope snapshot from the service into the store.
func (a *App) Hydrate(ctx context.Context) error {
	entities, err := a.remote.ListEntities(ctx, a.config.Scope)
	if err != nil {
		return fmt.Errorf("failed to hydrate scope %q: %w", a.config.Scope, err)
	}
	a.store.ReplaceAll(entities)
	a.log.Info("scope hydrated", "scope", a.config.Scope, "entities", len(entities))
	return nil
}

// Monitor exposes the connectivity monitor.
func (a *App) Monitor() *Monitor { return a.monitor }

// Store exposes the local state store.
func (a *App) Store() *Store { return a.store }

// Queue exposes the pending change log.
func (a *App) Queue() *Queue { return a.queue }

// Reconciler exposes the realtime reconciler.
func (a *App) Reconciler() *Reconciler { return a.reconciler }

// Registry exposes the sync handler registry.
func (a *App) Registry() *Registry { return a.registry }

// Close releases the local database.
func (a *App) Close() error {
	if a.sqlite != nil {
		return a.sqlite.Close()
	}
	return nil
}

// ==================== Mutation entry points ====================

// A mutation first attempts the direct remote write. While offline, or when
// the write fails, it is queued for a later drain instead. Either way the
// local store reflects it immediately.

// CreateCampaign records a new campaign.
func (a *App) CreateCampaign(ctx context.Context, name, system string) (campaign.Campaign, error) {
	c := campaign.Campaign{
		ID:       uuid.NewString(),
		Name:     name,
		System:   system,
		Status:   "active",
		Revision: time.Now(),
	}
	a.apply(ctx, syncdomain.ActionCreate, c.Entity())
	return c, nil
}

// UpdateCampaign applies an attribute patch to a campaign.
func (a *App) UpdateCampaign(ctx context.Context, id string, attrs map[string]any) error {
	return a.patch(ctx, campaign.KindCampaign, id, attrs)
}

// DeleteCampaign removes a campaign.
func (a *App) DeleteCampaign(ctx context.Context, id string) error {
	return a.remove(ctx, campaign.KindCampaign, id)
}

// AddItem records a new line item under a campaign.
func (a *App) AddItem(ctx context.Context, campaignID, title string) (campaign.Item, error) {
	if _, ok := a.store.Get(campaignID); !ok {
		return campaign.Item{}, fmt.Errorf("campaign %s not found", campaignID)
	}
	item := campaign.Item{
		ID:         uuid.NewString(),
		CampaignID: campaignID,
		Title:      title,
		Revision:   time.Now(),
	}
	a.apply(ctx, syncdomain.ActionCreate, item.Entity())
	return item, nil
}

// UpdateItem applies an attribute patch to a line item.
func (a *App) UpdateItem(ctx context.Context, id string, attrs map[string]any) error {
	return a.patch(ctx, campaign.KindItem, id, attrs)
}

// DeleteItem removes a line item.
func (a *App) DeleteItem(ctx context.Context, id string) error {
	return a.remove(ctx, campaign.KindItem, id)
}

func (a *App) apply(ctx context.Context, action syncdomain.Action, e campaign.Entity) {
	a.store.Upsert(e)

	if a.monitor.Current().Online {
		err := a.remote.CreateEntity(ctx, a.config.Scope, e.Kind, e.ID, e.Attrs)
		if err == nil {
			return
		}
		a.log.Warn("direct write failed, queueing change", "entity_id", e.ID, "error", err)
	}

	a.queue.Enqueue(e.Kind, action, e.ID, e.Attrs)
}

func (a *App) patch(ctx context.Context, kind syncdomain.Kind, id string, attrs map[string]any) error {
	existing, ok := a.store.Get(id)
	if !ok {
		return fmt.Errorf("entity %s not found", id)
	}
	a.store.Upsert(existing.Patch(attrs, time.Now()))

	if a.monitor.Current().Online {
		err := a.remote.UpdateEntity(ctx, id, attrs)
		if err == nil {
			return nil
		}
		a.log.Warn("direct update failed, queueing change", "entity_id", id, "error", err)
	}

	a.queue.Enqueue(kind, syncdomain.ActionUpdate, id, attrs)
	return nil
}

func (a *App) remove(ctx context.Context, kind syncdomain.Kind, id string) error {
	a.store.Remove(id)

	if a.monitor.Current().Online {
		err := a.remote.DeleteEntity(ctx, id)
		if err == nil {
			return nil
		}
		a.log.Warn("direct delete failed, queueing change", "entity_id", id, "error", err)
	}

	a.queue.Enqueue(kind, syncdomain.ActionDelete, id, nil)
	return nil
}

// ==================== Stats ====================

func (a *App) loadStats() {
	data, err := a.kv.Get(statsKey)
	if err != nil {
		return
	}
	var stats syncdomain.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		a.log.Warn("failed to decode sync stats", "error", err)
		return
	}
	a.statsMu.Lock()
	a.stats = stats
	a.statsMu.Unlock()
}

func (a *App) recordDrain(result syncdomain.SyncResult) {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()

	now := time.Now()
	a.stats.TotalDrains++
	a.stats.LastDrain = now
	if result.Success {
		a.stats.LastSuccess = now
	} else {
		a.stats.LastFailed = now
	}
	a.stats.TotalSynced += result.SyncedCount
	a.stats.TotalFailed += result.FailedCount

	data, err := json.Marshal(a.stats)
	if err != nil {
		a.log.Warn("failed to encode sync stats", "error", err)
		return
	}
	if err := a.kv.Put(statsKey, data); err != nil {
		a.log.Warn("failed to persist sync stats", "error", err)
	}
}

// Stats returns a copy of the accumulated drain statistics.
func (a *App) Stats() syncdomain.Stats {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	return a.stats
}

// ==================== Context plumbing ====================

type ctxKey struct{}

// NewContext attaches the app to a context for command handlers.
func NewContext(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, ctxKey{}, app)
}

// FromContext extracts the app set by NewContext, or nil.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(ctxKey{}).(*App)
	return app
}
