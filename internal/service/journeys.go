package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
	"github.com/mcbn/tradepost/internal/pkg/logger"
	"github.com/mcbn/tradepost/internal/world"
)

// Mover brings a keeper entity to a target position.
type Mover interface {
	MoveTo(ctx context.Context, entityID string, target model.Vec3) error
}

// TeleportMover places the keeper at the target at once.
type TeleportMover struct {
	Entities world.EntityHost
}

func (m TeleportMover) MoveTo(ctx context.Context, entityID string, target model.Vec3) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.Entities.MoveEntity(entityID, target) {
		return fmt.Errorf("entity %s not found", entityID)
	}
	return nil
}

// WalkMover advances the keeper Step blocks every second tick until it is
// within one block of the target. Every 5*Fallback ticks it jumps halfway
// and snaps to the ground. A target in another world is reached by teleport.
type WalkMover struct {
	Entities world.EntityHost
	Step     float64
	Fallback int
	Tick     time.Duration
	MaxTicks int
}

func NewWalkMover(entities world.EntityHost, step float64, fallback int, tick time.Duration) *WalkMover {
	return &WalkMover{
		Entities: entities,
		Step:     math.Max(0.2, step),
		Fallback: max(1, fallback),
		Tick:     tick,
		MaxTicks: 20 * 60 * 20,
	}
}

func (m *WalkMover) MoveTo(ctx context.Context, entityID string, target model.Vec3) error {
	tick := m.Tick
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for ticks := 0; ; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		cur, ok := m.Entities.EntityPos(entityID)
		if !ok {
			return fmt.Errorf("entity %s not found", entityID)
		}
		if cur.World != target.World || (m.MaxTicks > 0 && ticks >= m.MaxTicks) {
			m.Entities.MoveEntity(entityID, target)
			return nil
		}
		dx, dy, dz := target.X-cur.X, target.Y-cur.Y, target.Z-cur.Z
		distSq := dx*dx + dy*dy + dz*dz
		if distSq < 1 {
			return nil
		}
		if ticks%2 == 0 {
			l := math.Sqrt(distSq)
			m.Entities.MoveEntity(entityID, model.Vec3{
				World: cur.World,
				X:     cur.X + dx/l*m.Step,
				Y:     cur.Y + dy/l*m.Step,
				Z:     cur.Z + dz/l*m.Step,
			})
		}
		ticks++
		if ticks%(m.Fallback*5) == 0 {
			midX, midZ := cur.X+dx*0.5, cur.Z+dz*0.5
			m.Entities.MoveEntity(entityID, model.Vec3{
				World: cur.World,
				X:     midX,
				Y:     m.Entities.SurfaceY(cur.World, midX, midZ),
				Z:     midZ,
			})
		}
	}
}

type JourneyStatus string

const (
	JourneyRunning   JourneyStatus = "running"
	JourneyFinished  JourneyStatus = "finished"
	JourneyCancelled JourneyStatus = "cancelled"
	JourneyAborted   JourneyStatus = "aborted"
)

// Journey is one keeper walking a route on behalf of its owner.
type Journey struct {
	ID       string
	KeeperID string
	Owner    string
	Route    []RouteStep

	order  *model.PurchaseOrder
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	status   JourneyStatus
	outcomes []model.StepOutcome
}

func (j *Journey) Cancel() { j.cancel() }

func (j *Journey) Done() <-chan struct{} { return j.done }

func (j *Journey) Status() JourneyStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Journey) Outcomes() []model.StepOutcome {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]model.StepOutcome(nil), j.outcomes...)
}

func (j *Journey) record(o model.StepOutcome) {
	j.mu.Lock()
	j.outcomes = append(j.outcomes, o)
	j.mu.Unlock()
}

func (j *Journey) finish(s JourneyStatus) {
	j.mu.Lock()
	j.status = s
	j.mu.Unlock()
}

// JourneyView is the JSON shape of a journey.
type JourneyView struct {
	ID       string              `json:"id"`
	KeeperID string              `json:"keeper_id"`
	Owner    string              `json:"owner"`
	Status   JourneyStatus       `json:"status"`
	Route    []RouteStep         `json:"route"`
	Outcomes []model.StepOutcome `json:"outcomes"`
}

func (j *Journey) View() JourneyView {
	return JourneyView{ID: j.ID, KeeperID: j.KeeperID, Owner: j.Owner, Status: j.Status(), Route: j.Route, Outcomes: j.Outcomes()}
}

// Journeys runs at most one journey per keeper.
type Journeys struct {
	mu       sync.Mutex
	active   map[string]*Journey
	wg       sync.WaitGroup
	shopper  *Shopper
	keepers  *KeeperManager
	shops    *ShopRegistry
	orders   *OrderBook
	host     world.Host
	entities world.EntityHost
	mover    Mover
	log      *slog.Logger
}

func NewJourneys(shopper *Shopper, keepers *KeeperManager, shops *ShopRegistry, orders *OrderBook, host world.Host, entities world.EntityHost, mover Mover) *Journeys {
	if mover == nil {
		mover = TeleportMover{Entities: entities}
	}
	return &Journeys{
		active:   make(map[string]*Journey),
		shopper:  shopper,
		keepers:  keepers,
		shops:    shops,
		orders:   orders,
		host:     host,
		entities: entities,
		mover:    mover,
		log:      logger.Component("journeys"),
	}
}

// Hire sends owner's keeper (latest when keeperID is empty) shopping. A
// non-empty orderText replaces the stored order first.
func (js *Journeys) Hire(ctx context.Context, owner, keeperID, orderText string) (*Journey, error) {
	var (
		order *model.PurchaseOrder
		err   error
	)
	if orderText != "" {
		if order, err = js.orders.PutText(ctx, owner, orderText); err != nil {
			return nil, err
		}
	} else if o, ok := js.orders.ByOwner(owner); ok {
		order = o
	}
	if order == nil || order.Satisfied() {
		return nil, apperrors.New(apperrors.ErrOrderNotFound, "no valid shopping list, create one first", nil)
	}

	keeper, err := js.keepers.Resolve(owner, keeperID)
	if err != nil {
		return nil, err
	}
	start, ok := js.entities.EntityPos(keeper.ID)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrKeeperNotFound, "shopkeeper entity %s not found", keeper.ID)
	}
	route := BuildRoute(start, order, js.shops.All())
	if len(route) == 0 {
		return nil, apperrors.New(apperrors.ErrShopNotFound, "no shops match your shopping list", nil)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	j := &Journey{
		ID:       uuid.NewString(),
		KeeperID: keeper.ID,
		Owner:    owner,
		Route:    route,
		order:    order,
		cancel:   cancel,
		done:     make(chan struct{}),
		status:   JourneyRunning,
	}

	js.mu.Lock()
	if _, busy := js.active[keeper.ID]; busy {
		js.mu.Unlock()
		cancel()
		return nil, apperrors.NewValidation("this shopkeeper is already on a journey")
	}
	js.active[keeper.ID] = j
	js.wg.Add(1)
	js.mu.Unlock()

	js.host.Notify(owner, fmt.Sprintf("Shopping journey started. Waypoints: %d", len(route)))
	js.log.Info("journey started", "journey_id", j.ID, "keeper_id", keeper.ID, "player", owner, "waypoints", len(route))
	go js.run(runCtx, j)
	return j, nil
}

func (js *Journeys) run(ctx context.Context, j *Journey) {
	defer js.wg.Done()
	defer close(j.done)
	defer func() {
		js.mu.Lock()
		delete(js.active, j.KeeperID)
		js.mu.Unlock()
	}()

	status := JourneyFinished
	for _, step := range j.Route {
		if ctx.Err() != nil {
			status = JourneyCancelled
			break
		}
		if err := js.mover.MoveTo(ctx, j.KeeperID, step.Target); err != nil {
			if ctx.Err() != nil {
				status = JourneyCancelled
			} else {
				status = JourneyAborted
				js.log.Warn("journey aborted", "journey_id", j.ID, "keeper_id", j.KeeperID, "error", err)
			}
			break
		}
		outcome := js.shopper.ConsiderPurchase(ctx, j.order, step.Shop)
		j.record(outcome)
		if outcome.Status == model.StepCancelled {
			status = JourneyCancelled
			break
		}
		if msg := StepMessage(outcome); msg != "" {
			js.host.Notify(j.Owner, msg)
		}
	}
	j.finish(status)

	switch status {
	case JourneyCancelled:
		js.host.Notify(j.Owner, "Shopping journey cancelled.")
	case JourneyAborted:
		js.host.Notify(j.Owner, "Shopping journey aborted, the shopkeeper went missing.")
	default:
		js.host.Notify(j.Owner, "Shopping journey finished.")
	}
	js.log.Info("journey ended", "journey_id", j.ID, "player", j.Owner, "status", status, "steps", len(j.Outcomes()))
}

// CancelJourney stops every running journey of owner and returns how many were stopped.
func (js *Journeys) CancelJourney(owner string) int {
	js.mu.Lock()
	defer js.mu.Unlock()
	n := 0
	for _, j := range js.active {
		if j.Owner == owner {
			j.Cancel()
			n++
		}
	}
	return n
}

func (js *Journeys) Active(owner string) []*Journey {
	js.mu.Lock()
	defer js.mu.Unlock()
	var out []*Journey
	for _, j := range js.active {
		if j.Owner == owner {
			out = append(out, j)
		}
	}
	return out
}

// Stop cancels all journeys and waits for them to wind down.
func (js *Journeys) Stop() {
	js.mu.Lock()
	for _, j := range js.active {
		j.Cancel()
	}
	js.mu.Unlock()
	js.wg.Wait()
}
