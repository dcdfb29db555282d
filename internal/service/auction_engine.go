package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/apperrors"
	"github.com/mcbn/tradepost/internal/pkg/logger"
	"github.com/mcbn/tradepost/internal/pkg/metrics"
	"github.com/mcbn/tradepost/internal/world"
)

type LotInput struct {
	Item        model.ItemStack
	StartingBid int
}

type AuctionSettings struct {
	Currency    string
	MinDuration time.Duration
	MaxDuration time.Duration
}

// AuctionEngine owns the active auctions. Bids escrow currency out of the
// bidder's holdings; every payout and refund goes through the claims ledger.
type AuctionEngine struct {
	mu        sync.RWMutex
	auctions  map[string]*model.Auction
	repo      AuctionRepo
	ledger    *Ledger
	host      world.Host
	bus       *Bus
	scheduler *Scheduler
	clock     Clock
	settings  AuctionSettings
	log       *slog.Logger
}

func NewAuctionEngine(repo AuctionRepo, ledger *Ledger, host world.Host, bus *Bus, scheduler *Scheduler, clock Clock, settings AuctionSettings) *AuctionEngine {
	if clock == nil {
		clock = SystemClock
	}
	if scheduler == nil {
		scheduler = NewScheduler(clock)
	}
	if settings.MinDuration <= 0 {
		settings.MinDuration = 10 * time.Minute
	}
	if settings.MaxDuration <= 0 {
		settings.MaxDuration = 72 * time.Hour
	}
	settings.Currency = strings.ToUpper(settings.Currency)
	return &AuctionEngine{
		auctions:  make(map[string]*model.Auction),
		repo:      repo,
		ledger:    ledger,
		host:      host,
		bus:       bus,
		scheduler: scheduler,
		clock:     clock,
		settings:  settings,
		log:       logger.Component("auctions"),
	}
}

// Create escrows one unit of every lot item from the seller and opens the auction.
func (e *AuctionEngine) Create(ctx context.Context, owner string, lots []LotInput, duration time.Duration) (*model.Auction, error) {
	if len(lots) == 0 {
		return nil, apperrors.NewValidation("an auction needs at least one lot")
	}
	for i, l := range lots {
		if l.Item.IsEmpty() {
			return nil, apperrors.Newf(apperrors.ErrValidation, "lot %d has no item", i)
		}
		if l.StartingBid <= 0 {
			return nil, apperrors.Newf(apperrors.ErrValidation, "lot %d starting bid must be positive", i)
		}
	}
	seller, ok := e.host.Online(owner)
	if !ok {
		return nil, apperrors.NewValidation("seller is not online")
	}
	if duration <= 0 {
		duration = DefaultAuctionDuration
	}
	duration = ClampDuration(duration, e.settings.MinDuration, e.settings.MaxDuration)

	var (
		auction *model.Auction
		err     error
	)
	e.host.Tick(func() {
		auction, err = e.open(ctx, seller, lots, duration)
	})
	if err != nil {
		return nil, err
	}

	e.persist(ctx, auction)
	e.schedule(auction)
	metrics.ActiveAuctions.Inc()
	e.log.Info("auction created", "auction_id", auction.ID, "player", owner, "lots", len(auction.Lots), "duration", FormatDuration(duration))
	_ = e.bus.Publish(ctx, model.Event{Kind: model.EventAuctionCreated, Actor: owner, Payload: auction.Clone()})
	e.bus.Tutorial(owner, "auction.start")
	return auction.Clone(), nil
}

func (e *AuctionEngine) open(ctx context.Context, seller world.Participant, lots []LotInput, duration time.Duration) (*model.Auction, error) {
	holdings := seller.Holdings()
	escrowed := make([]model.ItemStack, 0, len(lots))
	restore := func() {
		for _, it := range escrowed {
			world.GiveOrDrop(e.host, seller, it)
		}
	}
	for i, l := range lots {
		unit := l.Item.Template()
		if holdings.Remove(unit, 1) != 1 {
			restore()
			return nil, apperrors.Newf(apperrors.ErrInsufficientStock, "lot %d: %s not in inventory", i, unit.Key())
		}
		escrowed = append(escrowed, unit)
	}

	a := &model.Auction{
		Owner:    seller.ID(),
		Start:    e.clock.Now().UTC(),
		Duration: duration,
		Currency: e.settings.Currency,
		Lots:     make([]model.AuctionLot, len(lots)),
	}
	for i, l := range lots {
		a.Lots[i] = model.AuctionLot{ID: strconv.Itoa(i), Item: escrowed[i], StartingBid: l.StartingBid}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for {
		id := randomAuctionID()
		if _, taken := e.auctions[id]; !taken {
			a.ID = id
			break
		}
	}
	e.auctions[a.ID] = a
	return a, nil
}

func randomAuctionID() string {
	return strconv.FormatInt(36_000_000+rand.Int64N(99_000_000-36_000_000), 36)
}

// Bid places amount on a lot. The bidder's currency is escrowed in full
// before the previous highest bidder is refunded through the ledger.
func (e *AuctionEngine) Bid(ctx context.Context, bidder, auctionID, lotID string, amount int) (model.AuctionLot, error) {
	p, ok := e.host.Online(bidder)
	if !ok {
		return model.AuctionLot{}, apperrors.NewValidation("bidder is not online")
	}
	var (
		lot model.AuctionLot
		err error
	)
	e.host.Tick(func() {
		lot, err = e.placeBid(ctx, p, auctionID, lotID, amount)
	})
	if err != nil {
		metrics.BidsTotal.WithLabelValues(strings.ToLower(string(apperrors.Wrap(err).Type))).Inc()
		return model.AuctionLot{}, err
	}
	metrics.BidsTotal.WithLabelValues("accepted").Inc()
	e.bus.Tutorial(bidder, "auction.bid")
	return lot, nil
}

func (e *AuctionEngine) placeBid(ctx context.Context, bidder world.Participant, auctionID, lotID string, amount int) (model.AuctionLot, error) {
	e.mu.Lock()
	a, ok := e.auctions[auctionID]
	if !ok {
		e.mu.Unlock()
		return model.AuctionLot{}, apperrors.Newf(apperrors.ErrAuctionNotFound, "auction %s not found", auctionID)
	}
	lot, ok := a.Lot(lotID)
	if !ok {
		e.mu.Unlock()
		return model.AuctionLot{}, apperrors.Newf(apperrors.ErrLotNotFound, "lot %s not found in auction %s", lotID, auctionID)
	}
	if !e.clock.Now().Before(a.EndsAt()) {
		e.mu.Unlock()
		return model.AuctionLot{}, apperrors.Newf(apperrors.ErrAuctionClosed, "auction %s has ended", auctionID)
	}
	if a.Owner == bidder.ID() {
		e.mu.Unlock()
		return model.AuctionLot{}, apperrors.NewValidation("cannot bid on your own auction")
	}
	if minBid := lot.MinimumBid(); amount < minBid {
		e.mu.Unlock()
		return model.AuctionLot{}, apperrors.Newf(apperrors.ErrBidTooLow, "minimum bid is %d", minBid).WithLimit(minBid)
	}

	removed := bidder.Holdings().RemoveType(a.Currency, amount)
	if removed != amount {
		e.mu.Unlock()
		if removed > 0 {
			world.GiveOrDrop(e.host, bidder, model.NewStack(a.Currency, removed))
		}
		return model.AuctionLot{}, apperrors.Newf(apperrors.ErrInsufficientFunds,
			"need %d %s, have %d", amount, a.Currency, removed).WithLimit(removed)
	}

	prevBidder, prevBid := lot.HighestBidder, lot.HighestBid
	if prevBidder != "" {
		e.ledger.CreditCurrency(ctx, prevBidder, a.Currency, prevBid)
	}
	lot.HighestBid = amount
	lot.HighestBidder = bidder.ID()
	out := *lot
	snapshot := a.Clone()
	e.mu.Unlock()

	e.persist(ctx, snapshot)
	if prevBidder != "" {
		e.host.Notify(prevBidder, fmt.Sprintf("You were outbid on %s. %d %s is waiting in your claims.", out.Item.Key(), prevBid, a.Currency))
	}
	e.log.Info("bid accepted", "auction_id", auctionID, "lot", lotID, "player", bidder.ID(), "amount", amount)
	_ = e.bus.Publish(ctx, model.Event{Kind: model.EventAuctionBid, Actor: bidder.ID(), Payload: out})
	return out, nil
}

// Settle closes the auction and routes items and proceeds to the ledger.
// It is safe to call more than once; later calls report false.
func (e *AuctionEngine) Settle(ctx context.Context, id string) bool {
	settled := false
	e.host.Tick(func() {
		settled = e.settle(ctx, id)
	})
	return settled
}

func (e *AuctionEngine) settle(ctx context.Context, id string) bool {
	e.mu.Lock()
	a, ok := e.auctions[id]
	if ok {
		delete(e.auctions, id)
	}
	e.mu.Unlock()
	if !ok {
		return false
	}
	e.scheduler.Cancel(id)
	metrics.ActiveAuctions.Dec()

	for _, lot := range a.Lots {
		if lot.HasBids() {
			e.ledger.CreditItems(ctx, lot.HighestBidder, lot.Item)
			e.ledger.CreditCurrency(ctx, a.Owner, a.Currency, lot.HighestBid)
			metrics.SettlementsTotal.WithLabelValues("sold").Inc()
			e.host.Notify(lot.HighestBidder, fmt.Sprintf("You won %s for %d %s. Use claim to collect it.", lot.Item.Key(), lot.HighestBid, a.Currency))
			e.host.Notify(a.Owner, fmt.Sprintf("%s sold for %d %s.", lot.Item.Key(), lot.HighestBid, a.Currency))
			continue
		}
		e.ledger.CreditItems(ctx, a.Owner, lot.Item)
		metrics.SettlementsTotal.WithLabelValues("unsold").Inc()
		e.host.Notify(a.Owner, fmt.Sprintf("%s received no bids and is waiting in your claims.", lot.Item.Key()))
	}

	if err := e.repo.DeleteAuction(ctx, id); err != nil {
		e.persistFailed(ctx, id, err)
	}
	e.log.Info("auction settled", "auction_id", id, "player", a.Owner, "lots", len(a.Lots))
	_ = e.bus.Publish(ctx, model.Event{Kind: model.EventAuctionSettled, Actor: a.Owner, Payload: a})
	return true
}

// Cancel withdraws an auction that has no bids; items go to the seller's claims.
func (e *AuctionEngine) Cancel(ctx context.Context, owner, id string) error {
	var err error
	e.host.Tick(func() {
		err = e.cancel(ctx, owner, id)
	})
	return err
}

func (e *AuctionEngine) cancel(ctx context.Context, owner, id string) error {
	e.mu.Lock()
	a, ok := e.auctions[id]
	if !ok {
		e.mu.Unlock()
		return apperrors.Newf(apperrors.ErrAuctionNotFound, "auction %s not found", id)
	}
	if a.Owner != owner {
		e.mu.Unlock()
		return apperrors.New(apperrors.ErrNotOwner, "only the seller can cancel this auction", nil)
	}
	if a.HasBids() {
		e.mu.Unlock()
		return apperrors.Newf(apperrors.ErrAuctionHasBids, "auction %s already has bids", id)
	}
	delete(e.auctions, id)
	e.mu.Unlock()

	e.scheduler.Cancel(id)
	metrics.ActiveAuctions.Dec()
	for _, lot := range a.Lots {
		e.ledger.CreditItems(ctx, a.Owner, lot.Item)
	}
	if err := e.repo.DeleteAuction(ctx, id); err != nil {
		e.persistFailed(ctx, id, err)
	}
	e.log.Info("auction cancelled", "auction_id", id, "player", owner)
	_ = e.bus.Publish(ctx, model.Event{Kind: model.EventAuctionCancelled, Actor: owner, Payload: a})
	return nil
}

// CancelAllOwned cancels every auction of owner that has no bids and returns their ids.
func (e *AuctionEngine) CancelAllOwned(ctx context.Context, owner string) []string {
	var cancelled []string
	for _, a := range e.ListByOwner(owner) {
		if a.HasBids() {
			continue
		}
		if err := e.Cancel(ctx, owner, a.ID); err == nil {
			cancelled = append(cancelled, a.ID)
		}
	}
	return cancelled
}

func (e *AuctionEngine) Get(id string) (*model.Auction, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.auctions[id]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Browse returns copies of every active auction, soonest deadline first.
func (e *AuctionEngine) Browse() []*model.Auction {
	e.mu.RLock()
	out := make([]*model.Auction, 0, len(e.auctions))
	for _, a := range e.auctions {
		out = append(out, a.Clone())
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndsAt().Equal(out[j].EndsAt()) {
			return out[i].EndsAt().Before(out[j].EndsAt())
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (e *AuctionEngine) ListByOwner(owner string) []*model.Auction {
	all := e.Browse()
	out := all[:0]
	for _, a := range all {
		if a.Owner == owner {
			out = append(out, a)
		}
	}
	return out
}

// Remaining is the time left before the auction settles, never negative.
func (e *AuctionEngine) Remaining(a *model.Auction) time.Duration {
	return max(a.EndsAt().Sub(e.clock.Now()), 0)
}

// Load restores persisted auctions and reschedules their settlement. Auctions
// past their deadline settle right away.
func (e *AuctionEngine) Load(ctx context.Context) (int, error) {
	stored, err := e.repo.LoadAuctions(ctx)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	e.auctions = make(map[string]*model.Auction, len(stored))
	for _, a := range stored {
		if a == nil || a.ID == "" {
			continue
		}
		if a.Currency == "" {
			a.Currency = e.settings.Currency
		}
		e.auctions[a.ID] = a.Clone()
	}
	loaded := make([]*model.Auction, 0, len(e.auctions))
	for _, a := range e.auctions {
		loaded = append(loaded, a.Clone())
	}
	e.mu.Unlock()

	metrics.ActiveAuctions.Set(float64(len(loaded)))
	for _, a := range loaded {
		e.schedule(a)
	}
	return len(loaded), nil
}

// Stop cancels pending settlement timers. Active auctions stay persisted.
func (e *AuctionEngine) Stop() {
	e.scheduler.Stop()
}

func (e *AuctionEngine) schedule(a *model.Auction) {
	id := a.ID
	e.scheduler.Schedule(id, a.EndsAt(), func() {
		e.Settle(context.Background(), id)
	})
}

func (e *AuctionEngine) persist(ctx context.Context, a *model.Auction) {
	if err := e.repo.SaveAuction(ctx, a); err != nil {
		e.persistFailed(ctx, a.ID, err)
	}
}

func (e *AuctionEngine) persistFailed(ctx context.Context, id string, err error) {
	metrics.PersistenceFailures.WithLabelValues("auctions").Inc()
	logger.LogError(ctx, err, "auction persistence failed, keeping in-memory state", "auction_id", id)
}
