package repository

import (
	"strings"
	"time"

	"github.com/mcbn/tradepost/internal/model"
)

type shopRecord struct {
	Pos        string          `gorm:"column:pos;primaryKey"`
	Owner      string          `gorm:"column:owner;index;not null"`
	Template   model.ItemStack `gorm:"column:template;type:jsonb;serializer:json"`
	ItemType   string          `gorm:"column:item_type;index"`
	BundleSize int             `gorm:"column:bundle_size;not null"`
	Price      int             `gorm:"column:price;not null"`
	Currency   string          `gorm:"column:currency;not null"`
	Facing     string          `gorm:"column:facing"`
	CreatedAt  time.Time       `gorm:"column:created_at"`
}

func (shopRecord) TableName() string { return "shops" }

func toShopRecord(s model.Shop) shopRecord {
	return shopRecord{
		Pos:        s.Pos.String(),
		Owner:      s.Owner,
		Template:   s.Template,
		ItemType:   s.Template.Type,
		BundleSize: s.BundleSize,
		Price:      s.Price,
		Currency:   s.Currency,
		Facing:     s.Facing,
		CreatedAt:  s.CreatedAt,
	}
}

func (r shopRecord) toDomain() (model.Shop, error) {
	pos, err := model.ParseBlockPos(r.Pos)
	if err != nil {
		return model.Shop{}, err
	}
	return model.Shop{
		Owner:      r.Owner,
		Pos:        pos,
		Template:   r.Template,
		BundleSize: r.BundleSize,
		Price:      r.Price,
		Currency:   r.Currency,
		Facing:     r.Facing,
		CreatedAt:  r.CreatedAt,
	}, nil
}

type auctionRecord struct {
	ID        string      `gorm:"column:id;primaryKey"`
	Owner     string      `gorm:"column:owner;index;not null"`
	StartAt   time.Time   `gorm:"column:start_at;not null"`
	EndsAt    time.Time   `gorm:"column:ends_at;index;not null"`
	Currency  string      `gorm:"column:currency;not null"`
	Lots      []lotRecord `gorm:"foreignKey:AuctionID;constraint:OnDelete:CASCADE"`
	UpdatedAt time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

func (auctionRecord) TableName() string { return "auctions" }

type lotRecord struct {
	AuctionID     string          `gorm:"column:auction_id;primaryKey"`
	LotID         string          `gorm:"column:lot_id;primaryKey"`
	Position      int             `gorm:"column:position"`
	Item          model.ItemStack `gorm:"column:item;type:jsonb;serializer:json"`
	StartingBid   int             `gorm:"column:starting_bid;not null"`
	HighestBid    int             `gorm:"column:highest_bid"`
	HighestBidder string          `gorm:"column:highest_bidder"`
}

func (lotRecord) TableName() string { return "auction_lots" }

func toAuctionRecord(a *model.Auction) auctionRecord {
	rec := auctionRecord{
		ID:       a.ID,
		Owner:    a.Owner,
		StartAt:  a.Start,
		EndsAt:   a.EndsAt(),
		Currency: a.Currency,
		Lots:     make([]lotRecord, len(a.Lots)),
	}
	for i, l := range a.Lots {
		rec.Lots[i] = lotRecord{
			AuctionID:     a.ID,
			LotID:         l.ID,
			Position:      i,
			Item:          l.Item,
			StartingBid:   l.StartingBid,
			HighestBid:    l.HighestBid,
			HighestBidder: l.HighestBidder,
		}
	}
	return rec
}

func (r auctionRecord) toDomain() *model.Auction {
	a := &model.Auction{
		ID:       r.ID,
		Owner:    r.Owner,
		Start:    r.StartAt,
		Duration: r.EndsAt.Sub(r.StartAt),
		Currency: r.Currency,
		Lots:     make([]model.AuctionLot, len(r.Lots)),
	}
	for _, l := range r.Lots {
		if l.Position < 0 || l.Position >= len(a.Lots) {
			continue
		}
		a.Lots[l.Position] = model.AuctionLot{
			ID:            l.LotID,
			Item:          l.Item,
			StartingBid:   l.StartingBid,
			HighestBid:    l.HighestBid,
			HighestBidder: l.HighestBidder,
		}
	}
	return a
}

type claimRecord struct {
	Owner     string            `gorm:"column:owner;primaryKey"`
	Items     []model.ItemStack `gorm:"column:items;type:jsonb;serializer:json"`
	Currency  map[string]int    `gorm:"column:currency;type:jsonb;serializer:json"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (claimRecord) TableName() string { return "claims" }

type orderRecord struct {
	ID         string         `gorm:"column:id;primaryKey"`
	Owner      string         `gorm:"column:owner;index;not null"`
	Wanted     map[string]int `gorm:"column:wanted;type:jsonb;serializer:json"`
	MaxPrice   map[string]int `gorm:"column:max_price;type:jsonb;serializer:json"`
	FeePercent int            `gorm:"column:fee_percent"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (orderRecord) TableName() string { return "purchase_orders" }

type keeperRecord struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Owner     string    `gorm:"column:owner;index;not null"`
	Home      string    `gorm:"column:home;not null"`
	Linked    []string  `gorm:"column:linked;type:jsonb;serializer:json"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (keeperRecord) TableName() string { return "shopkeepers" }

func toKeeperRecord(k *model.ShopKeeper) keeperRecord {
	linked := make([]string, len(k.Linked))
	for i, p := range k.Linked {
		linked[i] = p.String()
	}
	return keeperRecord{ID: k.ID, Owner: k.Owner, Home: k.Home.String(), Linked: linked, CreatedAt: k.CreatedAt}
}

func (r keeperRecord) toDomain() (*model.ShopKeeper, error) {
	home, err := model.ParseBlockPos(r.Home)
	if err != nil {
		return nil, err
	}
	k := &model.ShopKeeper{ID: r.ID, Owner: r.Owner, Home: home, CreatedAt: r.CreatedAt}
	for _, raw := range r.Linked {
		if p, err := model.ParseBlockPos(strings.TrimSpace(raw)); err == nil {
			k.Linked = append(k.Linked, p)
		}
	}
	return k, nil
}

type auditRecord struct {
	ID           string                 `gorm:"column:id;primaryKey"`
	PlayerID     string                 `gorm:"column:player_id;index:idx_audit_player_created,priority:1"`
	Method       string                 `gorm:"column:method"`
	Path         string                 `gorm:"column:path"`
	IP           string                 `gorm:"column:ip"`
	UserAgent    string                 `gorm:"column:user_agent"`
	RequestBody  string                 `gorm:"column:request_body"`
	StatusCode   int                    `gorm:"column:status_code"`
	ResponseBody string                 `gorm:"column:response_body"`
	LatencyMs    int64                  `gorm:"column:latency_ms"`
	Context      map[string]interface{} `gorm:"column:context;type:jsonb;serializer:json"`
	CreatedAt    time.Time              `gorm:"column:created_at;index:idx_audit_player_created,priority:2,sort:desc"`
}

func (auditRecord) TableName() string { return "audit_logs" }

type idempotencyRecord struct {
	Key          string    `gorm:"column:key;primaryKey"`
	StatusCode   int       `gorm:"column:status_code;not null;default:0"`
	ResponseBody []byte    `gorm:"column:response_body"`
	Processing   bool      `gorm:"column:processing;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;index"`
}

func (idempotencyRecord) TableName() string { return "idempotency_keys" }
