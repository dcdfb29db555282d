package repository

import (
	"context"
	"fmt"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/logger"
	"github.com/mcbn/tradepost/internal/service"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore persists every record set in its own table.
type PostgresStore struct {
	db *gorm.DB
}

var _ service.Store = (*PostgresStore)(nil)

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func upsertAll() clause.OnConflict {
	return clause.OnConflict{UpdateAll: true}
}

func (s *PostgresStore) SaveShop(ctx context.Context, shop model.Shop) error {
	rec := toShopRecord(shop)
	return s.db.WithContext(ctx).Clauses(upsertAll()).Create(&rec).Error
}

func (s *PostgresStore) DeleteShop(ctx context.Context, pos model.BlockPos) error {
	return s.db.WithContext(ctx).Delete(&shopRecord{}, "pos = ?", pos.String()).Error
}

func (s *PostgresStore) LoadShops(ctx context.Context) ([]model.Shop, error) {
	var recs []shopRecord
	if err := s.db.WithContext(ctx).Order("pos").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]model.Shop, 0, len(recs))
	for _, r := range recs {
		shop, err := r.toDomain()
		if err != nil {
			logger.Warn("skipping unreadable shop row", "pos", r.Pos, "error", err)
			continue
		}
		out = append(out, shop)
	}
	return out, nil
}

// SaveAuction rewrites the auction and its lots in one transaction.
func (s *PostgresStore) SaveAuction(ctx context.Context, a *model.Auction) error {
	rec := toAuctionRecord(a)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lots").Clauses(upsertAll()).Create(&rec).Error; err != nil {
			return fmt.Errorf("save auction %s: %w", a.ID, err)
		}
		if len(rec.Lots) == 0 {
			return nil
		}
		if err := tx.Clauses(upsertAll()).Create(&rec.Lots).Error; err != nil {
			return fmt.Errorf("save lots of %s: %w", a.ID, err)
		}
		return nil
	})
}

func (s *PostgresStore) DeleteAuction(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&lotRecord{}, "auction_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&auctionRecord{}, "id = ?", id).Error
	})
}

func (s *PostgresStore) LoadAuctions(ctx context.Context) ([]*model.Auction, error) {
	var recs []auctionRecord
	if err := s.db.WithContext(ctx).Preload("Lots").Order("ends_at").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Auction, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *PostgresStore) SaveClaim(ctx context.Context, entry model.ClaimEntry) error {
	rec := claimRecord{Owner: entry.Owner, Items: entry.Items, Currency: entry.Currency}
	return s.db.WithContext(ctx).Clauses(upsertAll()).Create(&rec).Error
}

func (s *PostgresStore) DeleteClaim(ctx context.Context, owner string) error {
	return s.db.WithContext(ctx).Delete(&claimRecord{}, "owner = ?", owner).Error
}

func (s *PostgresStore) LoadClaims(ctx context.Context) ([]model.ClaimEntry, error) {
	var recs []claimRecord
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]model.ClaimEntry, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.ClaimEntry{Owner: r.Owner, Items: r.Items, Currency: r.Currency})
	}
	return out, nil
}

func (s *PostgresStore) SaveOrder(ctx context.Context, o *model.PurchaseOrder) error {
	rec := orderRecord{ID: o.ID, Owner: o.Owner, Wanted: o.Wanted, MaxPrice: o.MaxPrice, FeePercent: o.FeePercent}
	return s.db.WithContext(ctx).Clauses(upsertAll()).Create(&rec).Error
}

func (s *PostgresStore) DeleteOrder(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&orderRecord{}, "id = ?", id).Error
}

func (s *PostgresStore) LoadOrders(ctx context.Context) ([]*model.PurchaseOrder, error) {
	var recs []orderRecord
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.PurchaseOrder, 0, len(recs))
	for _, r := range recs {
		o := model.NewPurchaseOrder(r.ID, r.Owner, r.FeePercent)
		for k, v := range r.Wanted {
			o.Wanted[k] = v
		}
		for k, v := range r.MaxPrice {
			o.MaxPrice[k] = v
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *PostgresStore) SaveKeeper(ctx context.Context, k *model.ShopKeeper) error {
	rec := toKeeperRecord(k)
	return s.db.WithContext(ctx).Clauses(upsertAll()).Create(&rec).Error
}

func (s *PostgresStore) DeleteKeeper(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&keeperRecord{}, "id = ?", id).Error
}

func (s *PostgresStore) LoadKeepers(ctx context.Context) ([]*model.ShopKeeper, error) {
	var recs []keeperRecord
	if err := s.db.WithContext(ctx).Order("created_at").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.ShopKeeper, 0, len(recs))
	for _, r := range recs {
		k, err := r.toDomain()
		if err != nil {
			logger.Warn("skipping unreadable keeper row", "keeper_id", r.ID, "error", err)
			continue
		}
		out = append(out, k)
	}
	return out, nil
}
