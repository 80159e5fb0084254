package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nftmarket/core/events"
	"nftmarket/crypto"
	"nftmarket/native/market"
)

// ErrDSNRequired is returned when no database DSN is configured.
var ErrDSNRequired = errors.New("indexer: database dsn required")

const defaultQueryLimit = 100

// Open connects to the index database. DSNs starting with postgres:// or
// postgresql:// use the postgres driver; anything else is a sqlite path.
func Open(dsn string) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, ErrDSNRequired
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(trimmed, "postgres://") || strings.HasPrefix(trimmed, "postgresql://") {
		dialector = postgres.Open(trimmed)
	} else {
		dialector = sqlite.Open(trimmed)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("indexer: open database: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return db, nil
}

// Indexer projects committed marketplace events into queryable tables. It is
// subscribed to the ledger, which only fans out events of committed
// transactions.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
	nowFn  func() time.Time
}

// New wraps a migrated database handle.
func New(db *gorm.DB, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{db: db, logger: logger, nowFn: time.Now}
}

// Emit implements events.Emitter. Events unrelated to listings are ignored.
func (i *Indexer) Emit(evt events.Event) {
	if i == nil || i.db == nil {
		return
	}
	var err error
	switch e := evt.(type) {
	case market.ListingCreated:
		err = i.recordListing(e.TradeState)
	case market.SaleExecuted:
		err = i.recordSale(e)
	default:
		return
	}
	if err != nil {
		i.logger.Error("indexer: apply event",
			slog.String("type", evt.EventType()),
			slog.Any("error", err))
	}
}

func listingRow(ts market.TradeState) Listing {
	return Listing{
		TradeState:   crypto.FormatAddress(ts.Address),
		Seller:       crypto.FormatAddress(ts.Seller),
		Marketplace:  crypto.FormatAddress(ts.Marketplace),
		Asset:        crypto.FormatAddress(ts.Asset),
		AssetAccount: crypto.FormatAddress(ts.AssetAccount),
		Currency:     crypto.FormatAddress(ts.Currency),
		Price:        ts.Price,
		Status:       StatusOpen,
	}
}

func (i *Indexer) recordListing(ts market.TradeState) error {
	row := listingRow(ts)
	row.CreatedAt = i.nowFn().UTC()
	row.UpdatedAt = row.CreatedAt
	// A consumed trade state address can be listed again with the same tuple.
	return i.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (i *Indexer) recordSale(e market.SaleExecuted) error {
	now := i.nowFn().UTC()
	row := listingRow(e.TradeState)
	return i.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Listing{}).Where("trade_state = ?", row.TradeState).Updates(map[string]interface{}{
			"status":     StatusSold,
			"buyer":      crypto.FormatAddress(e.Buyer),
			"fee":        e.Fee,
			"net":        e.Net,
			"sold_at":    now,
			"updated_at": now,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			row.Status = StatusSold
			row.Buyer = crypto.FormatAddress(e.Buyer)
			row.Fee, row.Net = e.Fee, e.Net
			row.SoldAt = &now
			row.CreatedAt, row.UpdatedAt = now, now
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		sale := Sale{
			TradeState:  row.TradeState,
			Marketplace: row.Marketplace,
			Seller:      row.Seller,
			Buyer:       crypto.FormatAddress(e.Buyer),
			Asset:       row.Asset,
			Price:       row.Price,
			Fee:         e.Fee,
			Net:         e.Net,
			CreatedAt:   now,
		}
		return tx.Create(&sale).Error
	})
}

// Filter narrows a listing query. Empty fields match everything.
type Filter struct {
	Seller      string
	Marketplace string
	Status      ListingStatus
	Limit       int
}

// Listings returns listings matching filter, newest first.
func (i *Indexer) Listings(ctx context.Context, filter Filter) ([]Listing, error) {
	query := i.db.WithContext(ctx).Model(&Listing{})
	if filter.Seller != "" {
		query = query.Where("seller = ?", filter.Seller)
	}
	if filter.Marketplace != "" {
		query = query.Where("marketplace = ?", filter.Marketplace)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", strings.ToUpper(string(filter.Status)))
	}
	limit := filter.Limit
	if limit <= 0 || limit > defaultQueryLimit {
		limit = defaultQueryLimit
	}
	var rows []Listing
	if err := query.Order("created_at DESC").Order("trade_state").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("indexer: query listings: %w", err)
	}
	return rows, nil
}

// Sales returns the sales recorded for a trade state address, oldest first.
func (i *Indexer) Sales(ctx context.Context, tradeState string) ([]Sale, error) {
	var rows []Sale
	err := i.db.WithContext(ctx).Where("trade_state = ?", tradeState).Order("id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("indexer: query sales: %w", err)
	}
	return rows, nil
}
