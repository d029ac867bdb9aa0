package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"order_engine/internal/models"
	"order_engine/internal/pricing"
	"order_engine/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ManualEntry is a staff-entered ledger correction. Any client supplied gross
// is ignored.
type ManualEntry struct {
	Date        *time.Time      `json:"date"`
	Description string          `json:"description"`
	ReferenceID string          `json:"reference_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

type LedgerPatch struct {
	Date        *time.Time       `json:"date"`
	Description *string          `json:"description"`
	ReferenceID *string          `json:"reference_id"`
	Debit       *decimal.Decimal `json:"debit"`
	Credit      *decimal.Decimal `json:"credit"`
}

type LedgerService interface {
	// Posting methods join the caller's transaction when tx is non-nil.
	PostOrderRevenue(ctx context.Context, tx *gorm.DB, order *models.Order) error
	PostOrderReversal(ctx context.Context, tx *gorm.DB, order *models.Order) error
	PostInventoryCost(ctx context.Context, tx *gorm.DB, item *models.InventoryItem, quantityDelta, unitPrice decimal.Decimal) error

	CreateManual(ctx context.Context, entry ManualEntry) (*models.Transaction, error)
	Update(ctx context.Context, id string, patch LedgerPatch) (*models.Transaction, error)
	Delete(ctx context.Context, id string) error
	QueryByDateRange(ctx context.Context, start, end time.Time) ([]models.Transaction, error)
	Summary(ctx context.Context, start, end time.Time) (models.LedgerSummary, error)
}

type ledgerService struct {
	ledgerRepo repository.LedgerRepository
	now        func() time.Time
}

func NewLedgerService(ledgerRepo repository.LedgerRepository) LedgerService {
	return &ledgerService{
		ledgerRepo: ledgerRepo,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *ledgerService) repo(tx *gorm.DB) repository.LedgerRepository {
	if tx != nil {
		return s.ledgerRepo.WithTx(tx)
	}
	return s.ledgerRepo
}

func (s *ledgerService) post(ctx context.Context, tx *gorm.DB, entry *models.Transaction) error {
	entry.Debit = entry.Debit.Round(pricing.MinorUnits)
	entry.Credit = entry.Credit.Round(pricing.MinorUnits)
	entry.Gross = entry.Credit.Sub(entry.Debit)
	if entry.Date.IsZero() {
		entry.Date = s.now()
	}
	if err := s.repo(tx).Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to post ledger entry: %w", err)
	}
	return nil
}

func (s *ledgerService) PostOrderRevenue(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	return s.post(ctx, tx, &models.Transaction{
		Source:      models.SourceOrders,
		Description: fmt.Sprintf("Order #%s delivered", order.ID),
		ReferenceID: order.ID,
		Debit:       decimal.Zero,
		Credit:      order.Total,
	})
}

// PostOrderReversal offsets the revenue of a delivered order that was
// cancelled afterwards.
func (s *ledgerService) PostOrderReversal(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	return s.post(ctx, tx, &models.Transaction{
		Source:      models.SourceOrders,
		Description: fmt.Sprintf("Order #%s cancelled after delivery", order.ID),
		ReferenceID: order.ID,
		Debit:       order.Total,
		Credit:      decimal.Zero,
	})
}

// PostInventoryCost records a stock increase as a cost (debit) and a manual
// decrease as a credit reversal. A zero delta posts nothing.
func (s *ledgerService) PostInventoryCost(ctx context.Context, tx *gorm.DB, item *models.InventoryItem, quantityDelta, unitPrice decimal.Decimal) error {
	if quantityDelta.IsZero() {
		return nil
	}
	amount := quantityDelta.Abs().Mul(unitPrice)
	entry := &models.Transaction{
		Source:      models.SourceInventory,
		ReferenceID: item.ID,
		Debit:       decimal.Zero,
		Credit:      decimal.Zero,
	}
	if quantityDelta.IsPositive() {
		entry.Description = fmt.Sprintf("Stock added: %s %s %s", quantityDelta, item.Unit, item.Name)
		entry.Debit = amount
	} else {
		entry.Description = fmt.Sprintf("Stock removed: %s %s %s", quantityDelta.Abs(), item.Unit, item.Name)
		entry.Credit = amount
	}
	entry.Description = strings.Join(strings.Fields(entry.Description), " ")
	return s.post(ctx, tx, entry)
}

func (s *ledgerService) CreateManual(ctx context.Context, input ManualEntry) (*models.Transaction, error) {
	if strings.TrimSpace(input.Description) == "" {
		return nil, validationError("description is required")
	}
	if input.Debit.IsNegative() || input.Credit.IsNegative() {
		return nil, validationError("debit and credit must not be negative")
	}

	entry := &models.Transaction{
		Source:      models.SourceManual,
		Description: input.Description,
		ReferenceID: input.ReferenceID,
		Debit:       input.Debit,
		Credit:      input.Credit,
	}
	if input.Date != nil {
		entry.Date = input.Date.UTC()
	}
	if err := s.post(ctx, nil, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *ledgerService) manualEntry(ctx context.Context, id string) (*models.Transaction, error) {
	entry, err := s.ledgerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	if entry.Source != models.SourceManual {
		return nil, fmt.Errorf("%w: %s entries are append-only", ErrEntryImmutable, entry.Source)
	}
	return entry, nil
}

func (s *ledgerService) Update(ctx context.Context, id string, patch LedgerPatch) (*models.Transaction, error) {
	entry, err := s.manualEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Date != nil {
		entry.Date = patch.Date.UTC()
	}
	if patch.Description != nil {
		if strings.TrimSpace(*patch.Description) == "" {
			return nil, validationError("description is required")
		}
		entry.Description = *patch.Description
	}
	if patch.ReferenceID != nil {
		entry.ReferenceID = *patch.ReferenceID
	}
	if patch.Debit != nil {
		entry.Debit = *patch.Debit
	}
	if patch.Credit != nil {
		entry.Credit = *patch.Credit
	}
	if entry.Debit.IsNegative() || entry.Credit.IsNegative() {
		return nil, validationError("debit and credit must not be negative")
	}

	entry.Debit = entry.Debit.Round(pricing.MinorUnits)
	entry.Credit = entry.Credit.Round(pricing.MinorUnits)
	entry.Gross = entry.Credit.Sub(entry.Debit)
	if err := s.ledgerRepo.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to update ledger entry: %w", err)
	}
	return entry, nil
}

func (s *ledgerService) Delete(ctx context.Context, id string) error {
	if _, err := s.manualEntry(ctx, id); err != nil {
		return err
	}
	if err := s.ledgerRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}
	log.Printf("Deleted manual ledger entry %s", id)
	return nil
}

func (s *ledgerService) QueryByDateRange(ctx context.Context, start, end time.Time) ([]models.Transaction, error) {
	if end.Before(start) {
		return nil, validationError("end date must not be before start date")
	}
	return s.ledgerRepo.GetByDateRange(ctx, start, end)
}

func (s *ledgerService) Summary(ctx context.Context, start, end time.Time) (models.LedgerSummary, error) {
	entries, err := s.QueryByDateRange(ctx, start, end)
	if err != nil {
		return models.LedgerSummary{}, err
	}
	summary := models.LedgerSummary{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, e := range entries {
		summary.Debit = summary.Debit.Add(e.Debit)
		summary.Credit = summary.Credit.Add(e.Credit)
	}
	summary.Gross = summary.Credit.Sub(summary.Debit)
	summary.Count = len(entries)
	return summary, nil
}
