package settings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/odyssey-tax/internal/meta/propertysetter"
	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

// RepositoryPort is the persistence contract used by Service.
type RepositoryPort interface {
	Get(ctx context.Context) (AccountsSettings, error)
	ListPropertySetters(ctx context.Context, doctype string) ([]propertysetter.Setter, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// Invalidator drops cached data derived from the settings.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service coordinates validation, persistence and cache invalidation.
type Service struct {
	repo   RepositoryPort
	cache  Invalidator
	logger *slog.Logger
}

// NewService builds a settings service.
func NewService(repo RepositoryPort, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Get returns the current settings.
func (s *Service) Get(ctx context.Context) (AccountsSettings, error) {
	return s.repo.Get(ctx)
}

// PropertySetters lists overrides for a doctype.
func (s *Service) PropertySetters(ctx context.Context, doctype string) ([]propertysetter.Setter, error) {
	if doctype == "" {
		return nil, shared.NewValidationError(fmt.Errorf("doctype required"), map[string]string{"doctype": "required"})
	}
	return s.repo.ListPropertySetters(ctx, doctype)
}

// Save validates and persists doc in one transaction, then runs OnUpdate.
func (s *Service) Save(ctx context.Context, actorID int64, doc AccountsSettings) (AccountsSettings, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := doc.Validate(ctx, Hooks{Defaults: tx, Setters: tx}); err != nil {
			return err
		}
		if err := tx.SaveSettings(ctx, doc); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "update",
			Entity:   "accounts_settings",
			EntityID: "Accounts Settings",
			Meta: map[string]any{
				"allow_stale":                    doc.AllowStale,
				"stale_days":                     doc.StaleDays,
				"show_payment_schedule_in_print": doc.ShowPaymentScheduleInPrint,
				"enable_discount_accounting":     doc.EnableDiscountAccounting,
			},
		})
	})
	if err != nil {
		return AccountsSettings{}, fmt.Errorf("save accounts settings: %w", err)
	}
	s.OnUpdate(ctx)
	return s.repo.Get(ctx)
}

// OnUpdate clears cached derived data. Failures are logged, the save already committed.
func (s *Service) OnUpdate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("accounts settings cache bump", slog.Any("error", err))
	}
}
