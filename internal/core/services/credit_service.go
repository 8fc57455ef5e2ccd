package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pixamint/credit_ledger_app/internal/apperrors"
	"github.com/pixamint/credit_ledger_app/internal/core/domain"
	portsrepo "github.com/pixamint/credit_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/pixamint/credit_ledger_app/internal/core/ports/services"
	"github.com/pixamint/credit_ledger_app/internal/dto"
	"github.com/pixamint/credit_ledger_app/internal/platform/config"
	"github.com/pixamint/credit_ledger_app/internal/platform/metrics"
	"github.com/pixamint/credit_ledger_app/internal/utils/idgen"
)

// creditServiceImpl implements the CreditSvcFacade interface.
type creditServiceImpl struct {
	BaseService
	creditRepo portsrepo.CreditRepositoryWithTx
	idGen      *idgen.Generator
	cfg        *config.Config
	// now is swappable in tests
	now func() time.Time
}

// CreditServiceOption is a functional option for configuring the credit service.
type CreditServiceOption func(*creditServiceImpl)

// WithClock overrides the service's time source.
func WithClock(now func() time.Time) CreditServiceOption {
	return func(s *creditServiceImpl) {
		s.now = now
	}
}

// NewCreditService creates a new credit service with the provided options.
func NewCreditService(repo portsrepo.CreditRepositoryWithTx, idGen *idgen.Generator, cfg *config.Config, options ...CreditServiceOption) portssvc.CreditSvcFacade {
	svc := &creditServiceImpl{
		creditRepo: repo,
		idGen:      idGen,
		cfg:        cfg,
		now:        time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

// Ensure creditServiceImpl implements the CreditSvcFacade interface
var _ portssvc.CreditSvcFacade = (*creditServiceImpl)(nil)

// GrantCredits is the unified entry point for every credit granting scenario:
// payment success, subscription renewal, admin gift, award. Idempotency
// across retried grant calls is the caller's responsibility, enforced via the
// unique transaction number.
func (s *creditServiceImpl) GrantCredits(ctx context.Context, req dto.GrantCreditsRequest) (*domain.CreditEntry, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("user ID is required: %w", apperrors.ErrValidation)
	}
	if req.Credits <= 0 {
		return nil, fmt.Errorf("credits must be positive, got %d: %w", req.Credits, apperrors.ErrValidation)
	}

	scene := req.Scene
	if scene == "" {
		scene = domain.SceneGift
	}
	description := req.Description
	if description == "" {
		description = "Grant credits"
	}

	now := s.now()
	expiresAt := domain.CalculateExpiration(req.ValidDays, req.CurrentPeriodEnd, now)

	entry := domain.CreditEntry{
		CreditID:       s.idGen.CreditID(),
		UserID:         req.UserID,
		UserEmail:      req.UserEmail,
		OrderNo:        req.OrderNo,
		SubscriptionNo: req.SubscriptionNo,
		TransactionNo:  s.idGen.TransactionNo(),
		Type:           domain.TransactionTypeGrant,
		Scene:          scene,
		Credits:        req.Credits,
		Remaining:      req.Credits,
		Status:         domain.CreditStatusActive,
		ExpiresAt:      expiresAt,
		Description:    description,
		Metadata:       req.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.creditRepo.SaveCredit(ctx, entry); err != nil {
		s.LogError(ctx, err, "Failed to save credit grant",
			slog.String("user_id", req.UserID),
			slog.Int64("credits", req.Credits))
		return nil, err
	}

	metrics.GrantsTotal.WithLabelValues(string(scene)).Inc()
	metrics.GrantedCreditsTotal.Add(float64(req.Credits))

	expiresStr := "never"
	if expiresAt != nil {
		expiresStr = expiresAt.Format(time.RFC3339)
	}
	s.LogInfo(ctx, "Granted credits",
		slog.String("user_id", req.UserID),
		slog.Int64("credits", req.Credits),
		slog.String("scene", string(scene)),
		slog.String("expires", expiresStr))

	return &entry, nil
}

// GrantWelcomeCredits grants the configured welcome bonus to a newly
// registered user. Returns (nil, nil) when the bonus is disabled or the
// configured amount is not positive.
func (s *creditServiceImpl) GrantWelcomeCredits(ctx context.Context, userID string, userEmail string) (*domain.CreditEntry, error) {
	if !s.cfg.InitialCreditsEnabled || s.cfg.InitialCreditsAmount <= 0 {
		return nil, nil
	}

	entry, err := s.GrantCredits(ctx, dto.GrantCreditsRequest{
		UserID:      userID,
		UserEmail:   userEmail,
		Credits:     s.cfg.InitialCreditsAmount,
		ValidDays:   s.cfg.InitialCreditsValidDays,
		Scene:       domain.SceneGift,
		Description: s.cfg.InitialCreditsDescription,
		Metadata: map[string]any{
			"source":       "new_user_registration",
			"registeredAt": s.now().Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "New user welcome bonus granted",
		slog.String("user_id", userID),
		slog.Int64("credits", s.cfg.InitialCreditsAmount))
	return entry, nil
}

// ConsumeCredits atomically deducts credits from the user's balance inside a
// transaction it opens itself. Either the full amount is deducted and one
// consume entry is written, or nothing is persisted.
func (s *creditServiceImpl) ConsumeCredits(ctx context.Context, req dto.ConsumeCreditsRequest) (*domain.CreditEntry, error) {
	if err := validateConsumeRequest(req); err != nil {
		return nil, err
	}

	tx, err := s.creditRepo.Begin(ctx)
	if err != nil {
		metrics.ConsumeFailuresTotal.WithLabelValues("store_error").Inc()
		return nil, err
	}
	defer s.creditRepo.Rollback(ctx, tx) // no-op after a successful commit

	entry, err := s.consumeInTx(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	if err := s.creditRepo.Commit(ctx, tx); err != nil {
		metrics.ConsumeFailuresTotal.WithLabelValues("store_error").Inc()
		return nil, err
	}
	return entry, nil
}

// ConsumeCreditsInTx runs the consumption algorithm inside the caller's
// transaction so the deduction composes into a larger atomic business
// operation (e.g. place order, consume credits, mark paid). The caller owns
// commit and rollback.
func (s *creditServiceImpl) ConsumeCreditsInTx(ctx context.Context, tx pgx.Tx, req dto.ConsumeCreditsRequest) (*domain.CreditEntry, error) {
	if err := validateConsumeRequest(req); err != nil {
		return nil, err
	}
	return s.consumeInTx(ctx, tx, req)
}

func validateConsumeRequest(req dto.ConsumeCreditsRequest) error {
	if req.UserID == "" {
		return fmt.Errorf("user ID is required: %w", apperrors.ErrValidation)
	}
	if req.Credits <= 0 {
		return fmt.Errorf("credits must be positive, got %d: %w", req.Credits, apperrors.ErrValidation)
	}
	return nil
}

// consumeInTx implements the FIFO-by-expiration draw. All reads and writes go
// through tx; any error aborts the whole transaction with no partial effect.
func (s *creditServiceImpl) consumeInTx(ctx context.Context, tx pgx.Tx, req dto.ConsumeCreditsRequest) (*domain.CreditEntry, error) {
	now := s.now()

	// 1. Recompute the balance inside this transaction. The unlocked
	// BalanceReader figure is advisory only and never authorizes a spend.
	balance, err := s.creditRepo.SumRemainingCreditsInTx(ctx, tx, req.UserID, now)
	if err != nil {
		metrics.ConsumeFailuresTotal.WithLabelValues("store_error").Inc()
		return nil, err
	}
	if balance < req.Credits {
		metrics.ConsumeFailuresTotal.WithLabelValues("insufficient_credits").Inc()
		err := apperrors.NewInsufficientCreditsError(balance, req.Credits)
		s.LogInfo(ctx, "Consumption rejected, insufficient credits",
			slog.String("user_id", req.UserID),
			slog.Int64("balance", balance),
			slog.Int64("requested", req.Credits))
		return nil, err
	}

	// 2. Walk the user's usable grants soonest-to-expire first, locking a
	// page at a time. Rows drawn to zero stop matching the scan predicate,
	// so each fetch returns the next unconsumed slice of the queue.
	remainingToConsume := req.Credits
	consumedItems := make([]domain.ConsumedItem, 0, 4)
	batchNo := 0

	for remainingToConsume > 0 {
		batchNo++
		if batchNo > s.cfg.ConsumeMaxBatches {
			metrics.ConsumeFailuresTotal.WithLabelValues("too_many_batches").Inc()
			s.LogError(ctx, apperrors.ErrTooManyBatches, "Consumption scan exceeded batch cap, ledger is pathologically fragmented",
				slog.String("user_id", req.UserID),
				slog.Int64("requested", req.Credits),
				slog.Int("max_batches", s.cfg.ConsumeMaxBatches))
			return nil, fmt.Errorf("consumption for user %s exceeded %d batches: %w",
				req.UserID, s.cfg.ConsumeMaxBatches, apperrors.ErrTooManyBatches)
		}

		page, err := s.creditRepo.FindConsumableCreditsForUpdate(ctx, tx, req.UserID, now, s.cfg.ConsumeBatchSize)
		if err != nil {
			metrics.ConsumeFailuresTotal.WithLabelValues("store_error").Inc()
			return nil, err
		}
		if len(page) == 0 {
			// Should not happen after the balance check succeeded; guards
			// against a concurrent revoke shrinking the visible set.
			metrics.ConsumeFailuresTotal.WithLabelValues("insufficient_credits").Inc()
			s.LogWarn(ctx, "Consumable grants vanished mid-consumption",
				slog.String("user_id", req.UserID),
				slog.Int64("still_needed", remainingToConsume))
			return nil, apperrors.NewInsufficientCreditsError(req.Credits-remainingToConsume, req.Credits)
		}

		pageDraws := make([]domain.ConsumedItem, 0, len(page))
		for i := range page {
			if remainingToConsume <= 0 {
				break
			}
			grant := &page[i]
			draw := min(remainingToConsume, grant.Remaining)
			pageDraws = append(pageDraws, domain.ConsumedItem{
				CreditID:        grant.CreditID,
				TransactionNo:   grant.TransactionNo,
				ExpiresAt:       grant.ExpiresAt,
				Amount:          draw,
				RemainingBefore: grant.Remaining,
				RemainingAfter:  grant.Remaining - draw,
				BatchNo:         batchNo,
			})
			remainingToConsume -= draw
		}

		// Persist this page's decrements before fetching the next page so
		// drained rows drop out of the scan predicate.
		if err := s.creditRepo.ApplyDrawsInTx(ctx, tx, pageDraws, now); err != nil {
			metrics.ConsumeFailuresTotal.WithLabelValues("store_error").Inc()
			return nil, err
		}
		consumedItems = append(consumedItems, pageDraws...)
	}

	// 3. Write exactly one consume entry itemizing every draw.
	entry := domain.CreditEntry{
		CreditID:       s.idGen.CreditID(),
		UserID:         req.UserID,
		TransactionNo:  s.idGen.TransactionNo(),
		Type:           domain.TransactionTypeConsume,
		Scene:          req.Scene,
		Credits:        -req.Credits,
		Remaining:      0,
		Status:         domain.CreditStatusActive,
		ConsumedDetail: consumedItems,
		Description:    req.Description,
		Metadata:       req.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.creditRepo.SaveCreditInTx(ctx, tx, entry); err != nil {
		metrics.ConsumeFailuresTotal.WithLabelValues("store_error").Inc()
		return nil, err
	}

	metrics.ConsumptionsTotal.Inc()
	metrics.ConsumedCreditsTotal.Add(float64(req.Credits))
	metrics.ConsumptionBatches.Observe(float64(batchNo))

	s.LogInfo(ctx, "Consumed credits",
		slog.String("user_id", req.UserID),
		slog.Int64("credits", req.Credits),
		slog.Int("grants_drawn", len(consumedItems)),
		slog.Int("batches", batchNo))

	return &entry, nil
}

// GetRemainingCredits returns the user's usable balance. Unlocked and
// possibly stale relative to an in-flight consumption; display use only.
func (s *creditServiceImpl) GetRemainingCredits(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("user ID is required: %w", apperrors.ErrValidation)
	}
	return s.creditRepo.SumRemainingCredits(ctx, userID, s.now())
}

// GetRemainingCreditsBatch returns usable balances for several users in one
// grouped query. Users without usable credit are absent from the map; a
// query failure is returned to the caller rather than silently mapped to an
// empty result, so absence is never conflated with a confirmed zero balance.
func (s *creditServiceImpl) GetRemainingCreditsBatch(ctx context.Context, userIDs []string) (map[string]int64, error) {
	if len(userIDs) == 0 {
		return map[string]int64{}, nil
	}
	balances, err := s.creditRepo.SumRemainingCreditsBatch(ctx, userIDs, s.now())
	if err != nil {
		s.LogError(ctx, err, "Failed to batch remaining credits", slog.Int("user_count", len(userIDs)))
		return nil, err
	}
	return balances, nil
}

// ListCredits returns a page of ledger entries for audit UIs.
func (s *creditServiceImpl) ListCredits(ctx context.Context, filter portsrepo.CreditListFilter, limit int, offset int) ([]domain.CreditEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}
	return s.creditRepo.ListCredits(ctx, filter, limit, offset)
}

// CountCredits counts ledger entries matching the filter.
func (s *creditServiceImpl) CountCredits(ctx context.Context, filter portsrepo.CreditListFilter) (int64, error) {
	return s.creditRepo.CountCredits(ctx, filter)
}

// RevokeCreditsForOrder revokes all active grants that originated from the
// given order, zeroing their remaining credit so a refunded purchase cannot
// keep spendable balance behind.
func (s *creditServiceImpl) RevokeCreditsForOrder(ctx context.Context, orderNo string) (*dto.RevokeCreditsResult, error) {
	if orderNo == "" {
		return nil, fmt.Errorf("order no is required: %w", apperrors.ErrValidation)
	}

	tx, err := s.creditRepo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.creditRepo.Rollback(ctx, tx)

	grants, err := s.creditRepo.FindActiveGrantsByOrderForUpdate(ctx, tx, orderNo)
	if err != nil {
		return nil, err
	}

	result := &dto.RevokeCreditsResult{}
	if len(grants) == 0 {
		s.LogInfo(ctx, "No active credits to revoke for order", slog.String("order_no", orderNo))
		if err := s.creditRepo.Commit(ctx, tx); err != nil {
			return nil, err
		}
		return result, nil
	}

	for _, grant := range grants {
		result.TotalCreditsRevoked += grant.Remaining
		result.TotalCreditsGranted += grant.Credits
	}
	result.RevokedCount = len(grants)

	if err := s.creditRepo.RevokeGrantsByOrderInTx(ctx, tx, orderNo, s.now()); err != nil {
		return nil, err
	}
	if err := s.creditRepo.Commit(ctx, tx); err != nil {
		return nil, err
	}

	metrics.RevokedCreditsTotal.Add(float64(result.TotalCreditsRevoked))
	s.LogWarn(ctx, "Revoked credits for order",
		slog.String("order_no", orderNo),
		slog.Int("records", result.RevokedCount),
		slog.Int64("granted", result.TotalCreditsGranted),
		slog.Int64("remaining_revoked", result.TotalCreditsRevoked))

	return result, nil
}

// ExpireLapsedCredits flips lapsed active grants to expired status. The scan
// predicates stay authoritative either way; this keeps audit listings honest.
func (s *creditServiceImpl) ExpireLapsedCredits(ctx context.Context) (int64, error) {
	count, err := s.creditRepo.MarkExpiredCredits(ctx, s.now())
	if err != nil {
		s.LogError(ctx, err, "Failed to mark expired credits")
		return 0, err
	}
	if count > 0 {
		metrics.ExpiredGrantsTotal.Add(float64(count))
		s.LogInfo(ctx, "Marked lapsed grants expired", slog.Int64("count", count))
	}
	return count, nil
}
