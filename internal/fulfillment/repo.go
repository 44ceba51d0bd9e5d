package fulfillment

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nvasquez/stagefront-backend/pkg/db/models"
)

const fundingTotalRowID = 1

// Repository manages the fulfillment bookkeeping tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	RecordFulfillment(ctx context.Context, record *models.FulfillmentRecord) error
	GrantCredits(ctx context.Context, userID string, credits int64) error
	CreateCreditTransaction(ctx context.Context, txn *models.CreditTransaction) error
	CreateMembership(ctx context.Context, membership *models.Membership) error
	IncrementFundingTotal(ctx context.Context, amountCents int64) error
	CreditBalance(ctx context.Context, userID string) (int64, error)
	FundingTotal(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a fulfillment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// RecordFulfillment inserts the exactly-once pin for a confirmed intent. The
// unique intent_ref index rejects a second insert; callers detect that with
// IsDuplicateIntent.
func (r *repository) RecordFulfillment(ctx context.Context, record *models.FulfillmentRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) GrantCredits(ctx context.Context, userID string, credits int64) error {
	account := &models.CreditAccount{UserID: userID, Balance: credits}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"balance": gorm.Expr("credit_accounts.balance + ?", credits),
			}),
		}).
		Create(account).Error
}

func (r *repository) CreateCreditTransaction(ctx context.Context, txn *models.CreditTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) CreateMembership(ctx context.Context, membership *models.Membership) error {
	return r.db.WithContext(ctx).Create(membership).Error
}

func (r *repository) IncrementFundingTotal(ctx context.Context, amountCents int64) error {
	return r.db.WithContext(ctx).
		Model(&models.FundingTotal{}).
		Where("id = ?", fundingTotalRowID).
		UpdateColumn("amount_cents", gorm.Expr("amount_cents + ?", amountCents)).
		Error
}

func (r *repository) CreditBalance(ctx context.Context, userID string) (int64, error) {
	var account models.CreditAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

func (r *repository) FundingTotal(ctx context.Context) (int64, error) {
	var total models.FundingTotal
	err := r.db.WithContext(ctx).
		Where("id = ?", fundingTotalRowID).
		First(&total).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return total.AmountCents, nil
}

// IsDuplicateIntent reports whether err is the unique intent_ref violation.
func IsDuplicateIntent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
