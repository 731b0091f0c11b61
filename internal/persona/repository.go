// AngelaMos | 2026
// repository.go

package persona

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/angelamos/personaforge/internal/core"
)

type Repository interface {
	Create(ctx context.Context, p *Persona) error
	CreateWithBuyer(ctx context.Context, p *Persona, bp *BuyerPersona) error
	GetByID(ctx context.Context, id string) (*Persona, error)
	MarkUnlocked(ctx context.Context, id string) error
	Relock(ctx context.Context, id string) error
	ListForUser(
		ctx context.Context,
		userID string,
		limit, offset int,
	) ([]Persona, error)
	CountForUser(ctx context.Context, userID string) (int, error)
	ListBuyerPersonasForCompany(
		ctx context.Context,
		companyProfileID string,
	) ([]BuyerPersona, error)
	Counts(ctx context.Context) (map[PersonaType]int, int, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Persona) error {
	if err := insertPersona(ctx, r.db, p); err != nil {
		return fmt.Errorf("create persona: %w", err)
	}
	return nil
}

// CreateWithBuyer writes the persona row and its buyer_personas row in one
// transaction. A buyer persona must never exist without its persona row,
// and vice versa.
func (r *repository) CreateWithBuyer(
	ctx context.Context,
	p *Persona,
	bp *BuyerPersona,
) error {
	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := insertPersona(ctx, tx, p); err != nil {
			return err
		}
		return insertBuyerPersona(ctx, tx, bp)
	})
	if err != nil {
		return fmt.Errorf("create buyer persona: %w", err)
	}
	return nil
}

func insertPersona(ctx context.Context, q core.DBTX, p *Persona) error {
	query := `
		INSERT INTO personas (
			id, user_id, type, business_context, persona_data,
			company_profile, company_id, is_unlocked, is_complete
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	return q.GetContext(ctx, p, query,
		p.ID,
		p.UserID,
		p.Type,
		p.BusinessContext,
		p.PersonaData,
		p.CompanyProfile,
		p.CompanyID,
		p.IsUnlocked,
		p.IsComplete,
	)
}

func insertBuyerPersona(
	ctx context.Context,
	q core.DBTX,
	bp *BuyerPersona,
) error {
	query := `
		INSERT INTO buyer_personas (id, company_profile_id, persona_data)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	return q.GetContext(ctx, &bp.CreatedAt, query,
		bp.ID,
		bp.CompanyProfileID,
		bp.PersonaData,
	)
}

func (r *repository) GetByID(ctx context.Context, id string) (*Persona, error) {
	query := `
		SELECT id, user_id, type, business_context, persona_data,
		       company_profile, company_id, is_unlocked, is_complete,
		       created_at, updated_at
		FROM personas
		WHERE id = $1`

	var p Persona
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get persona: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get persona: %w", err)
	}

	return &p, nil
}

// MarkUnlocked performs the conditional unlock transition. The WHERE
// clause carries the precondition so concurrent unlocks race at the row,
// not in process memory: exactly one caller observes an affected row.
func (r *repository) MarkUnlocked(ctx context.Context, id string) error {
	query := `
		UPDATE personas
		SET is_unlocked = TRUE, updated_at = NOW()
		WHERE id = $1 AND is_unlocked = FALSE`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark unlocked: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark unlocked: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("mark unlocked: %w", core.ErrConflict)
	}

	return nil
}

// Relock is the compensation path for a failed credit write. It is the
// only supported false<-true transition of is_unlocked.
func (r *repository) Relock(ctx context.Context, id string) error {
	query := `
		UPDATE personas
		SET is_unlocked = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_unlocked = TRUE`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("relock persona: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("relock persona: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("relock persona: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) ListForUser(
	ctx context.Context,
	userID string,
	limit, offset int,
) ([]Persona, error) {
	query := `
		SELECT id, user_id, type, business_context, persona_data,
		       company_profile, company_id, is_unlocked, is_complete,
		       created_at, updated_at
		FROM personas
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var personas []Persona
	err := r.db.SelectContext(ctx, &personas, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}

	return personas, nil
}

func (r *repository) CountForUser(
	ctx context.Context,
	userID string,
) (int, error) {
	query := `SELECT COUNT(*) FROM personas WHERE user_id = $1`

	var n int
	if err := r.db.GetContext(ctx, &n, query, userID); err != nil {
		return 0, fmt.Errorf("count personas: %w", err)
	}

	return n, nil
}

func (r *repository) ListBuyerPersonasForCompany(
	ctx context.Context,
	companyProfileID string,
) ([]BuyerPersona, error) {
	query := `
		SELECT id, company_profile_id, persona_data, created_at
		FROM buyer_personas
		WHERE company_profile_id = $1
		ORDER BY created_at ASC`

	var buyers []BuyerPersona
	err := r.db.SelectContext(ctx, &buyers, query, companyProfileID)
	if err != nil {
		return nil, fmt.Errorf("list buyer personas: %w", err)
	}

	return buyers, nil
}

// Counts runs both aggregates in one read-only transaction so the admin
// snapshot is internally consistent.
func (r *repository) Counts(
	ctx context.Context,
) (map[PersonaType]int, int, error) {
	var (
		byType   = make(map[PersonaType]int)
		unlocked int
	)

	opts := &sql.TxOptions{ReadOnly: true}
	err := core.InTxWithOptions(ctx, r.db, opts, func(tx *sqlx.Tx) error {
		var rows []struct {
			Type PersonaType `db:"type"`
			N    int         `db:"n"`
		}
		query := `SELECT type, COUNT(*) AS n FROM personas GROUP BY type`
		if err := tx.SelectContext(ctx, &rows, query); err != nil {
			return err
		}
		for _, row := range rows {
			byType[row.Type] = row.N
		}

		query = `SELECT COUNT(*) FROM personas WHERE is_unlocked`
		return tx.GetContext(ctx, &unlocked, query)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("count personas: %w", err)
	}

	return byType, unlocked, nil
}
