package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conjugo/conjugo/internal/domain"
	"github.com/conjugo/conjugo/internal/domain/models"
)

type ConjugationRepository struct {
	BaseRepository
}

func NewConjugationRepository(pool *pgxpool.Pool) *ConjugationRepository {
	return &ConjugationRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

const conjugationColumns = `id, infinitive, auxiliary, reflexive, tense,
		first_singular, second_singular, third_singular,
		first_plural, second_plural, third_plural`

func (r *ConjugationRepository) Create(ctx context.Context, conjugation *models.Conjugation) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO conjugo_conjugations (
			id, infinitive, auxiliary, reflexive, tense,
			first_singular, second_singular, third_singular,
			first_plural, second_plural, third_plural
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`

	_, err := r.conn(ctx).Exec(ctx, query,
		conjugation.ID,
		conjugation.Infinitive,
		conjugation.Auxiliary,
		conjugation.Reflexive,
		conjugation.Tense,
		conjugation.FirstSingular,
		conjugation.SecondSingular,
		conjugation.ThirdSingular,
		conjugation.FirstPlural,
		conjugation.SecondPlural,
		conjugation.ThirdPlural,
	)

	return mapError(err)
}

func (r *ConjugationRepository) Get(ctx context.Context, infinitive string, auxiliary models.Auxiliary, reflexive bool, tense models.Tense) (*models.Conjugation, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + conjugationColumns + ` FROM conjugo_conjugations
		WHERE infinitive = $1 AND auxiliary = $2 AND reflexive = $3 AND tense = $4`

	conjugation, err := r.scanConjugation(r.conn(ctx).QueryRow(ctx, query, infinitive, auxiliary, reflexive, tense))
	if err == domain.ErrNotFound {
		return nil, domain.ErrConjugationNotFound
	}
	return conjugation, err
}

func (r *ConjugationRepository) ListByVerb(ctx context.Context, infinitive string, auxiliary models.Auxiliary) ([]*models.Conjugation, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + conjugationColumns + ` FROM conjugo_conjugations
		WHERE infinitive = $1 AND auxiliary = $2
		ORDER BY tense ASC`

	rows, err := r.conn(ctx).Query(ctx, query, infinitive, auxiliary)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanConjugations(rows)
}

func (r *ConjugationRepository) List(ctx context.Context, limit, offset int) ([]*models.Conjugation, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + conjugationColumns + ` FROM conjugo_conjugations
		ORDER BY infinitive ASC, tense ASC
		LIMIT $1 OFFSET $2`

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanConjugations(rows)
}

func (r *ConjugationRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.conn(ctx).Exec(ctx, `DELETE FROM conjugo_conjugations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConjugationNotFound
	}
	return nil
}

func (r *ConjugationRepository) scanConjugation(row pgx.Row) (*models.Conjugation, error) {
	var c models.Conjugation

	err := row.Scan(
		&c.ID,
		&c.Infinitive,
		&c.Auxiliary,
		&c.Reflexive,
		&c.Tense,
		&c.FirstSingular,
		&c.SecondSingular,
		&c.ThirdSingular,
		&c.FirstPlural,
		&c.SecondPlural,
		&c.ThirdPlural,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return &c, nil
}

func (r *ConjugationRepository) scanConjugations(rows pgx.Rows) ([]*models.Conjugation, error) {
	var conjugations []*models.Conjugation

	for rows.Next() {
		c, err := r.scanConjugation(rows)
		if err != nil {
			return nil, err
		}
		conjugations = append(conjugations, c)
	}

	return conjugations, rows.Err()
}
