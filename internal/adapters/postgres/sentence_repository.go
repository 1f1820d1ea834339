package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conjugo/conjugo/internal/domain"
	"github.com/conjugo/conjugo/internal/domain/models"
)

type SentenceRepository struct {
	BaseRepository
}

func NewSentenceRepository(pool *pgxpool.Pool) *SentenceRepository {
	return &SentenceRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

const sentenceColumns = `id, verb_id, content, translation, pronoun, tense,
		direct_object, indirect_object, reflexive_pronoun, negation,
		is_correct, explanation, source, created_at, updated_at`

func (r *SentenceRepository) Create(ctx context.Context, sentence *models.Sentence) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if err := sentence.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO conjugo_sentences (
			id, verb_id, content, translation, pronoun, tense,
			direct_object, indirect_object, reflexive_pronoun, negation,
			is_correct, explanation, source, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)`

	_, err := r.conn(ctx).Exec(ctx, query,
		sentence.ID,
		sentence.VerbID,
		sentence.Content,
		nullString(sentence.Translation),
		sentence.Pronoun,
		sentence.Tense,
		sentence.DirectObject,
		sentence.IndirectObject,
		sentence.ReflexivePronoun,
		sentence.Negation,
		sentence.IsCorrect,
		nullString(sentence.Explanation),
		nullString(sentence.Source),
		sentence.CreatedAt,
		sentence.UpdatedAt,
	)

	return mapError(err)
}

func (r *SentenceRepository) GetByID(ctx context.Context, id string) (*models.Sentence, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + sentenceColumns + ` FROM conjugo_sentences WHERE id = $1`

	sentence, err := r.scanSentence(r.conn(ctx).QueryRow(ctx, query, id))
	if err == domain.ErrNotFound {
		return nil, domain.ErrSentenceNotFound
	}
	return sentence, err
}

func (r *SentenceRepository) ListByVerb(ctx context.Context, verbID string) ([]*models.Sentence, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + sentenceColumns + ` FROM conjugo_sentences
		WHERE verb_id = $1
		ORDER BY created_at DESC`

	rows, err := r.conn(ctx).Query(ctx, query, verbID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanSentences(rows)
}

func (r *SentenceRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.conn(ctx).Exec(ctx, `DELETE FROM conjugo_sentences WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrSentenceNotFound
	}
	return nil
}

func (r *SentenceRepository) scanSentence(row pgx.Row) (*models.Sentence, error) {
	var s models.Sentence
	var translation, explanation, source sql.NullString

	err := row.Scan(
		&s.ID,
		&s.VerbID,
		&s.Content,
		&translation,
		&s.Pronoun,
		&s.Tense,
		&s.DirectObject,
		&s.IndirectObject,
		&s.ReflexivePronoun,
		&s.Negation,
		&s.IsCorrect,
		&explanation,
		&source,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	s.Translation = getString(translation)
	s.Explanation = getString(explanation)
	s.Source = getString(source)
	return &s, nil
}

func (r *SentenceRepository) scanSentences(rows pgx.Rows) ([]*models.Sentence, error) {
	var sentences []*models.Sentence

	for rows.Next() {
		s, err := r.scanSentence(rows)
		if err != nil {
			return nil, err
		}
		sentences = append(sentences, s)
	}

	return sentences, rows.Err()
}
