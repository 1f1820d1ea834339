package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conjugo/conjugo/internal/domain"
	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/ports"
)

type VerbRepository struct {
	BaseRepository
}

func NewVerbRepository(pool *pgxpool.Pool) *VerbRepository {
	return &VerbRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

const verbColumns = `id, infinitive, auxiliary, reflexive, target_language_code, translation,
		past_participle, present_participle, classification, is_irregular,
		can_have_cod, can_have_coi, is_test, topic_tags, created_at, updated_at, last_used_at`

func (r *VerbRepository) Create(ctx context.Context, verb *models.Verb) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if err := verb.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO conjugo_verbs (
			id, infinitive, auxiliary, reflexive, target_language_code, translation,
			past_participle, present_participle, classification, is_irregular,
			can_have_cod, can_have_coi, is_test, topic_tags, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)`

	_, err := r.conn(ctx).Exec(ctx, query,
		verb.ID,
		verb.Infinitive,
		verb.Auxiliary,
		verb.Reflexive,
		verb.TargetLanguageCode,
		verb.Translation,
		verb.PastParticiple,
		verb.PresentParticiple,
		nullString(string(verb.Classification)),
		verb.IsIrregular,
		verb.CanHaveCOD,
		verb.CanHaveCOI,
		verb.IsTest,
		verb.TopicTags,
		verb.CreatedAt,
		verb.UpdatedAt,
	)

	return mapError(err)
}

func (r *VerbRepository) GetByID(ctx context.Context, id string) (*models.Verb, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + verbColumns + ` FROM conjugo_verbs WHERE id = $1`

	return r.scanVerb(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *VerbRepository) GetByInfinitive(ctx context.Context, infinitive string) (*models.Verb, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + verbColumns + ` FROM conjugo_verbs
		WHERE infinitive = $1
		ORDER BY created_at ASC
		LIMIT 1`

	return r.scanVerb(r.conn(ctx).QueryRow(ctx, query, infinitive))
}

// GetRandom picks one verb uniformly among those matching the filter.
func (r *VerbRepository) GetRandom(ctx context.Context, filter ports.VerbFilter) (*models.Verb, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var conditions []string
	var args []any

	if len(filter.Infinitives) > 0 {
		args = append(args, filter.Infinitives)
		conditions = append(conditions, fmt.Sprintf("infinitive = ANY($%d)", len(args)))
	}
	if len(filter.TopicTags) > 0 {
		args = append(args, filter.TopicTags)
		conditions = append(conditions, fmt.Sprintf("topic_tags && $%d", len(args)))
	}
	if filter.TargetLanguageCode != "" {
		args = append(args, filter.TargetLanguageCode)
		conditions = append(conditions, fmt.Sprintf("target_language_code = $%d", len(args)))
	}
	if filter.ExcludeTest {
		conditions = append(conditions, "is_test = FALSE")
	}

	query := `SELECT ` + verbColumns + ` FROM conjugo_verbs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY random() LIMIT 1"

	verb, err := r.scanVerb(r.conn(ctx).QueryRow(ctx, query, args...))
	if err == domain.ErrNotFound {
		return nil, domain.ErrVerbNotFound
	}
	return verb, err
}

func (r *VerbRepository) List(ctx context.Context, limit, offset int) ([]*models.Verb, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + verbColumns + ` FROM conjugo_verbs
		ORDER BY infinitive ASC
		LIMIT $1 OFFSET $2`

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanVerbs(rows)
}

func (r *VerbRepository) Update(ctx context.Context, verb *models.Verb) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if err := verb.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE conjugo_verbs SET
			infinitive = $2,
			auxiliary = $3,
			reflexive = $4,
			target_language_code = $5,
			translation = $6,
			past_participle = $7,
			present_participle = $8,
			classification = $9,
			is_irregular = $10,
			can_have_cod = $11,
			can_have_coi = $12,
			is_test = $13,
			topic_tags = $14,
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.conn(ctx).Exec(ctx, query,
		verb.ID,
		verb.Infinitive,
		verb.Auxiliary,
		verb.Reflexive,
		verb.TargetLanguageCode,
		verb.Translation,
		verb.PastParticiple,
		verb.PresentParticiple,
		nullString(string(verb.Classification)),
		verb.IsIrregular,
		verb.CanHaveCOD,
		verb.CanHaveCOI,
		verb.IsTest,
		verb.TopicTags,
	)
	if err != nil {
		return mapError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrVerbNotFound
	}
	return nil
}

func (r *VerbRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.conn(ctx).Exec(ctx, `DELETE FROM conjugo_verbs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrVerbNotFound
	}
	return nil
}

func (r *VerbRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE conjugo_verbs SET last_used_at = $2 WHERE id = $1`, id, at)
	return err
}

func (r *VerbRepository) DeleteTestData(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.conn(ctx).Exec(ctx, `DELETE FROM conjugo_verbs WHERE is_test = TRUE`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (r *VerbRepository) scanVerb(row pgx.Row) (*models.Verb, error) {
	var verb models.Verb
	var classification sql.NullString
	var lastUsedAt sql.NullTime

	err := row.Scan(
		&verb.ID,
		&verb.Infinitive,
		&verb.Auxiliary,
		&verb.Reflexive,
		&verb.TargetLanguageCode,
		&verb.Translation,
		&verb.PastParticiple,
		&verb.PresentParticiple,
		&classification,
		&verb.IsIrregular,
		&verb.CanHaveCOD,
		&verb.CanHaveCOI,
		&verb.IsTest,
		&verb.TopicTags,
		&verb.CreatedAt,
		&verb.UpdatedAt,
		&lastUsedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	verb.Classification = models.VerbGroup(getString(classification))
	verb.LastUsedAt = getTimePtr(lastUsedAt)
	return &verb, nil
}

func (r *VerbRepository) scanVerbs(rows pgx.Rows) ([]*models.Verb, error) {
	var verbs []*models.Verb

	for rows.Next() {
		verb, err := r.scanVerb(rows)
		if err != nil {
			return nil, err
		}
		verbs = append(verbs, verb)
	}

	return verbs, rows.Err()
}
