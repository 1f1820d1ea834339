package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conjugo/conjugo/internal/domain"
	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/ports"
)

type ProblemRepository struct {
	BaseRepository
}

func NewProblemRepository(pool *pgxpool.Pool) *ProblemRepository {
	return &ProblemRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

const problemColumns = `id, problem_type, title, instructions, statements,
		correct_answer_index, topic_tags, source_statement_ids, metadata,
		target_language_code, created_at, updated_at, last_served_at,
		generation_trace, generation_request_id`

func (r *ProblemRepository) Create(ctx context.Context, problem *models.Problem) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if err := problem.Validate(); err != nil {
		return err
	}

	statements, err := json.Marshal(problem.Statements)
	if err != nil {
		return fmt.Errorf("failed to marshal statements: %w", err)
	}
	metadata, err := json.Marshal(problem.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	trace, err := marshalJSONField(problem.GenerationTrace)
	if err != nil {
		return fmt.Errorf("failed to marshal generation trace: %w", err)
	}

	query := `
		INSERT INTO conjugo_problems (
			id, problem_type, title, instructions, statements,
			correct_answer_index, topic_tags, source_statement_ids, metadata,
			target_language_code, created_at, updated_at, generation_trace,
			generation_request_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		problem.ID,
		problem.ProblemType,
		problem.Title,
		problem.Instructions,
		statements,
		problem.CorrectAnswerIndex,
		problem.TopicTags,
		problem.SourceStatementIDs,
		metadata,
		problem.TargetLanguageCode,
		problem.CreatedAt,
		problem.UpdatedAt,
		trace,
		problem.GenerationRequestID,
	)

	return mapError(err)
}

func (r *ProblemRepository) GetByID(ctx context.Context, id string) (*models.Problem, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + problemColumns + ` FROM conjugo_problems WHERE id = $1`

	problem, err := r.scanProblem(r.conn(ctx).QueryRow(ctx, query, id))
	if err == domain.ErrNotFound {
		return nil, domain.ErrProblemNotFound
	}
	return problem, err
}

// SelectRandom implements the staleness-weighted pick as one query. Each
// candidate scores its seconds since last service (never-served rows compete
// with the virtual age) times a uniform factor in [0.5, 1.5); the highest
// score wins.
func (r *ProblemRepository) SelectRandom(ctx context.Context, filter ports.ProblemFilter, virtualStalenessDays float64) (*models.Problem, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	args := []any{virtualStalenessDays}
	var conditions []string

	if filter.ProblemType != "" {
		args = append(args, filter.ProblemType)
		conditions = append(conditions, fmt.Sprintf("problem_type = $%d", len(args)))
	}
	if filter.GrammaticalFocus != "" {
		args = append(args, filter.GrammaticalFocus)
		conditions = append(conditions, fmt.Sprintf("metadata->>'grammatical_focus' = $%d", len(args)))
	}
	if len(filter.TensesUsed) > 0 {
		args = append(args, filter.TensesUsed)
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM jsonb_array_elements_text(metadata->'tenses_used') t WHERE t = ANY($%d))", len(args)))
	}
	if len(filter.TopicTags) > 0 {
		args = append(args, filter.TopicTags)
		conditions = append(conditions, fmt.Sprintf("topic_tags && $%d", len(args)))
	}
	if filter.TargetLanguageCode != "" {
		args = append(args, filter.TargetLanguageCode)
		conditions = append(conditions, fmt.Sprintf("target_language_code = $%d", len(args)))
	}

	query := `SELECT ` + problemColumns + ` FROM conjugo_problems`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += `
		ORDER BY COALESCE(EXTRACT(EPOCH FROM (NOW() - last_served_at)), $1 * 86400) * (0.5 + random()) DESC
		LIMIT 1`

	problem, err := r.scanProblem(r.conn(ctx).QueryRow(ctx, query, args...))
	if err == domain.ErrNotFound {
		return nil, domain.ErrProblemNotFound
	}
	return problem, err
}

func (r *ProblemRepository) StampServed(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE conjugo_problems SET last_served_at = $2 WHERE id = $1`, id, at)
	return err
}

func (r *ProblemRepository) ListByRequest(ctx context.Context, requestID string) ([]*models.Problem, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + problemColumns + ` FROM conjugo_problems
		WHERE generation_request_id = $1
		ORDER BY created_at ASC`

	rows, err := r.conn(ctx).Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanProblems(rows)
}

func (r *ProblemRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time, topicTag string) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM conjugo_problems WHERE created_at < $1`
	args := []any{cutoff}
	if topicTag != "" {
		query += ` AND $2 = ANY(topic_tags)`
		args = append(args, topicTag)
	}

	result, err := r.conn(ctx).Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (r *ProblemRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.conn(ctx).Exec(ctx, `DELETE FROM conjugo_problems WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrProblemNotFound
	}
	return nil
}

func (r *ProblemRepository) scanProblem(row pgx.Row) (*models.Problem, error) {
	var p models.Problem
	var statements, metadata, trace []byte
	var lastServedAt sql.NullTime
	var requestID sql.NullString

	err := row.Scan(
		&p.ID,
		&p.ProblemType,
		&p.Title,
		&p.Instructions,
		&statements,
		&p.CorrectAnswerIndex,
		&p.TopicTags,
		&p.SourceStatementIDs,
		&metadata,
		&p.TargetLanguageCode,
		&p.CreatedAt,
		&p.UpdatedAt,
		&lastServedAt,
		&trace,
		&requestID,
	)
	if err != nil {
		return nil, mapError(err)
	}

	if err := unmarshalJSONField(statements, &p.Statements); err != nil {
		return nil, fmt.Errorf("failed to unmarshal statements: %w", err)
	}
	if err := unmarshalJSONField(metadata, &p.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	p.GenerationTrace, err = unmarshalJSONPointer[models.GenerationTrace](trace)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal generation trace: %w", err)
	}
	p.LastServedAt = getTimePtr(lastServedAt)
	if requestID.Valid {
		p.GenerationRequestID = &requestID.String
	}
	return &p, nil
}

func (r *ProblemRepository) scanProblems(rows pgx.Rows) ([]*models.Problem, error) {
	var problems []*models.Problem

	for rows.Next() {
		p, err := r.scanProblem(rows)
		if err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}

	return problems, rows.Err()
}
