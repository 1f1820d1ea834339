package postgres

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/conjugo/conjugo/internal/domain"
	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/ports"
)

func testProblem() *models.Problem {
	now := time.Now()
	return &models.Problem{
		ID:           "prb_1",
		ProblemType:  models.ProblemTypeGrammar,
		Title:        "Le verbe « parler » au présent",
		Instructions: "Choisissez la phrase grammaticalement correcte.",
		Statements: []models.Statement{
			{"content": "Je parle.", "is_correct": true, "translation": "I speak."},
			{"content": "Je parles.", "is_correct": false, "explanation": "Wrong ending."},
			{"content": "Je parlons.", "is_correct": false, "explanation": "Wrong person."},
			{"content": "Je parlez.", "is_correct": false, "explanation": "Wrong person."},
		},
		CorrectAnswerIndex: 0,
		TopicTags:          []string{"daily-life"},
		SourceStatementIDs: []string{"snt_1", "snt_2", "snt_3", "snt_4"},
		Metadata: models.ProblemMetadata{
			GrammaticalFocus: "conjugation",
			TensesUsed:       []string{"présent"},
		},
		TargetLanguageCode: "eng",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestProblemRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ProblemRepository{BaseRepository: BaseRepository{pool: nil}}
	problem := testProblem()

	mock.ExpectExec("INSERT INTO conjugo_problems").
		WithArgs(problem.ID, problem.ProblemType, problem.Title, problem.Instructions,
			pgxmock.AnyArg(), problem.CorrectAnswerIndex, problem.TopicTags,
			problem.SourceStatementIDs, pgxmock.AnyArg(), problem.TargetLanguageCode,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	if err := repo.Create(ctx, problem); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestProblemRepository_Create_BadStatementShape(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ProblemRepository{BaseRepository: BaseRepository{pool: nil}}

	problem := testProblem()
	// The incorrect statement loses its explanation: the write must be refused
	// before reaching the database.
	problem.Statements[1] = models.Statement{"content": "Je parles.", "is_correct": false}

	ctx := setupMockContext(mock)
	if err := repo.Create(ctx, problem); !errors.Is(err, models.ErrInvalidStatementShape) {
		t.Errorf("expected ErrInvalidStatementShape, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestProblemRepository_Create_ExtraStatementKeysAccepted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ProblemRepository{BaseRepository: BaseRepository{pool: nil}}

	problem := testProblem()
	problem.Statements[0]["hint"] = "first person singular"

	mock.ExpectExec("INSERT INTO conjugo_problems").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	if err := repo.Create(ctx, problem); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func problemRows(problem *models.Problem) *pgxmock.Rows {
	statements, _ := json.Marshal(problem.Statements)
	metadata, _ := json.Marshal(problem.Metadata)
	return pgxmock.NewRows([]string{
		"id", "problem_type", "title", "instructions", "statements",
		"correct_answer_index", "topic_tags", "source_statement_ids", "metadata",
		"target_language_code", "created_at", "updated_at", "last_served_at",
		"generation_trace", "generation_request_id",
	}).AddRow(
		problem.ID, problem.ProblemType, problem.Title, problem.Instructions,
		statements, problem.CorrectAnswerIndex, problem.TopicTags,
		problem.SourceStatementIDs, metadata, problem.TargetLanguageCode,
		problem.CreatedAt, problem.UpdatedAt, nullTime(problem.LastServedAt),
		[]byte(nil), nullString(""),
	)
}

func TestProblemRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ProblemRepository{BaseRepository: BaseRepository{pool: nil}}
	problem := testProblem()

	mock.ExpectQuery("SELECT (.+) FROM conjugo_problems").
		WithArgs(problem.ID).
		WillReturnRows(problemRows(problem))

	ctx := setupMockContext(mock)
	got, err := repo.GetByID(ctx, problem.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Statements) != 4 {
		t.Errorf("expected 4 statements, got %d", len(got.Statements))
	}
	if !got.Statements[0].IsCorrect() {
		t.Error("expected first statement to be correct")
	}
	if got.Metadata.GrammaticalFocus != "conjugation" {
		t.Errorf("expected conjugation focus, got %s", got.Metadata.GrammaticalFocus)
	}
	if got.GenerationRequestID != nil {
		t.Errorf("expected nil generation_request_id, got %v", *got.GenerationRequestID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestProblemRepository_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ProblemRepository{BaseRepository: BaseRepository{pool: nil}}

	mock.ExpectQuery("SELECT (.+) FROM conjugo_problems").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	ctx := setupMockContext(mock)
	_, err = repo.GetByID(ctx, "missing")
	if !errors.Is(err, domain.ErrProblemNotFound) {
		t.Errorf("expected ErrProblemNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestProblemRepository_SelectRandom(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ProblemRepository{BaseRepository: BaseRepository{pool: nil}}
	problem := testProblem()

	mock.ExpectQuery(`SELECT (.+) FROM conjugo_problems WHERE (.+) ORDER BY COALESCE`).
		WithArgs(14.0, models.ProblemTypeGrammar, "conjugation", []string{"daily-life"}).
		WillReturnRows(problemRows(problem))

	ctx := setupMockContext(mock)
	got, err := repo.SelectRandom(ctx, ports.ProblemFilter{
		ProblemType:      models.ProblemTypeGrammar,
		GrammaticalFocus: "conjugation",
		TopicTags:        []string{"daily-life"},
	}, 14.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != problem.ID {
		t.Errorf("expected problem %s, got %s", problem.ID, got.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestProblemRepository_SelectRandom_EmptyPool(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ProblemRepository{BaseRepository: BaseRepository{pool: nil}}

	mock.ExpectQuery(`SELECT (.+) FROM conjugo_problems`).
		WithArgs(14.0).
		WillReturnError(pgx.ErrNoRows)

	ctx := setupMockContext(mock)
	_, err = repo.SelectRandom(ctx, ports.ProblemFilter{}, 14.0)
	if !errors.Is(err, domain.ErrProblemNotFound) {
		t.Errorf("expected ErrProblemNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestProblemRepository_StampServed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ProblemRepository{BaseRepository: BaseRepository{pool: nil}}
	at := time.Now()

	mock.ExpectExec("UPDATE conjugo_problems SET last_served_at").
		WithArgs("prb_1", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := setupMockContext(mock)
	if err := repo.StampServed(ctx, "prb_1", at); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestProblemRepository_PurgeOlderThan_WithTopic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ProblemRepository{BaseRepository: BaseRepository{pool: nil}}
	cutoff := time.Now().Add(-30 * 24 * time.Hour)

	mock.ExpectExec("DELETE FROM conjugo_problems").
		WithArgs(cutoff, "daily-life").
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	ctx := setupMockContext(mock)
	removed, err := repo.PurgeOlderThan(ctx, cutoff, "daily-life")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 7 {
		t.Errorf("expected 7 removed, got %d", removed)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
