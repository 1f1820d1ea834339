package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is the full DDL for the service. Every statement is idempotent so
// `database init` can run against an existing database.
const schema = `
CREATE TABLE IF NOT EXISTS conjugo_verbs (
	id TEXT PRIMARY KEY,
	infinitive TEXT NOT NULL,
	auxiliary TEXT NOT NULL,
	reflexive BOOLEAN NOT NULL DEFAULT FALSE,
	target_language_code TEXT NOT NULL,
	translation TEXT NOT NULL,
	past_participle TEXT NOT NULL,
	present_participle TEXT NOT NULL,
	classification TEXT,
	is_irregular BOOLEAN NOT NULL DEFAULT FALSE,
	can_have_cod BOOLEAN NOT NULL DEFAULT FALSE,
	can_have_coi BOOLEAN NOT NULL DEFAULT FALSE,
	is_test BOOLEAN NOT NULL DEFAULT FALSE,
	topic_tags TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_used_at TIMESTAMPTZ,
	UNIQUE (infinitive, auxiliary, reflexive, target_language_code, translation)
);

CREATE TABLE IF NOT EXISTS conjugo_conjugations (
	id TEXT PRIMARY KEY,
	infinitive TEXT NOT NULL,
	auxiliary TEXT NOT NULL,
	reflexive BOOLEAN NOT NULL DEFAULT FALSE,
	tense TEXT NOT NULL,
	first_singular TEXT,
	second_singular TEXT,
	third_singular TEXT,
	first_plural TEXT,
	second_plural TEXT,
	third_plural TEXT,
	UNIQUE (infinitive, auxiliary, reflexive, tense)
);

CREATE TABLE IF NOT EXISTS conjugo_sentences (
	id TEXT PRIMARY KEY,
	verb_id TEXT NOT NULL REFERENCES conjugo_verbs(id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	translation TEXT,
	pronoun TEXT NOT NULL,
	tense TEXT NOT NULL,
	direct_object TEXT NOT NULL DEFAULT 'none',
	indirect_object TEXT NOT NULL DEFAULT 'none',
	reflexive_pronoun TEXT NOT NULL DEFAULT 'none',
	negation TEXT NOT NULL DEFAULT 'none',
	is_correct BOOLEAN NOT NULL,
	explanation TEXT,
	source TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_conjugo_sentences_verb_id ON conjugo_sentences(verb_id);

CREATE TABLE IF NOT EXISTS conjugo_generation_requests (
	id TEXT PRIMARY KEY,
	entity_type TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	requested_count INTEGER NOT NULL,
	generated_count INTEGER NOT NULL DEFAULT 0,
	failed_count INTEGER NOT NULL DEFAULT 0,
	requested_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	constraints JSONB,
	metadata JSONB,
	error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_conjugo_generation_requests_status ON conjugo_generation_requests(status);

CREATE TABLE IF NOT EXISTS conjugo_problems (
	id TEXT PRIMARY KEY,
	problem_type TEXT NOT NULL,
	title TEXT NOT NULL,
	instructions TEXT NOT NULL,
	statements JSONB NOT NULL,
	correct_answer_index INTEGER NOT NULL,
	topic_tags TEXT[] NOT NULL DEFAULT '{}',
	source_statement_ids TEXT[] NOT NULL DEFAULT '{}',
	metadata JSONB NOT NULL DEFAULT '{}',
	target_language_code TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_served_at TIMESTAMPTZ,
	generation_trace JSONB,
	generation_request_id TEXT REFERENCES conjugo_generation_requests(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_conjugo_problems_type ON conjugo_problems(problem_type);
CREATE INDEX IF NOT EXISTS idx_conjugo_problems_last_served ON conjugo_problems(last_served_at);
CREATE INDEX IF NOT EXISTS idx_conjugo_problems_request ON conjugo_problems(generation_request_id);

CREATE TABLE IF NOT EXISTS conjugo_api_keys (
	id TEXT PRIMARY KEY,
	secret_hash BYTEA NOT NULL,
	salt BYTEA NOT NULL,
	prefix TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	permissions TEXT[] NOT NULL DEFAULT '{}',
	allowed_ips TEXT[] NOT NULL DEFAULT '{}',
	rate_limit INTEGER NOT NULL DEFAULT 60,
	usage_count BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_used_at TIMESTAMPTZ
);
`

// InitSchema applies the DDL. Safe to run repeatedly.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
