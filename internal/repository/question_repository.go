package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openqb/qbank-backend/internal/model"
)

// ErrQuestionNotFound is returned when a question ID has no row.
var ErrQuestionNotFound = errors.New("question not found")

// QuestionRepository handles question data access. Structured sub-documents
// (tags, choices, attribution, history) are stored as JSONB.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, title, question_text, type, status, category, version,
	default_mark, penalty_factor, general_feedback, tags, choices,
	correct_answer, feedback_true, feedback_false, show_instructions,
	created_by, modified_by, history`

// List retrieves every question ordered by ID.
func (r *QuestionRepository) List(ctx context.Context) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Get retrieves a single question by ID.
func (r *QuestionRepository) Get(ctx context.Context, id int64) (*model.Question, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	return &q, nil
}

// NextID returns max(id)+1, the ID the next created question receives.
func (r *QuestionRepository) NextID(ctx context.Context) (int64, error) {
	var next int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(id), 0) + 1 FROM questions`).Scan(&next)
	return next, err
}

// Create inserts a new question with its pre-assigned ID.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	args, err := questionArgs(q)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, insertQuestionSQL, args...)
	return err
}

// Update overwrites every mutable column of an existing question.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	args, err := questionArgs(q)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, updateQuestionSQL, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

// Delete removes a question.
func (r *QuestionRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

// UpdateBatch writes a set of merged questions inside one transaction.
// If any update fails the transaction rolls back, so the stored state never
// diverges from what the caller confirmed — a failed bulk edit leaves the
// bank exactly as it was.
func (r *QuestionRepository) UpdateBatch(ctx context.Context, questions []model.Question) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for i := range questions {
			args, err := questionArgs(&questions[i])
			if err != nil {
				return err
			}
			tag, err := tx.Exec(ctx, updateQuestionSQL, args...)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: id %d", ErrQuestionNotFound, questions[i].ID)
			}
		}
		return nil
	})
}

// InsertBatch inserts a set of questions inside one transaction. Used by the
// XML import: either the whole batch lands or none of it does.
func (r *QuestionRepository) InsertBatch(ctx context.Context, questions []model.Question) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for i := range questions {
			args, err := questionArgs(&questions[i])
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, insertQuestionSQL, args...); err != nil {
				return err
			}
		}
		return nil
	})
}

const insertQuestionSQL = `
	INSERT INTO questions (` + questionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

const updateQuestionSQL = `
	UPDATE questions SET
		title = $2, question_text = $3, type = $4, status = $5, category = $6,
		version = $7, default_mark = $8, penalty_factor = $9, general_feedback = $10,
		tags = $11, choices = $12, correct_answer = $13, feedback_true = $14,
		feedback_false = $15, show_instructions = $16, created_by = $17,
		modified_by = $18, history = $19
	WHERE id = $1`

// questionArgs marshals a question into the column argument list shared by
// insert and update.
func questionArgs(q *model.Question) ([]any, error) {
	tags, err := json.Marshal(emptyIfNilTags(q.Tags))
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	choices, err := json.Marshal(q.Choices)
	if err != nil {
		return nil, fmt.Errorf("marshal choices: %w", err)
	}
	createdBy, err := json.Marshal(q.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("marshal created_by: %w", err)
	}
	modifiedBy, err := json.Marshal(q.ModifiedBy)
	if err != nil {
		return nil, fmt.Errorf("marshal modified_by: %w", err)
	}
	history, err := json.Marshal(q.History)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}

	return []any{
		q.ID, q.Title, q.QuestionText, q.Type, q.Status, q.Category, q.Version,
		q.DefaultMark, q.PenaltyFactor, q.GeneralFeedback, tags, choices,
		q.CorrectAnswer, q.FeedbackTrue, q.FeedbackFalse, q.ShowInstructions,
		createdBy, modifiedBy, history,
	}, nil
}

func emptyIfNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// scanQuestion reads one row into a Question, unmarshalling the JSONB
// sub-documents.
func scanQuestion(row pgx.Row) (model.Question, error) {
	var (
		q          model.Question
		tags       []byte
		choices    []byte
		createdBy  []byte
		modifiedBy []byte
		history    []byte
	)

	err := row.Scan(
		&q.ID, &q.Title, &q.QuestionText, &q.Type, &q.Status, &q.Category,
		&q.Version, &q.DefaultMark, &q.PenaltyFactor, &q.GeneralFeedback,
		&tags, &choices, &q.CorrectAnswer, &q.FeedbackTrue, &q.FeedbackFalse,
		&q.ShowInstructions, &createdBy, &modifiedBy, &history,
	)
	if err != nil {
		return model.Question{}, err
	}

	if err := json.Unmarshal(tags, &q.Tags); err != nil {
		return model.Question{}, fmt.Errorf("unmarshal tags: %w", err)
	}
	if len(choices) > 0 {
		if err := json.Unmarshal(choices, &q.Choices); err != nil {
			return model.Question{}, fmt.Errorf("unmarshal choices: %w", err)
		}
	}
	if err := json.Unmarshal(createdBy, &q.CreatedBy); err != nil {
		return model.Question{}, fmt.Errorf("unmarshal created_by: %w", err)
	}
	if err := json.Unmarshal(modifiedBy, &q.ModifiedBy); err != nil {
		return model.Question{}, fmt.Errorf("unmarshal modified_by: %w", err)
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &q.History); err != nil {
			return model.Question{}, fmt.Errorf("unmarshal history: %w", err)
		}
	}
	return q, nil
}
