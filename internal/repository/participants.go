package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/store"
)

type participantRepository struct {
	r *Repository
}

func scanParticipant(row rowScanner) (*domain.Participant, error) {
	participant := &domain.Participant{}
	var leftAt sql.NullTime

	dst := []any{&participant.ID, &participant.WorkOrderID, &participant.UserID, &participant.JoinedAt, &leftAt}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	if leftAt.Valid {
		participant.LeftAt = &leftAt.Time
	}

	return participant, nil
}

func (p *participantRepository) Create(ctx context.Context, participant *domain.Participant) error {
	ctx, cancel := p.r.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO work_order_participants (work_order_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	if err := p.r.db.QueryRowContext(ctx, query, participant.WorkOrderID, participant.UserID, participant.JoinedAt).Scan(&participant.ID); err != nil {
		return translateError(err)
	}

	return nil
}

func (p *participantRepository) Get(ctx context.Context, id int64) (*domain.Participant, error) {
	ctx, cancel := p.r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, work_order_id, user_id, joined_at, left_at
		FROM work_order_participants WHERE id = $1
	`

	participant, err := scanParticipant(p.r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError(err)
	}

	return participant, nil
}

func (p *participantRepository) ActiveExists(ctx context.Context, workOrderID, userID int64) (bool, error) {
	ctx, cancel := p.r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT EXISTS (
			SELECT 1 FROM work_order_participants
			WHERE work_order_id = $1 AND user_id = $2 AND left_at IS NULL
		)
	`

	exists := false
	if err := p.r.db.QueryRowContext(ctx, query, workOrderID, userID).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

func (p *participantRepository) ListActive(ctx context.Context, workOrderID int64) ([]*domain.Participant, error) {
	ctx, cancel := p.r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, work_order_id, user_id, joined_at, left_at
		FROM work_order_participants
		WHERE work_order_id = $1 AND left_at IS NULL
		ORDER BY id
	`

	rows, err := p.r.db.QueryContext(ctx, query, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]*domain.Participant, 0)
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return participants, nil
}

// MarkLeft 记录参与者离开的时间，记录不存在或已经离开时返回 store.ErrNotFound
func (p *participantRepository) MarkLeft(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := p.r.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE work_order_participants
		SET left_at = $1
		WHERE id = $2 AND left_at IS NULL
	`

	result, err := p.r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return translateError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	return nil
}
