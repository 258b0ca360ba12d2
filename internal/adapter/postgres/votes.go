package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

// voteTables names the content table and vote table for one votable kind.
type voteTables struct {
	content  string
	votes    string
	idColumn string
	notFound error
}

func tablesFor(kind domain.VotableKind) (voteTables, error) {
	switch kind {
	case domain.KindQuestion:
		return voteTables{content: "questions", votes: "question_votes", idColumn: "question_id", notFound: domain.ErrQuestionNotFound}, nil
	case domain.KindAnswer:
		return voteTables{content: "answers", votes: "answer_votes", idColumn: "answer_id", notFound: domain.ErrAnswerNotFound}, nil
	default:
		return voteTables{}, domain.ErrInvalidVotableKind
	}
}

func (s *Store) ApplyVote(ctx context.Context, ref domain.VotableRef, voterID uuid.UUID, at time.Time, decide domain.VoteDecision) (domain.VoteOutcome, error) {
	t, err := tablesFor(ref.Kind)
	if err != nil {
		return domain.VoteOutcome{}, err
	}

	var outcome domain.VoteOutcome
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		var ownerID uuid.UUID
		err := tx.QueryRow(ctx, `SELECT owner_id FROM `+t.content+` WHERE id = $1 FOR UPDATE`, ref.ID).Scan(&ownerID)
		if err != nil {
			return notFound(err, t.notFound)
		}

		existing, err := readVote(ctx, tx, t, ref.ID, voterID)
		if err != nil {
			return err
		}

		change, err := decide(ownerID, existing)
		if err != nil {
			return err
		}

		switch change.Action {
		case domain.VoteInserted:
			_, err = tx.Exec(ctx, `INSERT INTO `+t.votes+` (`+t.idColumn+`, voter_id, value, created_at) VALUES ($1, $2, $3, $4)`,
				ref.ID, voterID, int(change.Value), at)
		case domain.VoteReplaced:
			_, err = tx.Exec(ctx, `UPDATE `+t.votes+` SET value = $3, created_at = $4 WHERE `+t.idColumn+` = $1 AND voter_id = $2`,
				ref.ID, voterID, int(change.Value), at)
		case domain.VoteRemoved:
			_, err = tx.Exec(ctx, `DELETE FROM `+t.votes+` WHERE `+t.idColumn+` = $1 AND voter_id = $2`, ref.ID, voterID)
		}
		if isPgCode(err, codeForeignKeyViolation) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to write vote: %w", err)
		}

		var count int
		err = tx.QueryRow(ctx, `UPDATE `+t.content+` SET vote_count = vote_count + $2, version = version + 1 WHERE id = $1 RETURNING vote_count`,
			ref.ID, change.Delta).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to update vote count: %w", err)
		}

		if err := adjustReputations(ctx, tx, map[uuid.UUID]int{ownerID: change.Delta}); err != nil {
			return err
		}

		outcome = domain.VoteOutcome{
			Action:          change.Action,
			VoteCount:       count,
			ReputationDelta: change.Delta,
			UserVote:        change.Value,
			OwnerID:         ownerID,
		}
		return nil
	})
	if err != nil {
		return domain.VoteOutcome{}, err
	}
	return outcome, nil
}

func readVote(ctx context.Context, q querier, t voteTables, id, voterID uuid.UUID) (*domain.Vote, error) {
	var value int
	var createdAt time.Time
	err := q.QueryRow(ctx, `SELECT value, created_at FROM `+t.votes+` WHERE `+t.idColumn+` = $1 AND voter_id = $2`, id, voterID).
		Scan(&value, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vote: %w", err)
	}
	return &domain.Vote{VoterID: voterID, Value: domain.VoteValue(value), CreatedAt: createdAt}, nil
}

func (s *Store) GetVote(ctx context.Context, ref domain.VotableRef, voterID uuid.UUID) (*domain.Vote, error) {
	t, err := tablesFor(ref.Kind)
	if err != nil {
		return nil, err
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+t.content+` WHERE id = $1)`, ref.ID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check votable: %w", err)
	}
	if !exists {
		return nil, t.notFound
	}
	return readVote(ctx, s.pool, t, ref.ID, voterID)
}
