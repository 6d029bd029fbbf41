package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Deletion flag statuses, per §3/§4.I.
const (
	FlagStatusPending  = "pending"
	FlagStatusApproved = "approved"
	FlagStatusRejected = "rejected"
)

// FlagSubmissionOutcome reports what SubmitDeletionFlag did.
type FlagSubmissionOutcome string

const (
	FlagOutcomeCreated        FlagSubmissionOutcome = "created"
	FlagOutcomeAlreadyPending FlagSubmissionOutcome = "already_pending"
	FlagOutcomeAlreadyBanned  FlagSubmissionOutcome = "already_banned"
)

// SubmitDeletionFlag implements the flag-submission state machine of §4.I.
func (q *Queries) SubmitDeletionFlag(ctx context.Context, centerID sql.NullInt64, osmType string, osmID int64, reason string) (FlagSubmissionOutcome, int64, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, fmt.Errorf("beginning flag submission transaction: %w", err)
	}
	defer tx.Rollback()

	var bannedExists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM banned_offices WHERE osm_type = $1 AND osm_id = $2)
	`, osmType, osmID).Scan(&bannedExists); err != nil {
		return "", 0, fmt.Errorf("checking banned office: %w", err)
	}
	if bannedExists {
		return FlagOutcomeAlreadyBanned, 0, tx.Commit()
	}

	var existingID int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM office_deletion_flags WHERE osm_type = $1 AND osm_id = $2 AND status = 'pending'
	`, osmType, osmID).Scan(&existingID)
	switch {
	case err == nil:
		return FlagOutcomeAlreadyPending, existingID, tx.Commit()
	case errors.Is(err, sql.ErrNoRows):
		// fall through to insert
	default:
		return "", 0, fmt.Errorf("checking pending flag: %w", err)
	}

	var newID int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO office_deletion_flags (center_id, osm_type, osm_id, reason, status, submitted_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), 'pending', NOW())
		RETURNING id
	`, centerID, osmType, osmID, reason).Scan(&newID); err != nil {
		return "", 0, fmt.Errorf("inserting deletion flag: %w", err)
	}

	return FlagOutcomeCreated, newID, tx.Commit()
}

// ListDeletionFlagsParams filters the admin deletion-flags list.
type ListDeletionFlagsParams struct {
	Status string // "pending", "approved", "rejected", or "all"
	Limit  int
}

// ListDeletionFlags returns flags matching the status filter, newest first.
func (q *Queries) ListDeletionFlags(ctx context.Context, params ListDeletionFlagsParams) ([]OfficeDeletionFlag, error) {
	query := `
		SELECT id, center_id, osm_type, osm_id, reason, status, submitted_at, reviewed_at
		FROM office_deletion_flags
		WHERE ($1 = 'all' OR status = $1)
		ORDER BY submitted_at DESC
		LIMIT $2
	`
	rows, err := q.db.QueryContext(ctx, query, params.Status, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("listing deletion flags: %w", err)
	}
	defer rows.Close()

	var flags []OfficeDeletionFlag
	for rows.Next() {
		var f OfficeDeletionFlag
		if err := rows.Scan(&f.ID, &f.CenterID, &f.OSMType, &f.OSMID, &f.Reason, &f.Status,
			&f.SubmittedAt, &f.ReviewedAt); err != nil {
			return nil, fmt.Errorf("scanning deletion flag row: %w", err)
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

// FlagDecisionOutcome reports what DecideDeletionFlag did.
type FlagDecisionOutcome string

const (
	FlagDecisionApproved        FlagDecisionOutcome = "approved"
	FlagDecisionRejected        FlagDecisionOutcome = "rejected"
	FlagDecisionAlreadyApproved FlagDecisionOutcome = "already_approved"
	FlagDecisionAlreadyRejected FlagDecisionOutcome = "already_rejected"
	FlagDecisionNotFound        FlagDecisionOutcome = "not_found"
)

// DecisionResult carries the outcome plus how much was cleaned up on
// approval.
type DecisionResult struct {
	Outcome       FlagDecisionOutcome
	DeletedLinks  int64
	DeletedOffice bool
}

// DecideDeletionFlag applies the flag-decision state machine of §4.I:
// approve bans the office and cascades deletion of its links and row;
// reject just marks the flag. Transitions are evaluated inside one
// transaction to avoid racing a concurrent decision.
func (q *Queries) DecideDeletionFlag(ctx context.Context, flagID int64, approve bool) (DecisionResult, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return DecisionResult{}, fmt.Errorf("beginning flag decision transaction: %w", err)
	}
	defer tx.Rollback()

	var flag OfficeDeletionFlag
	err = tx.QueryRowContext(ctx, `
		SELECT id, osm_type, osm_id, status FROM office_deletion_flags WHERE id = $1 FOR UPDATE
	`, flagID).Scan(&flag.ID, &flag.OSMType, &flag.OSMID, &flag.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return DecisionResult{Outcome: FlagDecisionNotFound}, tx.Commit()
	}
	if err != nil {
		return DecisionResult{}, fmt.Errorf("loading deletion flag %d: %w", flagID, err)
	}

	switch flag.Status {
	case FlagStatusApproved:
		return DecisionResult{Outcome: FlagDecisionAlreadyApproved}, tx.Commit()
	case FlagStatusRejected:
		if approve {
			break // rejected -> approved is allowed
		}
		return DecisionResult{Outcome: FlagDecisionAlreadyRejected}, tx.Commit()
	}

	if !approve {
		if _, err := tx.ExecContext(ctx, `
			UPDATE office_deletion_flags SET status = 'rejected', reviewed_at = NOW() WHERE id = $1
		`, flagID); err != nil {
			return DecisionResult{}, fmt.Errorf("rejecting flag %d: %w", flagID, err)
		}
		return DecisionResult{Outcome: FlagDecisionRejected}, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE office_deletion_flags SET status = 'approved', reviewed_at = NOW() WHERE id = $1
	`, flagID); err != nil {
		return DecisionResult{}, fmt.Errorf("approving flag %d: %w", flagID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO banned_offices (osm_type, osm_id, approved_flag_id, approved_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (osm_type, osm_id) DO UPDATE SET approved_flag_id = EXCLUDED.approved_flag_id, approved_at = NOW()
	`, flag.OSMType, flag.OSMID, flagID); err != nil {
		return DecisionResult{}, fmt.Errorf("banning office %s/%d: %w", flag.OSMType, flag.OSMID, err)
	}

	linksRes, err := tx.ExecContext(ctx, `
		DELETE FROM center_office WHERE osm_type = $1 AND osm_id = $2
	`, flag.OSMType, flag.OSMID)
	if err != nil {
		return DecisionResult{}, fmt.Errorf("deleting links for %s/%d: %w", flag.OSMType, flag.OSMID, err)
	}
	deletedLinks, _ := linksRes.RowsAffected()

	officeRes, err := tx.ExecContext(ctx, `
		DELETE FROM offices WHERE osm_type = $1 AND osm_id = $2
	`, flag.OSMType, flag.OSMID)
	if err != nil {
		return DecisionResult{}, fmt.Errorf("deleting office %s/%d: %w", flag.OSMType, flag.OSMID, err)
	}
	deletedOffice, _ := officeRes.RowsAffected()

	return DecisionResult{
		Outcome:       FlagDecisionApproved,
		DeletedLinks:  deletedLinks,
		DeletedOffice: deletedOffice > 0,
	}, tx.Commit()
}
