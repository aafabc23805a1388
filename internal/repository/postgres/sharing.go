package postgres

import (
	"context"
	"fmt"

	"github.com/ignite/outreach-tracker/internal/domain"
)

// ApplySharing sets userID's combine_contacts flag and writes every record
// in recs against its Version, all in one transaction. A record whose
// version moved since it was read is left out of applied and counted in
// conflicts. Any other failure rolls back the flag and every write.
func (s *Store) ApplySharing(ctx context.Context, userID int64, enabled bool, recs []domain.OutreachRecord) ([]domain.OutreachRecord, int, error) {
	tx, err := s.OutreachRepo.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE outreach_users SET combine_contacts = $1 WHERE id = $2`, enabled, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("set combine contacts: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, 0, domain.ErrUserNotFound
	}

	applied := make([]domain.OutreachRecord, 0, len(recs))
	conflicts := 0
	for _, rec := range recs {
		ok, err := writeStatus(ctx, tx, &rec, rec.Version)
		if err != nil {
			return nil, 0, fmt.Errorf("update record %d: %w", rec.ID, err)
		}
		if !ok {
			conflicts++
			continue
		}
		applied = append(applied, rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit sharing: %w", err)
	}
	return applied, conflicts, nil
}
