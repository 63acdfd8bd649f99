package model

import (
	"database/sql"

	"github.com/username/fundrecon/backend/src/models"
)

// InsertReconRun appends one completed pass to the audit trail.
func InsertReconRun(db *sql.DB, run *models.ReconRun) error {
	query := `
	INSERT INTO recon_runs (run_id, domain, user_id, record_count, warning_count, net_difference, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(run.RunID, run.Domain, run.UserID, run.RecordCount, run.WarningCount, run.NetDifference, run.CreatedAt)
	return err
}

// GetReconRuns returns the most recent passes for a user, newest first.
func GetReconRuns(db *sql.DB, userID int64, limit int) ([]models.ReconRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
	SELECT run_id, domain, user_id, record_count, warning_count, net_difference, created_at
	FROM recon_runs
	WHERE user_id = ?
	ORDER BY created_at DESC, id DESC
	LIMIT ?`

	rows, err := db.Query(query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ReconRun
	for rows.Next() {
		var run models.ReconRun
		if err := rows.Scan(&run.RunID, &run.Domain, &run.UserID, &run.RecordCount, &run.WarningCount, &run.NetDifference, &run.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
