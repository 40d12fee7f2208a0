package postgres

import (
	"gorm.io/gorm/clause"
)

// onConflictUpdate makes Record's batch insert an upsert on the
// (backup_id, path) unique index, so a retried file_history_add for the
// same path overwrites rather than errors.
func onConflictUpdate() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "backup_id"}, {Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"node", "size", "mtime", "is_dir"}),
	}
}
