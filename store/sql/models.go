package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

const sessionActivityTable = "session_activity"

type sessionActivityRecord struct {
	bun.BaseModel `bun:"table:session_activity,alias:sa"`

	ID          string         `bun:"id,pk"`
	SubjectID   string         `bun:"subject_id,notnull"`
	Action      string         `bun:"action,notnull"`
	Description string         `bun:"description,notnull"`
	Status      string         `bun:"status,notnull"`
	Metadata    map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
