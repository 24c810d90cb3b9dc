package model

type Run struct {
	RunID      string `gorm:"column:run_id;type:text;primaryKey"`
	Mode       string `gorm:"column:mode;type:text;not null;index"`
	DryRun     bool   `gorm:"column:dry_run;not null;default:0"`
	StartedAt  string `gorm:"column:started_at;type:text;not null;index"`
	FinishedAt string `gorm:"column:finished_at;type:text;not null"`
	Findings   int    `gorm:"column:findings;not null;default:0"`
	Issues     int    `gorm:"column:issues;not null;default:0"`
	Applied    int    `gorm:"column:applied;not null;default:0"`
	Skipped    int    `gorm:"column:skipped;not null;default:0"`
	Failed     int    `gorm:"column:failed;not null;default:0"`
	Error      string `gorm:"column:error;type:text;not null;default:''"`
}

func (Run) TableName() string {
	return "runs"
}
