package model

type RunAction struct {
	RunActionID uint64 `gorm:"column:run_action_id;primaryKey;autoIncrement"`
	RunID       string `gorm:"column:run_id;type:text;not null;uniqueIndex:idx_run_actions_run_seq"`
	Seq         int    `gorm:"column:seq;not null;uniqueIndex:idx_run_actions_run_seq"`
	Action      string `gorm:"column:action;type:text;not null"`
	Status      string `gorm:"column:status;type:text;not null"`
	Summary     string `gorm:"column:summary;type:text;not null;index"`
	IssueKey    string `gorm:"column:issue_key;type:text;not null;default:''"`
	Owner       string `gorm:"column:owner;type:text;not null;default:''"`
	Assignee    string `gorm:"column:assignee;type:text;not null;default:''"`
	Detail      string `gorm:"column:detail;type:text;not null;default:''"`
	Attempts    int    `gorm:"column:attempts;not null;default:0"`
}

func (RunAction) TableName() string {
	return "run_actions"
}

// All lists the ledger tables for AutoMigrate.
func All() []any {
	return []any{&Run{}, &RunAction{}}
}
