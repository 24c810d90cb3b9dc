package reconcile

type Mode string

const (
	ModeSweep   Mode = "sweep"
	ModePublish Mode = "publish"
)

type ActionKind string

const (
	ActionCreate     ActionKind = "CREATE"
	ActionAssign     ActionKind = "ASSIGN"
	ActionSkipAssign ActionKind = "SKIP_ASSIGN"
	ActionReopen     ActionKind = "REOPEN"
	ActionNoop       ActionKind = "NOOP"
	ActionClose      ActionKind = "CLOSE"
	ActionAmbiguous  ActionKind = "AMBIGUOUS"
)

// Mutates reports whether applying the action changes the tracker.
func (k ActionKind) Mutates() bool {
	switch k {
	case ActionCreate, ActionAssign, ActionReopen, ActionClose:
		return true
	default:
		return false
	}
}

// Decision is one engine verdict. ASSIGN and SKIP_ASSIGN always follow the
// CREATE with the same Summary in a plan.
type Decision struct {
	Action      ActionKind
	Summary     string
	Description string
	Owner       string
	Assignee    string
	Issue       *TrackedIssue
	Candidates  []TrackedIssue
	Reason      error
}

func (d Decision) IssueKey() string {
	if d.Issue == nil {
		return ""
	}
	return d.Issue.Key
}

type Plan struct {
	Mode      Mode
	Decisions []Decision
}

func (p Plan) Count(kind ActionKind) int {
	n := 0
	for _, d := range p.Decisions {
		if d.Action == kind {
			n++
		}
	}
	return n
}

func (p Plan) Mutations() int {
	n := 0
	for _, d := range p.Decisions {
		if d.Action.Mutates() {
			n++
		}
	}
	return n
}
