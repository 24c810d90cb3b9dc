package reconcile

import (
	"fmt"
	"sort"
	"strings"
)

type SweepInput struct {
	Issues           []TrackedIssue
	CurrentSummaries map[string]struct{}
	Policy           StatusPolicy
}

// PlanSweep closes every open tracked issue whose summary no longer shows up
// in the current findings. The sentinel and closed-family issues produce no
// decision at all.
func PlanSweep(in SweepInput) Plan {
	issues := make([]TrackedIssue, 0, len(in.Issues))
	for _, issue := range in.Issues {
		if in.Policy.IsSentinel(issue) || in.Policy.IsClosed(issue) {
			continue
		}
		issues = append(issues, issue)
	}
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Summary != issues[j].Summary {
			return issues[i].Summary < issues[j].Summary
		}
		return issues[i].Key < issues[j].Key
	})

	plan := Plan{Mode: ModeSweep, Decisions: make([]Decision, 0, len(issues))}
	for i := range issues {
		issue := issues[i]
		action := ActionNoop
		if _, present := in.CurrentSummaries[strings.TrimSpace(issue.Summary)]; !present {
			action = ActionClose
		}
		plan.Decisions = append(plan.Decisions, Decision{
			Action:  action,
			Summary: issue.Summary,
			Issue:   &issue,
		})
	}
	return plan
}

type PublishInput struct {
	Findings []Finding
	// Matches holds the tracker search candidates per finding summary.
	Matches map[string][]TrackedIssue
	Owners  OwnershipMap
	Policy  StatusPolicy
}

// PlanPublish decides CREATE, REOPEN or NOOP for every finding. Findings are
// expected to be filtered already; duplicates by summary collapse to one.
func PlanPublish(in PublishInput) Plan {
	plan := Plan{Mode: ModePublish}
	for _, finding := range UniqueBySummary(in.Findings) {
		summary := finding.Summary()
		matches := ExactMatches(in.Matches[summary], summary, in.Policy)

		switch len(matches) {
		case 0:
			plan.Decisions = append(plan.Decisions, Decision{
				Action:      ActionCreate,
				Summary:     summary,
				Description: finding.Description(),
				Owner:       finding.Owner,
			})
			plan.Decisions = append(plan.Decisions, assignFollowUp(summary, finding.Owner, in.Owners))
		case 1:
			issue := matches[0]
			action := ActionNoop
			if in.Policy.IsClosed(issue) {
				action = ActionReopen
			}
			plan.Decisions = append(plan.Decisions, Decision{
				Action:  action,
				Summary: summary,
				Owner:   finding.Owner,
				Issue:   &issue,
			})
		default:
			keys := make([]string, 0, len(matches))
			for _, m := range matches {
				keys = append(keys, m.Key)
			}
			plan.Decisions = append(plan.Decisions, Decision{
				Action:     ActionAmbiguous,
				Summary:    summary,
				Owner:      finding.Owner,
				Candidates: matches,
				Reason:     fmt.Errorf("%w: %s", ErrAmbiguousMatch, strings.Join(keys, ", ")),
			})
		}
	}
	return plan
}

func assignFollowUp(summary, owner string, owners OwnershipMap) Decision {
	identity, err := owners.Lookup(owner)
	if err != nil {
		return Decision{
			Action:  ActionSkipAssign,
			Summary: summary,
			Owner:   owner,
			Reason:  err,
		}
	}
	return Decision{
		Action:   ActionAssign,
		Summary:  summary,
		Owner:    owner,
		Assignee: identity,
	}
}

// ExactMatches keeps the candidates whose summary equals summary exactly,
// dropping the sentinel. Tracker text search is fuzzy; this is the real join.
func ExactMatches(candidates []TrackedIssue, summary string, policy StatusPolicy) []TrackedIssue {
	out := make([]TrackedIssue, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if policy.IsSentinel(c) || strings.TrimSpace(c.Summary) != summary {
			continue
		}
		if _, dup := seen[c.Key]; dup {
			continue
		}
		seen[c.Key] = struct{}{}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// UniqueBySummary returns findings sorted by summary, first occurrence wins.
func UniqueBySummary(findings []Finding) []Finding {
	seen := make(map[string]struct{}, len(findings))
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		s := f.Summary()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Summary() < out[j].Summary() })
	return out
}
