// Package doctor runs environment health checks before a refinery run.
package doctor

import "context"

// Status grades a single check item.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

func (s Status) severity() int {
	switch s {
	case StatusWarn:
		return 1
	case StatusFail:
		return 2
	default:
		return 0
	}
}

// CheckItem is one line of a check. Fixable items are ones `refinery init`
// can repair.
type CheckItem struct {
	Label   string `json:"label"`
	Status  Status `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Fixable bool   `json:"fixable,omitempty"`
}

// Result groups the items reported by one check.
type Result struct {
	Name  string      `json:"name"`
	Items []CheckItem `json:"items"`
}

// Status is the worst status among the items.
func (r Result) Status() Status {
	worst := StatusPass
	for _, item := range r.Items {
		if item.Status.severity() > worst.severity() {
			worst = item.Status
		}
	}
	return worst
}

type Check interface {
	Name() string
	Run(ctx context.Context) Result
}

// Report is the tally of a doctor run.
type Report struct {
	Checks  []Result `json:"checks"`
	Passed  int      `json:"passed"`
	Warned  int      `json:"warned"`
	Failed  int      `json:"failed"`
	Fixable int      `json:"fixable"`
}

// Healthy reports whether no item failed.
func (r Report) Healthy() bool { return r.Failed == 0 }

// Run executes checks in order. Once ctx is done the remaining checks are
// reported as failed without running.
func Run(ctx context.Context, checks []Check) Report {
	var rep Report
	for _, check := range checks {
		var res Result
		if err := ctx.Err(); err != nil {
			res = Result{Name: check.Name(), Items: []CheckItem{
				{Label: "Not run", Status: StatusFail, Detail: err.Error()},
			}}
		} else {
			res = check.Run(ctx)
		}
		rep.add(res)
	}
	return rep
}

func (r *Report) add(res Result) {
	r.Checks = append(r.Checks, res)
	for _, item := range res.Items {
		switch item.Status {
		case StatusPass:
			r.Passed++
		case StatusWarn:
			r.Warned++
		case StatusFail:
			r.Failed++
		}
		if item.Fixable && item.Status != StatusPass {
			r.Fixable++
		}
	}
}
