package refinery

import (
	"time"

	"github.com/colonyops/refinery/internal/core/review"
)

// Observer receives counters from the controller. The metrics package
// provides the Prometheus-backed implementation.
type Observer interface {
	ObserveReview(d review.Decision)
	ObserveRepair(ok bool)
	ObserveVerify(v review.Verdict)
	ObserveFile(o Outcome, rounds int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveReview(review.Decision)            {}
func (nopObserver) ObserveRepair(bool)                       {}
func (nopObserver) ObserveVerify(review.Verdict)             {}
func (nopObserver) ObserveFile(Outcome, int, time.Duration) {}
