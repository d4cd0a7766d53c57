package site

import (
	"context"

	"docklite/internal/store"
)

// ReconcileReport summarizes one reconciliation sweep.
type ReconcileReport struct {
	SitesChecked int `json:"sites_checked"`
	Missing      int `json:"missing"`
	Updated      int `json:"updated"`
}

// Reconcile compares site rows against the live managed containers and
// repairs stale statuses. Rows whose container no longer exists are
// marked missing rather than deleted, so an operator can decide whether
// to re-provision or clean up. Run at startup and on demand.
func (o *Orchestrator) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	live, err := o.manager.Runtime().ListManaged(ctx, true)
	if err != nil {
		return nil, err
	}

	stateByID := make(map[string]string, len(live))
	for _, c := range live {
		stateByID[c.ID] = c.State
	}

	sites, err := o.store.ListSites()
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{SitesChecked: len(sites)}
	for _, s := range sites {
		want := s.Status

		switch {
		case s.ContainerID == nil:
			// Interrupted mid-provision; the container was never
			// attached.
			want = store.SiteStatusMissing
		default:
			state, ok := stateByID[*s.ContainerID]
			switch {
			case !ok:
				want = store.SiteStatusMissing
			case state == "running":
				want = store.SiteStatusRunning
			default:
				want = store.SiteStatusStopped
			}
		}

		if want == s.Status {
			continue
		}
		if err := o.store.UpdateSiteStatus(s.ID, want); err != nil {
			return report, err
		}
		report.Updated++
		if want == store.SiteStatusMissing {
			report.Missing++
			o.log.Warn("Site container missing", "domain", s.Domain)
		} else {
			o.log.Debug("Site status updated", "domain", s.Domain, "status", want)
		}
	}

	return report, nil
}
