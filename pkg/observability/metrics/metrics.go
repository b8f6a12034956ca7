package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	triageCritical       atomic.Int64
	triageUrgent         atomic.Int64
	referralsCreated     atomic.Int64
	referralsAutoCreated atomic.Int64
	referralsSent        atomic.Int64
	referralsAccepted    atomic.Int64
	referralsTransferred atomic.Int64
	subscribersLive      atomic.Int64
	eventsDelivered      atomic.Int64
	eventsDropped        atomic.Int64
)

func ObserveTriage(critical bool) {
	if critical {
		triageCritical.Add(1)
	} else {
		triageUrgent.Add(1)
	}
}

func ObserveReferralCreated(auto bool) {
	referralsCreated.Add(1)
	if auto {
		referralsAutoCreated.Add(1)
	}
}

func ObserveReferralSent()        { referralsSent.Add(1) }
func ObserveReferralAccepted()    { referralsAccepted.Add(1) }
func ObserveReferralTransferred() { referralsTransferred.Add(1) }

func ObserveSubscribers(delta int) { subscribersLive.Add(int64(delta)) }
func ObserveDelivered(n int)       { eventsDelivered.Add(int64(n)) }
func ObserveDropped(n int)         { eventsDropped.Add(int64(n)) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP santerelay_triage_critical_total Number of assessments scored CRITICAL.\n")
	fmt.Fprintf(w, "# TYPE santerelay_triage_critical_total counter\n")
	fmt.Fprintf(w, "santerelay_triage_critical_total %d\n", triageCritical.Load())

	fmt.Fprintf(w, "# HELP santerelay_triage_urgent_total Number of assessments scored URGENT.\n")
	fmt.Fprintf(w, "# TYPE santerelay_triage_urgent_total counter\n")
	fmt.Fprintf(w, "santerelay_triage_urgent_total %d\n", triageUrgent.Load())

	fmt.Fprintf(w, "# HELP santerelay_referrals_created_total Number of referrals created.\n")
	fmt.Fprintf(w, "# TYPE santerelay_referrals_created_total counter\n")
	fmt.Fprintf(w, "santerelay_referrals_created_total %d\n", referralsCreated.Load())

	fmt.Fprintf(w, "# HELP santerelay_referrals_auto_created_total Number of referrals opened by auto-escalation.\n")
	fmt.Fprintf(w, "# TYPE santerelay_referrals_auto_created_total counter\n")
	fmt.Fprintf(w, "santerelay_referrals_auto_created_total %d\n", referralsAutoCreated.Load())

	fmt.Fprintf(w, "# HELP santerelay_referrals_sent_total Number of referrals marked SENT.\n")
	fmt.Fprintf(w, "# TYPE santerelay_referrals_sent_total counter\n")
	fmt.Fprintf(w, "santerelay_referrals_sent_total %d\n", referralsSent.Load())

	fmt.Fprintf(w, "# HELP santerelay_referrals_accepted_total Number of referrals accepted by a hospital.\n")
	fmt.Fprintf(w, "# TYPE santerelay_referrals_accepted_total counter\n")
	fmt.Fprintf(w, "santerelay_referrals_accepted_total %d\n", referralsAccepted.Load())

	fmt.Fprintf(w, "# HELP santerelay_referrals_transferred_total Number of completed transfers.\n")
	fmt.Fprintf(w, "# TYPE santerelay_referrals_transferred_total counter\n")
	fmt.Fprintf(w, "santerelay_referrals_transferred_total %d\n", referralsTransferred.Load())

	fmt.Fprintf(w, "# HELP santerelay_subscribers_live Number of live alert subscribers.\n")
	fmt.Fprintf(w, "# TYPE santerelay_subscribers_live gauge\n")
	fmt.Fprintf(w, "santerelay_subscribers_live %d\n", subscribersLive.Load())

	fmt.Fprintf(w, "# HELP santerelay_events_delivered_total Number of lifecycle events handed to subscriber queues.\n")
	fmt.Fprintf(w, "# TYPE santerelay_events_delivered_total counter\n")
	fmt.Fprintf(w, "santerelay_events_delivered_total %d\n", eventsDelivered.Load())

	fmt.Fprintf(w, "# HELP santerelay_events_dropped_total Number of deliveries dropped because a subscriber stalled.\n")
	fmt.Fprintf(w, "# TYPE santerelay_events_dropped_total counter\n")
	fmt.Fprintf(w, "santerelay_events_dropped_total %d\n", eventsDropped.Load())
}
