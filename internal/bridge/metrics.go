package bridge

import "expvar"

var (
	metricRelaySentTotal       = expvar.NewInt("bridge_relay_sent_total")
	metricRelayFailedTotal     = expvar.NewInt("bridge_relay_failed_total")
	metricRelayDroppedTotal    = expvar.NewInt("bridge_relay_dropped_total")
	metricRelayDuplicateTotal  = expvar.NewInt("bridge_relay_duplicate_total")
	metricHintsSuppressedTotal = expvar.NewInt("bridge_hints_suppressed_total")
	metricReconcileItemsTotal  = expvar.NewInt("bridge_reconcile_items_total")
	metricConnectFailedTotal   = expvar.NewInt("bridge_connect_failed_total")
	metricPersistFailedTotal   = expvar.NewInt("bridge_persist_failed_total")
	metricSessionsLive         = expvar.NewInt("bridge_sessions_live")
	metricSessionsClosedTotal  = expvar.NewInt("bridge_sessions_closed_total")
)
