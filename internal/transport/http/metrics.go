package httptransport

import "expvar"

var (
	metricInteractionsTotal         = expvar.NewInt("interactions_total")
	metricInteractionsRejectedTotal = expvar.NewInt("interactions_rejected_total")

	metricCommandsDispatchedTotal = expvar.NewInt("commands_dispatched_total")
	metricCommandsFailedTotal     = expvar.NewInt("commands_failed_total")
	metricCommandReplyErrorsTotal = expvar.NewInt("command_reply_errors_total")
	metricCommandsInFlight        = expvar.NewInt("commands_in_flight")
)
