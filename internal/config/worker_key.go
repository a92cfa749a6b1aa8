package config

type WorkerKeyStruct struct {
	// ReconcileCheckoutsQueue receives ids of checkouts whose entitlement failed.
	ReconcileCheckoutsQueue string
	// ReconcileCheckoutsDelayed holds ids waiting out their backoff, scored by due time.
	ReconcileCheckoutsDelayed string
}

var WorkerKey = &WorkerKeyStruct{
	ReconcileCheckoutsQueue:   "reconcile_checkouts_queue",
	ReconcileCheckoutsDelayed: "reconcile_checkouts_delayed",
}
