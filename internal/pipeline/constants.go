package pipeline

// Step names, used in error messages, logs and the step duration metric.
const (
	StepInit                   = "init_generation"
	StepAssignPersonas         = "assign_personas"
	StepSynthesizeAccounts     = "synthesize_accounts"
	StepSynthesizeTransactions = "synthesize_transactions"
	StepLoadSource             = "load_source"
	StepReplay                 = "replay"
	StepWriteOutputs           = "write_outputs"
	StepWriteMetrics           = "write_metrics"
	StepUpload                 = "upload"
)
