package config

type WorkerKeyStruct struct {
	SecurityReportQueue string
	ResponseAuditQueue  string
}

var WorkerKey = &WorkerKeyStruct{
	SecurityReportQueue: "security_report_queue",
	ResponseAuditQueue:  "response_audit_queue",
}
