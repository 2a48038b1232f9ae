package email

const (
	subjectLeadAssignedFmt    = "New lead assigned: %s"
	subjectImportCompletedFmt = "Import finished: %s"
)
