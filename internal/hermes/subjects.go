package hermes

const (
	SubjectRunRequest = "elicit.run.request"
	SubjectStats      = "elicit.stats"

	StreamName   = "ELICIT_EVENTS"
	StreamMaxAge = "168h" // 7 days
)

// Run lifecycle subjects
func SubjectRunCreated(runID string) string   { return "elicit.run." + runID + ".created" }
func SubjectRunStarted(runID string) string   { return "elicit.run." + runID + ".started" }
func SubjectRunQuery(runID string) string     { return "elicit.run." + runID + ".query" }
func SubjectRunCompleted(runID string) string { return "elicit.run." + runID + ".completed" }
func SubjectRunFailed(runID string) string    { return "elicit.run." + runID + ".failed" }

// SubjectOracleQuery is the request/reply subject a remote preference oracle
// listens on for one run.
func SubjectOracleQuery(runID string) string { return "elicit.oracle." + runID + ".query" }
