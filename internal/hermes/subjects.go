package hermes

const (
	SubjectSessionRequest = "elicit.session.request"
	SubjectSessionsAll    = "elicit.session.>"

	StreamName   = "ELICIT_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func SubjectSessionStarted(id string) string   { return "elicit.session." + id + ".started" }
func SubjectSessionQuery(id string) string     { return "elicit.session." + id + ".query" }
func SubjectSessionAnswer(id string) string    { return "elicit.session." + id + ".answer" }
func SubjectSessionConverged(id string) string { return "elicit.session." + id + ".converged" }
func SubjectSessionFailed(id string) string    { return "elicit.session." + id + ".failed" }
