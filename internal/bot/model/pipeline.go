package model

// Status reports how a handler disposed of a request.
type Status string

const (
	// StatusFinal is a terminal, successful reply.
	StatusFinal Status = "final"
	// StatusNoAnswer is terminal: no handler could produce a reply.
	StatusNoAnswer Status = "noAnswer"
	// StatusError is terminal: a handler or transport failure occurred.
	StatusError Status = "error"
	// StatusIntermediate passes a rewritten request on to the next handler.
	StatusIntermediate Status = "intermediate"
	// StatusIntermediateResume re-invokes the same handler with the
	// rewritten request before the chain moves on.
	StatusIntermediateResume Status = "intermediateHandleResume"
	// StatusSkipped means the handler declined to act; the request flows
	// to the next handler unchanged.
	StatusSkipped Status = "skipped"
)

// Terminal reports whether the status ends pipeline processing.
func (s Status) Terminal() bool {
	switch s {
	case StatusFinal, StatusNoAnswer, StatusError:
		return true
	}
	return false
}

// IntermediateClass reports whether the status rewrites the request for
// further processing. Skips are deliberately excluded: a skip must not
// alter conversation flow.
func (s Status) IntermediateClass() bool {
	return s == StatusIntermediate || s == StatusIntermediateResume
}

// Request is the unit of work flowing through the handler pipeline.
// It is replaced, never mutated in place, as it moves between handlers.
type Request struct {
	Message        string
	Context        History
	IsFirstMessage bool
}

// Response is what a handler produced for a single invocation.
type Response struct {
	Result       string
	AddToContext History
	Status       Status
	Data         map[string]string
}
