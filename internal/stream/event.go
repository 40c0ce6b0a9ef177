package stream

// Separator between parent and child segments in a step name.
const NameSep = "|"

// Kind of a lifecycle event.
type Kind string

const (
	KindStepOpened   Kind = "step_opened"
	KindStepLogLine  Kind = "step_log_line"
	KindStepText     Kind = "step_set_text"
	KindStepSummary  Kind = "step_set_summary"
	KindStepLink     Kind = "step_set_link"
	KindStepProperty Kind = "step_set_property"
	KindStepClosed   Kind = "step_closed"
	KindRecipeEnded  Kind = "recipe_ended"
)

// Terminal status of a step or a whole run.
type Status string

const (
	StatusSuccess      Status = "success"
	StatusFailure      Status = "failure"
	StatusInfraFailure Status = "infra_failure"
	StatusWarning      Status = "warning"
	StatusException    Status = "exception"
	StatusCanceled     Status = "canceled"
)

// One record in the append-only event sequence.
//
// Only the fields relevant to the kind are populated; the zero values of
// the rest are omitted from serialized forms.
type Event struct {
	Kind Kind   `json:"kind"`
	Step string `json:"step,omitempty"` // Full hierarchical step name.

	// step_opened
	Cmd []string          `json:"cmd,omitempty"`
	Cwd string            `json:"cwd,omitempty"`
	Env map[string]string `json:"env,omitempty"`

	// step_log_line
	Log  string `json:"log,omitempty"`
	Line string `json:"line,omitempty"`

	// step_set_text, step_set_summary (markdown), recipe_ended summary
	Text string `json:"text,omitempty"`

	// step_set_link
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`

	// step_set_property
	Key   string `json:"key,omitempty"`
	Value any    `json:"value,omitempty"`

	// step_closed, recipe_ended
	Status  Status `json:"status,omitempty"`
	Details string `json:"details,omitempty"`
}

// Accepts the append-only event sequence.
//
// Emit is called in the order the engine observes events; implementations
// must not reorder. Close flushes any buffered state.
type Sink interface {
	Emit(Event) error
	Close() error
}
