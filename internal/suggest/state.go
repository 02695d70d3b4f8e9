package suggest

// Status is the phase of the suggestion state machine.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusSearching Status = "searching"
	StatusResults   Status = "results"
	StatusEmpty     Status = "empty"
	StatusError     Status = "error"
)

// Mode tells which hosting API call produced the suggestions.
type Mode string

const (
	// ModeListing lists the owner's repositories, most recently updated first.
	ModeListing Mode = "listing"
	// ModeSearch runs an owner-scoped search for the query text.
	ModeSearch Mode = "search"
)

// EmptyReason qualifies StatusEmpty.
type EmptyReason string

const (
	// EmptyAllAdded: candidates came back but every one is already registered.
	EmptyAllAdded EmptyReason = "all_added"
	// EmptyNoMatches: a non-blank query matched nothing.
	EmptyNoMatches EmptyReason = "no_matches"
	// EmptyNoneListed: a listing returned nothing. The owner has no public
	// repositories; the dropdown is left as it was.
	EmptyNoneListed EmptyReason = "none_listed"
)

// ErrorKind qualifies StatusError.
type ErrorKind string

const (
	ErrorOwnerNotFound    ErrorKind = "owner_not_found"
	ErrorRateLimited      ErrorKind = "rate_limited"
	ErrorTransportFailure ErrorKind = "transport_failure"
)

var errorMessages = map[ErrorKind]string{
	ErrorOwnerNotFound:    "owner not found",
	ErrorRateLimited:      "API rate limit reached, try again later",
	ErrorTransportFailure: "failed to fetch repositories",
}

var emptyMessages = map[EmptyReason]string{
	EmptyAllAdded:   "all matching repositories are already added",
	EmptyNoMatches:  "no matches",
	EmptyNoneListed: "no repositories listed for this owner",
}

// State is a snapshot of the controller, safe to hand to a renderer.
type State struct {
	// Owner and Query are the raw, undebounced inputs.
	Owner string `json:"owner"`
	Query string `json:"query"`

	Status      Status      `json:"status"`
	Mode        Mode        `json:"mode,omitempty"`
	Suggestions []string    `json:"suggestions"`
	EmptyReason EmptyReason `json:"empty_reason,omitempty"`
	ErrorKind   ErrorKind   `json:"error_kind,omitempty"`
	Message     string      `json:"message,omitempty"`

	DropdownOpen bool `json:"dropdown_open"`
}

func (s State) clone() State {
	out := s
	out.Suggestions = append([]string{}, s.Suggestions...)
	return out
}

func (s *State) clearOutcome() {
	s.Suggestions = []string{}
	s.EmptyReason = ""
	s.ErrorKind = ""
	s.Message = ""
}
