package provisioning

import "fmt"

// State of a provisioning attempt.
type State string

const (
	StateRequested    State = "Requested"
	StateValidated    State = "Validated"
	StateMaterialized State = "Materialized"
	StateFinalized    State = "Finalized"
	StateRejected     State = "Rejected"
)

// Reason explains a rejected attempt.
type Reason string

const (
	ReasonMissingCompany            Reason = "MissingCompany"
	ReasonUnknownCompany            Reason = "UnknownCompany"
	ReasonFirstUserMustBeSuperAdmin Reason = "FirstUserMustBeSuperAdmin"
	ReasonDirectSignupNotAllowed    Reason = "DirectSignupNotAllowed"
	ReasonInsufficientPrivilege     Reason = "InsufficientPrivilege"
	ReasonInvalidRole               Reason = "InvalidRole"
	ReasonCannotGrantPrivilegedRole Reason = "CannotGrantPrivilegedRole"
)

var reasonMessages = map[Reason]string{
	ReasonMissingCompany:            "Company ID is required",
	ReasonUnknownCompany:            "Invalid company ID",
	ReasonFirstUserMustBeSuperAdmin: "The first user for a company must be a super_admin",
	ReasonDirectSignupNotAllowed:    "Direct sign-ups are not allowed. Please contact your administrator.",
	ReasonInsufficientPrivilege:     "Only admins or super admins can create new users",
	ReasonInvalidRole:               "Valid role (admin, employee, or super_admin) is required",
	ReasonCannotGrantPrivilegedRole: "Only super admins can create admin or super admin users",
}

// Message is the text shown to the person whose sign-up was rejected.
func (r Reason) Message() string {
	if m, ok := reasonMessages[r]; ok {
		return m
	}
	return string(r)
}

var transitions = map[State][]State{
	StateRequested:    {StateValidated, StateRejected},
	StateValidated:    {StateMaterialized, StateRejected},
	StateMaterialized: {StateFinalized},
}

// CanTransition reports whether an attempt may move from one state to another.
// Rejection is only possible before the identity is materialized.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Attempt records the progress of one provisioning request.
type Attempt struct {
	Request SignupRequest
	State   State
	Reason  Reason
	// History lists every state the attempt passed through, in order.
	History []State
}

func newAttempt(req SignupRequest) *Attempt {
	return &Attempt{Request: req, State: StateRequested, History: []State{StateRequested}}
}

func (a *Attempt) advance(to State) {
	if !CanTransition(a.State, to) {
		panic(fmt.Sprintf("provisioning: illegal transition %s -> %s", a.State, to))
	}
	a.State = to
	a.History = append(a.History, to)
}

func (a *Attempt) reject(reason Reason) {
	a.advance(StateRejected)
	a.Reason = reason
}

// resume records a state reached by an earlier attempt for the same identity.
func (a *Attempt) resume(s State) {
	a.State = s
	a.History = append(a.History, s)
}
