package service

// Kind classifies a service error for transport mapping.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindForbidden
	KindConflict
)

// Error is a client-facing failure with a machine-readable code. Wrap a
// sentinel with fmt.Errorf("%w: ...") to add detail.
type Error struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

var (
	ErrValidation = newError(KindValidation, "VALIDATION_FAILED", "validation failed")
	ErrForbidden  = newError(KindForbidden, "FORBIDDEN", "not authorized to score this match")

	ErrMatchNotFound      = newError(KindNotFound, "MATCH_NOT_FOUND", "match not found")
	ErrInningsNotFound    = newError(KindNotFound, "INNINGS_NOT_FOUND", "innings not found")
	ErrTeamNotFound       = newError(KindNotFound, "TEAM_NOT_FOUND", "team not found")
	ErrPlayerNotFound     = newError(KindNotFound, "PLAYER_NOT_FOUND", "player not found")
	ErrTournamentNotFound = newError(KindNotFound, "TOURNAMENT_NOT_FOUND", "tournament not found")
	ErrNodeNotFound       = newError(KindNotFound, "BRACKET_NODE_NOT_FOUND", "bracket node not found")
	ErrEntrantNotFound    = newError(KindNotFound, "TOURNAMENT_TEAM_NOT_FOUND", "tournament team not found")

	ErrMatchNotLive         = newError(KindValidation, "MATCH_NOT_LIVE", "match is not live")
	ErrInningsNotInProgress = newError(KindValidation, "INNINGS_NOT_IN_PROGRESS", "innings is not in progress")
	ErrInningsAlreadyEnded  = newError(KindValidation, "INNINGS_ALREADY_ENDED", "innings already ended")
	ErrFirstInningsOpen     = newError(KindValidation, "FIRST_INNINGS_NOT_COMPLETED", "first innings is not completed")
	ErrNothingToUndo        = newError(KindValidation, "NOTHING_TO_UNDO", "no delivery to undo")
	ErrInningsStillActive   = newError(KindValidation, "INNINGS_IN_PROGRESS", "an innings is still in progress")
	ErrNoInnings            = newError(KindValidation, "NO_INNINGS", "match has no innings")
	ErrNodeNotReady         = newError(KindValidation, "BRACKET_NODE_NOT_READY", "bracket node cannot start")

	ErrBallAlreadyExists    = newError(KindConflict, "BALL_ALREADY_EXISTS", "ball already recorded")
	ErrInvalidSequence      = newError(KindConflict, "INVALID_SEQUENCE", "ball is out of sequence")
	ErrInningsAlreadyActive = newError(KindConflict, "INNINGS_ALREADY_IN_PROGRESS", "another innings is in progress")
	ErrInningsExists        = newError(KindConflict, "INNINGS_EXISTS", "innings already started")
	ErrMatchCompleted       = newError(KindConflict, "MATCH_ALREADY_COMPLETED", "match already finalized")
	ErrBracketExists        = newError(KindConflict, "BRACKET_EXISTS", "bracket already generated")
	ErrEntrantBound         = newError(KindConflict, "TOURNAMENT_TEAM_BOUND", "tournament team is already bound to a team")
	ErrEmailTaken           = newError(KindConflict, "EMAIL_TAKEN", "email is already registered")
)
