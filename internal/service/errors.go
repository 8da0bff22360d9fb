package service

type ErrorCode string

const (
	ErrorCodeTeamExists        ErrorCode = "TEAM_EXISTS"
	ErrorCodeUserExists        ErrorCode = "USER_EXISTS"
	ErrorCodeUserInTeam        ErrorCode = "USER_IN_TEAM"
	ErrorCodeTeamFull          ErrorCode = "TEAM_FULL"
	ErrorCodeCapacityExceeded  ErrorCode = "CAPACITY_EXCEEDED"
	ErrorCodeConflictingInvite ErrorCode = "CONFLICTING_INVITE"
	ErrorCodeAlreadyInvited    ErrorCode = "ALREADY_INVITED"
	ErrorCodeConflict          ErrorCode = "CONFLICT"
	ErrorCodeNotInvited        ErrorCode = "NOT_INVITED"
	ErrorCodeSelfInvite        ErrorCode = "SELF_INVITE"
	ErrorCodeProfileIncomplete ErrorCode = "PROFILE_INCOMPLETE"
	ErrorCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrorCodeTeamNotFound      ErrorCode = "TEAM_NOT_FOUND"
	ErrorCodeUserNotFound      ErrorCode = "USER_NOT_FOUND"
	ErrorCodeNotAMember        ErrorCode = "NOT_A_MEMBER"
	ErrorCodeNoMatches         ErrorCode = "NO_MATCHES"
	ErrorCodeInvalidUser       ErrorCode = "INVALID_USER"
	ErrorCodeInvalidAuth       ErrorCode = "INVALID_AUTH"
	ErrorCodeUpstream          ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrorCodeInvalidBody       ErrorCode = "INVALID_BODY"
	ErrorCodeUnspecified       ErrorCode = "UNSPECIFIED"
)

// ErrorKind groups codes into the categories callers branch on.
type ErrorKind string

const (
	KindNotFound            ErrorKind = "NotFound"
	KindConflict            ErrorKind = "Conflict"
	KindInvalidState        ErrorKind = "InvalidState"
	KindUpstreamUnavailable ErrorKind = "UpstreamUnavailable"
	KindValidation          ErrorKind = "ValidationError"
	KindUnauthorized        ErrorKind = "Unauthorized"
	KindInternal            ErrorKind = "Internal"
)

var codeKinds = map[ErrorCode]ErrorKind{
	ErrorCodeTeamExists:        KindConflict,
	ErrorCodeUserExists:        KindConflict,
	ErrorCodeUserInTeam:        KindConflict,
	ErrorCodeTeamFull:          KindConflict,
	ErrorCodeCapacityExceeded:  KindConflict,
	ErrorCodeConflictingInvite: KindConflict,
	ErrorCodeAlreadyInvited:    KindConflict,
	ErrorCodeConflict:          KindConflict,
	ErrorCodeNotInvited:        KindInvalidState,
	ErrorCodeSelfInvite:        KindInvalidState,
	ErrorCodeProfileIncomplete: KindInvalidState,
	ErrorCodeNotFound:          KindNotFound,
	ErrorCodeTeamNotFound:      KindNotFound,
	ErrorCodeUserNotFound:      KindNotFound,
	ErrorCodeNotAMember:        KindNotFound,
	ErrorCodeNoMatches:         KindNotFound,
	ErrorCodeInvalidUser:       KindNotFound,
	ErrorCodeInvalidAuth:       KindUnauthorized,
	ErrorCodeUpstream:          KindUpstreamUnavailable,
	ErrorCodeInvalidBody:       KindValidation,
}

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Kind() ErrorKind {
	if k, ok := codeKinds[e.Code]; ok {
		return k
	}
	return KindInternal
}
