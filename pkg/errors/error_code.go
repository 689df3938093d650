package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 102
	ErrCodeInvalidPeriod        ErrorCode = 103
	ErrCodeMissingParameter     ErrorCode = 104
	ErrCodeInvalidVersion       ErrorCode = 105
	ErrCodeInvalidBarSequence   ErrorCode = 106

	// Data errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeIndexOutOfRange       ErrorCode = 203

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorNotReady      ErrorCode = 302

	// Strategy errors (400-499)
	ErrCodeStrategyNotFound     ErrorCode = 400
	ErrCodeStrategyConfigError  ErrorCode = 401
	ErrCodeStrategyRuntimeError ErrorCode = 402
	ErrCodeVersionMismatch      ErrorCode = 403

	// Order errors (500-599)
	ErrCodeOrderNotFound     ErrorCode = 500
	ErrCodeInvalidTransition ErrorCode = 501

	// Engine errors (600-699)
	ErrCodeEngineFinished     ErrorCode = 600
	ErrCodeEngineRunning      ErrorCode = 601
	ErrCodeEngineInitFailed   ErrorCode = 602
	ErrCodeEngineCancelled    ErrorCode = 603
	ErrCodeResultsWriteFailed ErrorCode = 604

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800
)
