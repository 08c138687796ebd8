package usecase

import "errors"

const (
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInvalidPayload    = "INVALID_PAYLOAD"
	CodeValidation        = "VALIDATION_ERROR"
	CodeLockTimeout       = "LOCK_TIMEOUT"
	CodeArchiveIncomplete = "ARCHIVE_INCOMPLETE"
	CodeCRMUnavailable    = "CRM_UNAVAILABLE"
	CodeStoreError        = "STORE_ERROR"
)

// DomainError é erro do chamador: credencial, payload, validação.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError é erro de infraestrutura (store, lock, CRM externo).
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

// ErrorCode devolve o código do erro tipado, ou "" para erros comuns.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	var te *TechnicalError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// IsLockError indica que o lock não foi obtido dentro do prazo.
func IsLockError(err error) bool {
	return ErrorCode(err) == CodeLockTimeout
}

func lockError(key string, err error) error {
	return &TechnicalError{Code: CodeLockTimeout, Message: "não foi possível obter o lock " + key, Err: err}
}

func storeError(msg string, err error) error {
	return &TechnicalError{Code: CodeStoreError, Message: msg, Err: err}
}
