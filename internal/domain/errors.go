package domain

import "errors"

// Domain errors
var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrRecordNotFound      = errors.New("record not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAcquisitionNotFound = errors.New("acquisition not found")
	ErrInvalidCredentials  = errors.New("correo o contraseña incorrectos")
	ErrEmailTaken          = errors.New("el correo ya está registrado")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidAmount       = errors.New("amount must be non-negative")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidDate         = errors.New("date must be YYYY-MM-DD")
	ErrLoadFailed          = errors.New("session load failed")
	ErrMigrationFailed     = errors.New("legacy transaction migration failed")
	ErrNoPendingDelete     = errors.New("no deletion is pending")
	ErrDeleteInProgress    = errors.New("a deletion is already executing")
	ErrNoSession           = errors.New("no active session")
	ErrNotSignedIn         = errors.New("user is not signed in")
)
