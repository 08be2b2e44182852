package payroll

import "errors"

var (
	ErrRunNotFound                = errors.New("payroll run not found")
	ErrRunAlreadyExists           = errors.New("a payroll run already exists for this week")
	ErrRunNotValidated            = errors.New("Run must be validated before approval")
	ErrRunNotApproved             = errors.New("Run must be approved before payment")
	ErrInvalidTransition          = errors.New("Run status does not allow this operation")
	ErrProvisionalNotAcknowledged = errors.New("Run is provisional: degraded tax withholding must be acknowledged before approval")
	ErrConcurrentModification     = errors.New("payroll run was modified concurrently")
	ErrRunNotExportable           = errors.New("Run must be approved or paid before export")
	ErrExportNotFound             = errors.New("export not found")
	ErrExportFailed               = errors.New("export failed")
)
