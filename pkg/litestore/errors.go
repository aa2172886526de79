package litestore

import "github.com/hlop3z/litestore/internal/alerr"

// Error is the coded error every litestore call returns.
type Error = alerr.Error

// Code is a stable error code such as "E7001".
type Code = alerr.Code

// Error codes.
const (
	ErrSchemaDeclaration   = alerr.ErrSchemaDeclaration
	ErrDuplicatePrimaryKey = alerr.ErrDuplicatePrimaryKey
	ErrForeignKeyTarget    = alerr.ErrForeignKeyTarget
	ErrMigrationFailed     = alerr.ErrMigrationFailed
	ErrAmbiguousRename     = alerr.ErrAmbiguousRename
	ErrSchemaNotReady      = alerr.ErrSchemaNotReady
	ErrEngineExecution     = alerr.ErrEngineExecution
	ErrConnection          = alerr.ErrConnection
	ErrHandleClosed        = alerr.ErrHandleClosed
	ErrInvalidClause       = alerr.ErrInvalidClause
	ErrIncompleteStatement = alerr.ErrIncompleteStatement
	ErrIntrospection       = alerr.ErrIntrospection
	ErrMissingPrimaryKey   = alerr.ErrMissingPrimaryKey
	ErrHeterogeneousBatch  = alerr.ErrHeterogeneousBatch
	ErrRecordNotFound      = alerr.ErrRecordNotFound
	ErrUnknownModel        = alerr.ErrUnknownModel
	ErrInternal            = alerr.EInternalError
)

// ErrorCode returns the code of the outermost litestore error in err's chain,
// or "" when there is none.
func ErrorCode(err error) Code {
	return alerr.GetErrorCode(err)
}

// IsCode reports whether any error in err's chain has the given code.
func IsCode(err error, code Code) bool {
	return alerr.Is(err, code)
}

// FailedStep returns the index of the migration step that failed.
// Steps before it stay applied.
func FailedStep(err error) (int, bool) {
	v, ok := alerr.Context(err, "step")
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok
}
