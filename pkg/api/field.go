package api

import "slices"

// Field names a top-level scalar of WizardState that SetField may replace
type Field string

const (
	FieldEnvironment    Field = "environment"
	FieldClientID       Field = "clientId"
	FieldClientSecret   Field = "clientSecret"
	FieldFile           Field = "file"
	FieldFileName       Field = "fileName"
	FieldToken          Field = "token"
	FieldUploadURL      Field = "uploadUrl"
	FieldFileID         Field = "fileId"
	FieldDocumentID     Field = "documentId"
	FieldEmails         Field = "emails"
	FieldTitle          Field = "title"
	FieldSignatureClass Field = "signatureClass"
	FieldAction         Field = "action"
	FieldAutoRun        Field = "autoRun"
	FieldAutoDelayMs    Field = "autoDelayMs"
)

// Fields lists every settable field
var Fields = []Field{
	FieldEnvironment, FieldClientID, FieldClientSecret, FieldFile,
	FieldFileName, FieldToken, FieldUploadURL, FieldFileID, FieldDocumentID,
	FieldEmails, FieldTitle, FieldSignatureClass, FieldAction, FieldAutoRun,
	FieldAutoDelayMs,
}

// IsKnown reports whether the field exists on WizardState
func (f Field) IsKnown() bool {
	return slices.Contains(Fields, f)
}
