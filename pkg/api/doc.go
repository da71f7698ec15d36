// Package api defines the shared data types of the signature wizard
//
// This package contains the wizard state aggregate, step identifiers and
// statuses, the vendor request and response shapes, endpoint profiles, and
// the HTTP messages exchanged with the controller server
package api
