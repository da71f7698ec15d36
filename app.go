// Package signwiz drives a document e-signature workflow against a vendor
// REST API, one step at a time or unattended
package signwiz

const (
	// Name is the service name reported in logs
	Name = "signwiz"

	// Version is the release version reported in logs and by the CLI
	Version = "0.3.0"
)
