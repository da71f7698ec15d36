// Package util provides small generic helpers shared by the wizard, the
// HTTP controller, and the mock vendor API
package util
