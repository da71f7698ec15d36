// Package mock simulates the vendor's identity, storage and contract APIs
// for local runs and end-to-end tests
package mock
