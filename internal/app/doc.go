// Package app contains the write-side services: task lifecycle, device
// fleet management, and customer records. Services persist through the
// repository contracts in domain and emit realtime events only after the
// persistence write has succeeded.
package app
