// Package domain contains the core entities of the control plane
// (customers, devices, tasks, operator users) together with the
// repository contracts the storage adapters implement. It has no
// dependencies on transport or persistence packages.
package domain
