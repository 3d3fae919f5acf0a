// Package known wires the built-in drivers into a registry. It exists as a
// separate package so that the driver contracts never import engine
// packages; only the wiring layer (and the registry fallback) pulls the
// engines in.
package known

import (
	"github.com/sqldeck/sqldeck/internal/driver"
	"github.com/sqldeck/sqldeck/internal/driver/mysql"
	"github.com/sqldeck/sqldeck/internal/driver/postgres"
	"github.com/sqldeck/sqldeck/internal/driver/sqlite"
)

// RegisterAll registers every built-in driver with reg. It is the default
// known-drivers hook: wiring code passes it to Registry.SetKnownDrivers so
// a session's connect fallback can populate an empty registry on demand.
func RegisterAll(reg *driver.Registry) {
	reg.Register(postgres.New())
	reg.Register(mysql.New())
	reg.Register(sqlite.New())
}
