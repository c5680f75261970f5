package driver

import (
	_ "github.com/lib/pq"
)

type PostgresDriver struct {
	sqlSource
}

func NewPostgresDriver(dsn string) *PostgresDriver {
	return &PostgresDriver{sqlSource{driverName: "postgres", dsn: dsn, dollar: true}}
}

func (d *PostgresDriver) Name() string {
	return "postgres"
}
