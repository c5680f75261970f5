package driver

import (
	_ "github.com/go-sql-driver/mysql"
)

type MySQLDriver struct {
	sqlSource
}

func NewMySQLDriver(dsn string) *MySQLDriver {
	return &MySQLDriver{sqlSource{driverName: "mysql", dsn: dsn}}
}

func (d *MySQLDriver) Name() string {
	return "mysql"
}
