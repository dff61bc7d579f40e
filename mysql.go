//go:build !sqlite && !postgres

package main

import (
	"net/url"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// mysqlDefaults are added to the DSN unless the operator already set them.
var mysqlDefaults = []struct{ key, value string }{
	{"charset", "utf8mb4"},
	{"parseTime", "true"},
	{"loc", "Local"},
}

func newDialector(dsn string) gorm.Dialector {
	return mysql.New(mysql.Config{
		DSN: withMySQLParams(dsn),
	})
}

// withMySQLParams fills in mysqlDefaults and forces clientFoundRows, so that
// an UPDATE reports the rows it matched rather than the rows it changed.
// Relationships.Update and the follow state compare and set depend on that.
func withMySQLParams(dsn string) string {
	base, query, _ := strings.Cut(dsn, "?")
	have, _ := url.ParseQuery(query)

	var params []string
	if query != "" {
		params = append(params, query)
	}
	for _, d := range mysqlDefaults {
		if !have.Has(d.key) {
			params = append(params, d.key+"="+d.value)
		}
	}
	if have.Get("clientFoundRows") != "true" {
		// the driver takes the last value given
		params = append(params, "clientFoundRows=true")
	}
	return base + "?" + strings.Join(params, "&")
}

func configureDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return nil
}
