package persistence

import (
	"database/sql"
	"errors"
	"os"
	"strings"
)

type DatabaseConfig struct {
	DriverType string
	DriverArgs string
}

// ParseDatabaseConfigFromEnv reads DATABASE_DRIVER (default "mysql") and DATABASE_URL,
// e.g. "root:root@(127.0.0.1:3306)/warden?charset=utf8mb4&parseTime=True&loc=Local".
func ParseDatabaseConfigFromEnv() (*DatabaseConfig, error) {
	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		driver = "mysql"
	}
	args := os.Getenv("DATABASE_URL")
	if args == "" {
		return nil, errors.New("environment variable DATABASE_URL is not set")
	}
	return &DatabaseConfig{DriverType: driver, DriverArgs: args}, nil
}

// PrepareMysqlDatabase creates the database named in the dsn when it does not exist yet.
func PrepareMysqlDatabase(driverArgs string) error {
	serverArgs, databaseName, err := splitMysqlDatabaseName(driverArgs)
	if err != nil {
		return err
	}
	db, err := sql.Open("mysql", serverArgs)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec("CREATE DATABASE IF NOT EXISTS `" + databaseName + "` CHARACTER SET utf8mb4")
	return err
}

func splitMysqlDatabaseName(driverArgs string) (serverArgs string, databaseName string, err error) {
	paramsIdx := strings.Index(driverArgs, "?")
	params := ""
	base := driverArgs
	if paramsIdx >= 0 {
		base = driverArgs[0:paramsIdx]
		params = driverArgs[paramsIdx:]
	}
	slashIdx := strings.LastIndex(base, "/")
	if slashIdx < 0 || slashIdx == len(base)-1 {
		return "", "", errors.New("database name is missing in dsn")
	}
	return base[0:slashIdx+1] + params, base[slashIdx+1:], nil
}
