// Package assets bundles files the server needs at runtime.
package assets

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed migrations/*.sql
var FS embed.FS

// Migrations returns the embedded migration file names in apply order.
func Migrations() ([]string, error) {
	names, err := fs.Glob(FS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// ReadMigration returns the body of one migration file.
func ReadMigration(name string) (string, error) {
	b, err := FS.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
