// Package storage provides audit storage backends: an in-memory store for
// tests and single-process use, and a SQLite store that runs on either the
// pure-Go modernc driver or the cgo mattn driver.
package storage
