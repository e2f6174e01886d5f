// Package models holds the GORM persistence models of the records service.
// Domain types in internal/domain stay free of ORM tags; each model carries
// its table mapping plus ToDomain and *FromDomain converters.
//
// The SQL migrations under migrations/ are the schema of record. AllModels
// exists for AutoMigrate in SQLite-backed tests only.
package models
