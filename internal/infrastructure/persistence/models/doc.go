// Package models contains GORM persistence models for the cheques service.
// Domain types stay free of ORM tags; each model converts to and from its
// aggregate with ToDomain / FromDomain.
//
// Structure:
//   - base.go: shared ID, timestamp and version columns
//   - cheque.go: Multiple Cheque Entry documents and their cheque rows
//   - currency.go: Currency Exchange records
package models
