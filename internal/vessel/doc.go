// Package vessel defines vesselwatch's track model, the in-memory Registry
// that owns track lifetime, and the Store interface persistence backends
// implement (memstore, pgstore, sqlitestore).
package vessel
