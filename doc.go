// Package relgraph models the foreign keys of a relational catalog as a graph
// of named associations.
//
// The graph package turns catalog records into belongs-to and has-many
// associations with stable names. Include expressions parsed by joinpath
// compile against it into aliased joins (dialect/sql/sqlgraph), and the
// orphan package checks every reference for rows that point nowhere.
//
// This package holds the error types shared by all of them.
package relgraph
