// Package tabular flattens decoded JSON documents into related flat tables.
//
// A document's root items become rows of a table named after the root key.
// Nested objects become dotted columns (parent.child). List fields named by
// an expand rule move into a child table {root}_{field} that carries the
// parent's identifier; everything else that is still composite is written
// as canonical JSON text. Columns in which most string values are dates are
// rewritten to YYYY-MM-DD.
//
// Report documents (sections of rows of cells) have their own flattener,
// FlattenReport, which produces a single table per report resource.
package tabular
