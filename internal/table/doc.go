// Package table holds the in-memory tabular dataset the pipeline passes
// between stages, plus CSV read/write.
//
// Cells are stored as strings exactly as they appear in the source file;
// numeric stages parse on access via Float/Int, which report the column
// and row of a bad cell. Missing numeric values round-trip as empty
// strings (NaN in memory, empty cell on disk).
package table
