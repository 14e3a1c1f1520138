// Package textpatch rewrites a text document by replacing half-open index
// ranges. It knows nothing about the grammar of the document: callers find
// the ranges, this package checks that they do not collide and splices the
// replacements in.
package textpatch
