// Package breakfile reads and rewrites the accepted-breaks YAML document.
//
// Parsing accepts both the current schema and the deprecated one; callers
// only ever see the current shape. Rewrites never re-encode the whole file.
// Instead the byte range of each changed top-level value is located in the
// original text and replaced through textpatch, so comments, key order and
// indentation elsewhere in the file survive.
package breakfile
