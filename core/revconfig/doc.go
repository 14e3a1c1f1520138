// Package revconfig builds the configuration handed to an API analyzer.
//
// Configuration comes from independent fragments (built-in defaults, the
// project settings file, accepted breaks, command-line flags). MergeAll
// combines them left to right: scalar settings take the last value that is
// set, while ignored breaks and package filters accumulate. Encode turns
// the merged fragment into the JSON document the analyzer reads back with
// Decode.
package revconfig
