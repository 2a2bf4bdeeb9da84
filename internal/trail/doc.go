// Package trail reconstructs and renders the lineage of an audited value.
//
// Starting from a terminal id, a walk looks records up in a Source and
// follows their parent ids. Three renderings are supported:
//
//   - Table: flattened and deduplicated, one block of rows per distinct id
//   - Tree: nested, 4 spaces per depth, shared dependencies repeated
//   - Expression: the terminal record alone, no traversal
//
// Lookups that miss (evicted or never registered ids) are never errors. The
// table substitutes a placeholder that is left out of the output, the tree
// prints "unable to find <id>", and expression mode reports false.
//
// A parent equal to the record's own id is a terminal case. Each id is
// expanded at most once per table walk and never re-entered while already on
// the current tree path, so the work is bounded by the distinct ids and
// edges reachable from the terminal.
package trail
