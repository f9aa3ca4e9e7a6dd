// Package preflight provides readiness checks for the binaries and
// filesystem paths hardsub depends on.
//
// These checks run in two contexts:
//   - The extraction pipeline calls RunAll before sampling frames so a
//     missing directory fails fast instead of after a long download.
//   - The CLI "hardsub doctor" command renders RunAll and CheckSystemDeps
//     as a table.
package preflight
