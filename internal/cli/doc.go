// Package cli provides the interactive winotp command-line client.
//
// It opens the engine locally (see package core), starts the background time
// synchronizer and runs a REPL over the token collection. On a protected
// store the user is asked for the PIN or password first; commands that
// need the collection report "store is locked" until it is unlocked.
//
// The REPL is started via App.Run, which blocks until the user exits.
package cli
