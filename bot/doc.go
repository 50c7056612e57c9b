// Package bot routes inbound chat events to the engine components.
//
// Handler implements transport.Handler:
//
//   - posts from the source channel are indexed
//   - text from users is resolved as a query, or run as a command
//   - operators may forward source channel posts to index them by hand
//   - choice presses select a listed movie, filter a list by language, or
//     answer an escalation
//
// Every event is handled under a recover guard. A failing handler logs the
// panic and sends the user a generic apology instead of taking the process
// down.
package bot
