// Command tracker replays a YAML script of behavioral events through the
// tracking client.
//
// Each tab in the script gets its own request queue, humanity detector and
// lifecycle emitter, while all tabs share one backlog store, the way browser
// tabs share local storage. Tabs run concurrently. When a tab's script ends,
// or on SIGINT/SIGTERM, the tab waits for its drain and then fires the
// unload signal, which writes the backlog back for the next run.
//
// Usage:
//
//	CIO_API_KEY=key tracker -script session.yaml -db backlog.db
//
// With -status-addr the command keeps serving /health, /metrics and /backlog
// after the replay until interrupted.
package main
