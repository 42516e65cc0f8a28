// Package cli is the terminal front end of the dtodo client.
//
// App wires the local SQLite store, the gRPC client, the identity provider
// selected by configuration and the state controller, then runs a simple
// read-eval-print loop. The prompt shows the signed-in identity and whether
// the server is reachable (a background ticker pings it).
//
// Commands
//
//	connect              connect the wallet (or the current email session)
//	login <email>        start an email session (email scheme)
//	logout | disconnect  drop the current identity
//	switch <address|new> select or create a wallet account
//	accounts             list wallet accounts in the local keystore
//	import <hexkey>      store an existing wallet key
//	add <text>           add a task
//	done <id>            complete a task
//	list | l             list pending tasks
//	all                  list every task, completed ones included
//	refresh              re-fetch tasks from the server
//	export [file]        upload a JSON snapshot, optionally download it
//	help, exit | quit
package cli
