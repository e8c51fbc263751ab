// Package cli is an interactive shell over the wallet package. It stands in
// for a mobile UI during development: every command goes through the same
// Wallet calls a UI would make.
//
// Commands
//
//	init               set up a new vault with a PIN
//	unlock | lock      open or close the session
//	add                add a card (interactive prompts)
//	list | l           list cards, newest first
//	show <id>          show one card
//	delete <id>        delete a card and its history
//	count              number of stored cards
//	pay <id> <amount> [merchant...]
//	                   record a simulated payment
//	history <id>       payments for a card
//	export <name>      write a backup to the backup sink
//	import <name>      restore a backup from the backup sink
//	help | exit | quit
//
// Card numbers are shown masked except by show; PINs, CVVs and backup
// passphrases are read without echo.
package cli
