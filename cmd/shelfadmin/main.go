package main

import "github.com/shelfdesk/shelfadmin/cmd/shelfadmin/cmd"

func main() {
	cmd.Execute()
}
