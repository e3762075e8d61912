package main

import "webdesk/cmd"

func main() {
	cmd.Execute()
}
