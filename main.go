package main

import "citizen-kiosk/cmd"

func main() {
	cmd.Execute()
}
