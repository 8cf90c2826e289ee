package main

import "github.com/fbz-tec/dbxport/cmd"

func main() {
	cmd.Execute()
}
