package main

import "github.com/ellavondegurechaff/materialpool/cmd"

func main() {
	cmd.Execute()
}
