package main

import "github.com/frahmantamala/rt-lending/cmd"

func main() {
	cmd.Execute()
}
