package main

import "os"

func main() {
	if err := execute(NewRootCmd()); err != nil {
		os.Exit(1)
	}
}
