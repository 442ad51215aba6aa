package main

import (
	"fmt"
	stdos "os"
)

func run() error {
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		stdos.Exit(1) // want "avoid using os.Exit in main.main"
	}

	defer func() {
		stdos.Exit(0) // want "avoid using os.Exit in main.main"
	}()
}

func helper() {
	stdos.Exit(2)
}
