package main

import (
	"fmt"
	"os"

	"campus-registrar/backend/internal/cli"
)

func main() {
	app := cli.NewApp()
	err := app.Execute()
	_ = app.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
