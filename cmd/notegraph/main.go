// Command notegraph はノートグラフAPIサーバーを起動する。
//
//	notegraph [serve|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/notegraph/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "notegraph: %v\n", err)
		os.Exit(1)
	}
}
