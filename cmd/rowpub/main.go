// Command rowpub runs a query and publishes each result row as a json message.
package main

import (
	"github.com/alecthomas/kong"
)

func main() {
	var cli CLI
	kctx := kong.Parse(&cli, cliOptions()...)
	err := kctx.Run()
	kctx.FatalIfErrorf(err)
}
