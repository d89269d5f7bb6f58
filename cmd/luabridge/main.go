// Command luabridge is a CLI front-end over pkg/luabridge: run a Lua
// script through the embedding runtime, exercise the tenant manager, or
// inspect instance-pool sizing, without writing Go. Grounded on
// cmd/dwscript/cmd/root.go's cobra command tree.
package main

import (
	"os"

	"github.com/lua-embed/luabridge/cmd/luabridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
