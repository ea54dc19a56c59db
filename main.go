package main

import (
	"github.com/zhengyp36/crash-ext-tools/cmd"
)

var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
