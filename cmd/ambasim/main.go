// Command ambasim runs bus systems described in YAML.
package main

import "github.com/sarchlab/amba/cmd/ambasim/cmd"

func main() {
	cmd.Execute()
}
