// Command dramsim runs trace-driven simulations of DRAM memory systems.
package main

import "github.com/sarchlab/dramsim/cmd/dramsim/cmd"

func main() {
	cmd.Execute()
}
