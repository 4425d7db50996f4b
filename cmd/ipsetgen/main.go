// Command ipsetgen writes pseudo-random IP addresses drawn from a prefixed
// range, for use as input to ip set size analysis.
package main

import "github.com/zlobste/ipsetgen/internal/cli"

func main() {
	cli.Execute()
}
