package main

import "github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/cli"

func main() {
	cli.Execute()
}
