package main

import "github.com/ValentinKolb/xslock/cmd"

func main() {
	cmd.Execute()
}
