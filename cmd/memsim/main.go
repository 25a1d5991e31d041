// Command memsim drives the paging simulator from the command line.
package main

func main() {
	Execute()
}
