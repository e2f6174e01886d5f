// Command syncctl inspects and repairs the propagation job queue
package main

func main() {
	execute()
}
