// Command slabctl inspects and exercises the slabheap allocator.
package main

func main() {
	execute()
}
