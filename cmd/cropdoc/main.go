// Package main provides the cropdoc CLI.
//
// cropdoc classifies rice leaf photos as Healthy, Leaf Blast, Brown Spot or
// Sheath Blight and suggests a treatment for the predicted state.
//
// Usage:
//
//	cropdoc serve
//	cropdoc predict leaf.jpg
//	cropdoc chat "how do I treat brown spot?"
//
// See --help for all available options.
package main

func main() {
	Execute()
}
