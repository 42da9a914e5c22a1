//go:build tools

// Package cropdoc tracks tool dependencies run by go generate.
package cropdoc

import (
	_ "go.uber.org/mock/mockgen"
)
