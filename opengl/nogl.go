//go:build nogl

// Package opengl displays fishswarm frames in an interactive OpenGL window.
// This build has no OpenGL support.
package opengl

import (
	"fmt"
	"os"

	"github.com/PrincetonUniversity/fishswarm"
)

// Config holds the parameters of the OpenGL driver.
type Config struct {
	MaxSwarmSize int
	Next         func() (fishswarm.Frame, error)
	ForcePause   bool

	Size     float64
	MaxSpeed float64
	Extent   float64

	// Bounds of default viewport.
	Xmin float64
	Ymin float64
	Xmax float64
	Ymax float64
}

// Run returns an error explaining that OpenGL support is disabled.
func Run(conf *Config) error {
	return fmt.Errorf("%s was built without OpenGL support", os.Args[0])
}
