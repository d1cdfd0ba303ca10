//go:build !nogl

// Package opengl displays fishswarm frames in an interactive OpenGL window.
package opengl

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"unsafe"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/PrincetonUniversity/fishswarm"
)

//go:embed shaders
var shaders embed.FS

// Config holds the parameters of the OpenGL driver.
type Config struct {
	MaxSwarmSize int // maximum swarm size

	// Next returns the frame to display after the current one.
	// It returns io.EOF once there are no more frames,
	// the last frame then stays on screen.
	Next func() (fishswarm.Frame, error)

	ForcePause bool // step manually only?

	Size     float64 // body length of the drawn particles
	MaxSpeed float64 // speed drawn with the brightest color
	Extent   float64 // side of the domain outline, zero for none

	// bounds of default viewport
	Xmin float64
	Ymin float64
	Xmax float64
	Ymax float64
}

// Run runs an interactive simulation in an OpenGL window.
// It must be called from the main thread.
//
// Space pauses and resumes, right arrow performs a single step while paused,
// scrolling zooms around the cursor, R resets the viewport and
// Esc or closing the window quits. Three dimensional frames are
// projected onto the XY plane.
func Run(conf *Config) error {
	// init GLFW and OpenGL
	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Samples, 4)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	// create OpenGL window
	const (
		title  = "fishswarm"
		width  = 800
		height = 800
	)
	w, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return err
	}
	defer w.Destroy()
	w.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		return err
	}

	// set background color and enable alpha blending
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	w.SwapBuffers()

	// initialize OpenGL objects
	d, err := newDisplay(conf)
	if err != nil {
		return err
	}

	frame, err := conf.Next()
	if err != nil {
		return err
	}

	// handle scrolling zoom
	home := viewport{{float32(conf.Xmin), float32(conf.Ymin)}, {float32(conf.Xmax), float32(conf.Ymax)}}
	vp := home
	w.SetScrollCallback(func(w *glfw.Window, xo, yo float64) {
		xc, yc := w.GetCursorPos()
		xs, ys := w.GetSize()
		x, y := float32(xc)/float32(xs), (float32(ys)-float32(yc))/float32(ys)
		dx, dy := vp[1].X-vp[0].X, vp[1].Y-vp[0].Y
		z := 0.05 * float32(yo)
		vp[0].X += z * -(x * dx)
		vp[0].Y += z * -(y * dy)
		vp[1].X += z * (1 - x) * dx
		vp[1].Y += z * (1 - y) * dy
		d.draw(frame, vp)
		w.SwapBuffers()
	})

	var quit, step, done bool
	pause := conf.ForcePause
	w.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			quit = true
		}
		if key == glfw.KeySpace && action == glfw.Press && !conf.ForcePause {
			pause = !pause
		}
		if key == glfw.KeyRight && (action == glfw.Press || action == glfw.Repeat) {
			if pause {
				pause = false
				step = true
			}
		}
		if key == glfw.KeyR && action == glfw.Press {
			vp = home
			d.draw(frame, vp)
			w.SwapBuffers()
		}
	})

	for !(quit || w.ShouldClose()) {
		if step {
			pause = true
			step = false
			if !done {
				frame, done, err = next(conf, frame)
			}
		}
		if !pause && !done {
			frame, done, err = next(conf, frame)
		}
		if err != nil {
			return err
		}
		d.draw(frame, vp)
		w.SwapBuffers()
		glfw.PollEvents()
	}
	return nil
}

// next pulls the following frame, keeping cur once the source is exhausted.
func next(conf *Config, cur fishswarm.Frame) (fishswarm.Frame, bool, error) {
	f, err := conf.Next()
	if errors.Is(err, io.EOF) {
		return cur, true, nil
	}
	if err != nil {
		return cur, true, err
	}
	return f, false, nil
}

// A viewport is a rectangle delimiting the area of simulation space shown on screen.
// The first point is the bottom left corner, the second point is the top right corner.
type viewport [2]struct{ X, Y float32 }

// display contains all the OpenGL objects required to display the simulation.
type display struct {
	max  int // capacity of the particle buffer
	prog struct {
		particle uint32
		box      uint32
	}
	vao struct {
		particle uint32
		box      uint32
	}
	buf struct {
		state uint32 // particle states
		box   uint32 // corners of the domain
	}
	uni struct {
		vp    int32 // viewport of the particle program
		boxVP int32 // viewport of the box program
		size  int32 // body length
		vmax  int32 // speed of the brightest color
	}
	hasBox bool
}

// draw updates the OpenGL buffers and draws the frame on screen.
func (d *display) draw(f fishswarm.Frame, vp viewport) {
	d.updateViewport(vp)
	n := d.updateParticles(f.Particles)

	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	if d.hasBox {
		gl.UseProgram(d.prog.box)
		gl.BindVertexArray(d.vao.box)
		gl.DrawArrays(gl.LINE_LOOP, 0, 4)
	}
	gl.UseProgram(d.prog.particle)
	gl.BindVertexArray(d.vao.particle)
	gl.DrawArrays(gl.POINTS, 0, int32(n))
}

// updateViewport sends the new viewport to OpenGL.
func (d *display) updateViewport(vp viewport) {
	gl.UseProgram(d.prog.particle)
	gl.Uniform2fv(d.uni.vp, 2, &vp[0].X)
	gl.UseProgram(d.prog.box)
	gl.Uniform2fv(d.uni.boxVP, 2, &vp[0].X)
}

// updateParticles updates the OpenGL buffer containing particle states
// and returns the number of particles to draw.
func (d *display) updateParticles(p []fishswarm.Particle) int {
	p = p[:min(len(p), d.max)]
	if len(p) == 0 {
		return 0
	}
	const n = int(unsafe.Sizeof(fishswarm.Particle{}))
	gl.BindBuffer(gl.ARRAY_BUFFER, d.buf.state)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(p)*n, gl.Ptr(p))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return len(p)
}

// newDisplay compiles shaders and initializes a display.
func newDisplay(conf *Config) (*display, error) {
	d := &display{max: max(conf.MaxSwarmSize, 1), hasBox: conf.Extent > 0}

	// compile and link shaders
	var err error
	d.prog.particle, err = makeProg([]shader{
		{"Vertex", "particle.vert", gl.CreateShader(gl.VERTEX_SHADER)},
		{"Geometry", "particle.geom", gl.CreateShader(gl.GEOMETRY_SHADER)},
		{"Fragment", "particle.frag", gl.CreateShader(gl.FRAGMENT_SHADER)},
	})
	if err != nil {
		return nil, err
	}
	d.prog.box, err = makeProg([]shader{
		{"Vertex", "box.vert", gl.CreateShader(gl.VERTEX_SHADER)},
		{"Fragment", "box.frag", gl.CreateShader(gl.FRAGMENT_SHADER)},
	})
	if err != nil {
		return nil, err
	}

	// uniform location cannot be specified in the shaders in OpenGL 3.3 core
	d.uni.vp = gl.GetUniformLocation(d.prog.particle, gl.Str("vp\x00"))
	d.uni.size = gl.GetUniformLocation(d.prog.particle, gl.Str("size\x00"))
	d.uni.vmax = gl.GetUniformLocation(d.prog.particle, gl.Str("vmax\x00"))
	d.uni.boxVP = gl.GetUniformLocation(d.prog.box, gl.Str("vp\x00"))

	gl.UseProgram(d.prog.particle)
	gl.Uniform1f(d.uni.size, float32(conf.Size))
	gl.Uniform1f(d.uni.vmax, float32(conf.MaxSpeed))

	// attribute locations are specified in the shaders with layout(location=n)
	const (
		posAttr    = 0
		velAttr    = 1
		cornerAttr = 2
	)

	gl.GenVertexArrays(1, &d.vao.particle)
	gl.BindVertexArray(d.vao.particle)

	const n = int32(unsafe.Sizeof(fishswarm.Particle{}))
	gl.GenBuffers(1, &d.buf.state)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.buf.state)
	gl.BufferData(gl.ARRAY_BUFFER, d.max*int(n), nil, gl.STREAM_DRAW)

	// only X and Y are read, which projects 3D frames onto the XY plane
	gl.EnableVertexAttribArray(posAttr)
	gl.VertexAttribPointerWithOffset(posAttr, 2, gl.DOUBLE, false, n, unsafe.Offsetof(fishswarm.Particle{}.Pos))

	gl.EnableVertexAttribArray(velAttr)
	gl.VertexAttribPointerWithOffset(velAttr, 2, gl.DOUBLE, false, n, unsafe.Offsetof(fishswarm.Particle{}.Vel))

	gl.GenVertexArrays(1, &d.vao.box)
	gl.BindVertexArray(d.vao.box)

	e := float32(conf.Extent)
	corners := []float32{0, 0, e, 0, e, e, 0, e}
	gl.GenBuffers(1, &d.buf.box)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.buf.box)
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(corners), gl.Ptr(corners), gl.STATIC_DRAW)

	gl.EnableVertexAttribArray(cornerAttr)
	gl.VertexAttribPointerWithOffset(cornerAttr, 2, gl.FLOAT, false, 0, 0)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	return d, nil
}

// A shader wraps an OpenGL shader.
type shader struct {
	name   string
	path   string
	shader uint32
}

// makeProg builds OpenGL programs from the embedded shader sources.
func makeProg(ss []shader) (uint32, error) {
	var errs []error
	for _, s := range ss {
		src, err := shaders.ReadFile("shaders/" + s.path)
		if err != nil {
			return 0, err
		}
		str, free := gl.Strs(string(src) + "\x00")
		gl.ShaderSource(s.shader, 1, str, nil)
		free()
		gl.CompileShader(s.shader)
		var status int32
		gl.GetShaderiv(s.shader, gl.COMPILE_STATUS, &status)
		if status != gl.TRUE {
			var n int32
			gl.GetShaderiv(s.shader, gl.INFO_LOG_LENGTH, &n)
			log := make([]uint8, n+1)
			gl.GetShaderInfoLog(s.shader, n, &n, &log[0])
			errs = append(errs, fmt.Errorf("%s shader %s: %s", s.name, s.path, gl.GoStr(&log[0])))
			gl.DeleteShader(s.shader)
		}
	}
	if len(errs) > 0 {
		return 0, fmt.Errorf("opengl: GLSL errors: %w", errors.Join(errs...))
	}
	prog := gl.CreateProgram()
	for _, s := range ss {
		gl.AttachShader(prog, s.shader)
	}
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status != gl.TRUE {
		return 0, fmt.Errorf("opengl: failed to link %s", ss[0].path)
	}
	return prog, nil
}
