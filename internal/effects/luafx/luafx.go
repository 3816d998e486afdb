// Package luafx adapts Lua scripts into compositor overlay providers.
//
// A script defines a global render(width, height, progress) function and
// draws through a small API injected by the host:
//
//	fill_rect(x, y, w, h, r, g, b, a)  -- composite a colored rectangle
//	label(text, x, y)                  -- draw caption text
//
// An optional global settings() function returning a table becomes the
// provider's opaque settings blob. Script errors are contained: a failing
// render leaves the frame as it was and the compositor moves on.
package luafx

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/splicekit/splice/internal/compositor"
)

// GlyphScript is a Lua-backed GlyphRenderer.
type GlyphScript struct {
	mu      sync.Mutex
	state   *lua.LState
	surface *image.RGBA
}

// Load compiles a script file into a provider.
func Load(path string) (*GlyphScript, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("luafx: reading script: %w", err)
	}
	return LoadString(string(src))
}

// LoadString compiles script source into a provider.
func LoadString(src string) (*GlyphScript, error) {
	g := &GlyphScript{state: lua.NewState()}
	g.register()
	if err := g.state.DoString(src); err != nil {
		g.state.Close()
		return nil, fmt.Errorf("luafx: loading script: %w", err)
	}
	if g.state.GetGlobal("render").Type() != lua.LTFunction {
		g.state.Close()
		return nil, fmt.Errorf("luafx: script defines no render function")
	}
	return g, nil
}

// Close releases the Lua state.
func (g *GlyphScript) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.Close()
}

// Settings returns the script's settings() table, or an empty blob.
func (g *GlyphScript) Settings() map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()

	fn := g.state.GetGlobal("settings")
	if fn.Type() != lua.LTFunction {
		return map[string]any{}
	}
	if err := g.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
		return map[string]any{}
	}
	ret := g.state.Get(-1)
	g.state.Pop(1)

	out := map[string]any{}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return out
	}
	tbl.ForEach(func(k, v lua.LValue) {
		key := lua.LVAsString(k)
		switch val := v.(type) {
		case lua.LNumber:
			out[key] = float64(val)
		case lua.LString:
			out[key] = string(val)
		case lua.LBool:
			out[key] = bool(val)
		}
	})
	return out
}

// RenderToCanvas invokes the script's render function against the surface.
func (g *GlyphScript) RenderToCanvas(surface *image.RGBA, width, height int, progress float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.surface = surface
	defer func() { g.surface = nil }()

	fn := g.state.GetGlobal("render")
	_ = g.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true},
		lua.LNumber(width), lua.LNumber(height), lua.LNumber(progress))
}

// register injects the drawing API into the script's globals.
func (g *GlyphScript) register() {
	g.state.SetGlobal("fill_rect", g.state.NewFunction(g.luaFillRect))
	g.state.SetGlobal("label", g.state.NewFunction(g.luaLabel))
}

func (g *GlyphScript) luaFillRect(L *lua.LState) int {
	if g.surface == nil {
		return 0
	}
	x := L.CheckInt(1)
	y := L.CheckInt(2)
	w := L.CheckInt(3)
	h := L.CheckInt(4)
	r := clampByte(L.CheckInt(5))
	gr := clampByte(L.CheckInt(6))
	b := clampByte(L.CheckInt(7))
	a := clampByte(L.OptInt(8, 255))

	rect := image.Rect(x, y, x+w, y+h).Intersect(g.surface.Bounds())
	if rect.Empty() {
		return 0
	}
	src := image.NewUniform(color.NRGBA{R: r, G: gr, B: b, A: a})
	draw.Draw(g.surface, rect, src, image.Point{}, draw.Over)
	return 0
}

func (g *GlyphScript) luaLabel(L *lua.LState) int {
	if g.surface == nil {
		return 0
	}
	text := L.CheckString(1)
	x := L.CheckInt(2)
	y := L.CheckInt(3)
	compositor.DrawLabel(g.surface, text, x, y)
	return 0
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
