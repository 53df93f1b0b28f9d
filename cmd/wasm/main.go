//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/engine"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/geom"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/viewport"
)

var (
	eng *engine.Engine
	vp  *viewport.Engine
)

func main() {
	eng = engine.NewEngine()
	vp, _ = viewport.New(viewport.DefaultConfig())

	// Create the engine API object
	amberEngine := js.Global().Get("Object").New()

	// --- Animation commands (frontend → backend) ---
	amberEngine.Set("loadDocument", js.FuncOf(loadDocument))
	amberEngine.Set("updateDocument", js.FuncOf(updateDocument))
	amberEngine.Set("setAnimation", js.FuncOf(setAnimation))
	amberEngine.Set("setPlayhead", js.FuncOf(setPlayhead))
	amberEngine.Set("play", js.FuncOf(play))
	amberEngine.Set("pause", js.FuncOf(pause))
	amberEngine.Set("togglePlay", js.FuncOf(togglePlay))
	amberEngine.Set("tick", js.FuncOf(tick))

	// --- Animation queries (frontend ← backend) ---
	amberEngine.Set("getPose", js.FuncOf(getPose))
	amberEngine.Set("getWorldTransforms", js.FuncOf(getWorldTransforms))
	amberEngine.Set("getPlayhead", js.FuncOf(getPlayhead))
	amberEngine.Set("isPlaying", js.FuncOf(isPlaying))
	amberEngine.Set("getAnimation", js.FuncOf(getAnimation))

	// --- Viewport commands ---
	amberEngine.Set("setCanvasSize", js.FuncOf(setCanvasSize))
	amberEngine.Set("setScale", js.FuncOf(setScale))
	amberEngine.Set("zoom", js.FuncOf(zoom))
	amberEngine.Set("zoomAt", js.FuncOf(zoomAt))
	amberEngine.Set("pan", js.FuncOf(pan))
	amberEngine.Set("rotate", js.FuncOf(rotate))
	amberEngine.Set("resetView", js.FuncOf(resetView))
	amberEngine.Set("pointerDown", js.FuncOf(pointerDown))
	amberEngine.Set("pointerMove", js.FuncOf(pointerMove))
	amberEngine.Set("pointerUp", js.FuncOf(pointerUp))
	amberEngine.Set("handleKey", js.FuncOf(handleKey))
	amberEngine.Set("beginResize", js.FuncOf(beginResize))
	amberEngine.Set("endResize", js.FuncOf(endResize))

	// --- Viewport queries ---
	amberEngine.Set("screenToCanvas", js.FuncOf(screenToCanvas))
	amberEngine.Set("canvasToScreen", js.FuncOf(canvasToScreen))
	amberEngine.Set("getTransformCSS", js.FuncOf(getTransformCSS))
	amberEngine.Set("getViewState", js.FuncOf(getViewState))

	// Register on global scope
	js.Global().Set("amberEngine", amberEngine)

	// Signal that WASM is ready
	js.Global().Set("amberWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// --- Animation Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}

	jsonData := args[0].String()
	if err := eng.LoadDocument(jsonData); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}

	return js.ValueOf(map[string]interface{}{"ok": true})
}

func updateDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}

	jsonData := args[0].String()
	if err := eng.UpdateDocument(jsonData); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}

	return js.ValueOf(map[string]interface{}{"ok": true})
}

func setAnimation(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing animation id"})
	}

	if err := eng.SetAnimation(args[0].String()); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}

	return js.ValueOf(map[string]interface{}{"ok": true})
}

func setPlayhead(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.SetPlayhead(args[0].Float())
	return nil
}

func play(this js.Value, args []js.Value) interface{} {
	eng.Play()
	return nil
}

func pause(this js.Value, args []js.Value) interface{} {
	eng.Pause()
	return nil
}

func togglePlay(this js.Value, args []js.Value) interface{} {
	eng.TogglePlay()
	return nil
}

func tick(this js.Value, args []js.Value) interface{} {
	dt := 0.0
	if len(args) > 0 {
		dt = args[0].Float()
	}
	return js.ValueOf(eng.Tick(dt))
}

// --- Animation Query Handlers ---

func getPose(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.CurrentPoseJSON())
}

func getWorldTransforms(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.WorldTransformsJSON())
}

func getPlayhead(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Playhead())
}

func isPlaying(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.IsPlaying())
}

func getAnimation(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.AnimationID())
}

// --- Viewport Command Handlers ---

func setCanvasSize(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	vp.SetCanvasSize(args[0].Float(), args[1].Float())
	return nil
}

func setScale(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	vp.SetScale(args[0].Float())
	return nil
}

func zoom(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	vp.Zoom(args[0].Float())
	return nil
}

func zoomAt(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return nil
	}
	vp.ZoomAt(args[0].Float(), geom.Point{X: args[1].Float(), Y: args[2].Float()})
	return nil
}

func pan(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	vp.Pan(args[0].Float(), args[1].Float())
	return nil
}

func rotate(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	vp.Rotate(args[0].Float())
	return nil
}

func resetView(this js.Value, args []js.Value) interface{} {
	vp.Reset()
	return nil
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	vp.PointerDown(geom.Point{X: args[0].Float(), Y: args[1].Float()})
	return nil
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	vp.PointerMove(geom.Point{X: args[0].Float(), Y: args[1].Float()})
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	vp.PointerUp()
	return nil
}

func handleKey(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	key, ok := keyFromName(args[0].String())
	if !ok {
		return nil
	}
	vp.HandleKey(key)
	return nil
}

func beginResize(this js.Value, args []js.Value) interface{} {
	vp.BeginResize()
	return nil
}

func endResize(this js.Value, args []js.Value) interface{} {
	vp.EndResize()
	return nil
}

// --- Viewport Query Handlers ---

func screenToCanvas(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing coordinates"})
	}
	p := vp.ScreenToCanvas(geom.Point{X: args[0].Float(), Y: args[1].Float()})
	return js.ValueOf(map[string]interface{}{"x": p.X, "y": p.Y})
}

func canvasToScreen(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing coordinates"})
	}
	p := vp.CanvasToScreen(geom.Point{X: args[0].Float(), Y: args[1].Float()})
	return js.ValueOf(map[string]interface{}{"x": p.X, "y": p.Y})
}

func getTransformCSS(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(vp.Transform().CSSString())
}

func getViewState(this js.Value, args []js.Value) interface{} {
	tf := vp.Transform()
	return js.ValueOf(map[string]interface{}{
		"panX":     tf.PanX,
		"panY":     tf.PanY,
		"scale":    tf.Scale,
		"rotation": tf.Rotation,
		"state":    vp.State().String(),
	})
}

// keyFromName maps DOM KeyboardEvent key values to viewport keys.
func keyFromName(name string) (viewport.Key, bool) {
	switch name {
	case "ArrowUp":
		return viewport.KeyArrowUp, true
	case "ArrowDown":
		return viewport.KeyArrowDown, true
	case "ArrowLeft":
		return viewport.KeyArrowLeft, true
	case "ArrowRight":
		return viewport.KeyArrowRight, true
	case "q", "Q":
		return viewport.KeyRotateCCW, true
	case "e", "E":
		return viewport.KeyRotateCW, true
	default:
		return 0, false
	}
}
