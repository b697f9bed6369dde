//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/imgstudio/imgstudio/backend-go/internal/editor"
	"github.com/imgstudio/imgstudio/backend-go/internal/geometry"
)

var session *editor.Session

func main() {
	session = editor.NewSession(editor.DefaultOptions())

	// Create the editor API object
	imgstudioEditor := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	imgstudioEditor.Set("loadImage", js.FuncOf(loadImage))
	imgstudioEditor.Set("loadDemoImage", js.FuncOf(loadDemoImage))
	imgstudioEditor.Set("setPan", js.FuncOf(setPan))
	imgstudioEditor.Set("setScale", js.FuncOf(setScale))
	imgstudioEditor.Set("setRotation", js.FuncOf(setRotation))
	imgstudioEditor.Set("rotateBy", js.FuncOf(rotateBy))
	imgstudioEditor.Set("beginMove", js.FuncOf(beginMove))
	imgstudioEditor.Set("beginResize", js.FuncOf(beginResize))
	imgstudioEditor.Set("beginPan", js.FuncOf(beginPan))
	imgstudioEditor.Set("drag", js.FuncOf(drag))
	imgstudioEditor.Set("endDrag", js.FuncOf(endDrag))
	imgstudioEditor.Set("reset", js.FuncOf(reset))

	// --- Queries (frontend ← backend) ---
	imgstudioEditor.Set("getGeometry", js.FuncOf(getGeometry))
	imgstudioEditor.Set("getTransform", js.FuncOf(getTransform))
	imgstudioEditor.Set("getCropBox", js.FuncOf(getCropBox))
	imgstudioEditor.Set("getState", js.FuncOf(getState))
	imgstudioEditor.Set("getPreviewCSS", js.FuncOf(getPreviewCSS))
	imgstudioEditor.Set("project", js.FuncOf(project))

	// Register on global scope
	js.Global().Set("imgstudioEditor", imgstudioEditor)

	// Signal that WASM is ready
	js.Global().Set("imgstudioWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// --- Command Handlers ---

func loadImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing image dimensions"})
	}

	width := args[0].Int()
	height := args[1].Int()
	if err := session.LoadImage(width, height); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}

	return js.ValueOf(map[string]interface{}{"ok": true})
}

func loadDemoImage(this js.Value, args []js.Value) interface{} {
	session.LoadDemoImage()
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func setPan(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	session.SetPan(args[0].Float(), args[1].Float())
	return nil
}

func setScale(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	session.SetScale(args[0].Float())
	return nil
}

func setRotation(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	session.SetRotation(args[0].Float())
	return nil
}

func rotateBy(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	session.RotateBy(args[0].Float())
	return nil
}

func beginMove(this js.Value, args []js.Value) interface{} {
	session.BeginMove()
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func beginResize(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing resize handle"})
	}

	handle := geometry.Handle(args[0].String())
	if err := session.BeginResize(handle); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}

	return js.ValueOf(map[string]interface{}{"ok": true})
}

func beginPan(this js.Value, args []js.Value) interface{} {
	session.BeginPan()
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func drag(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	session.Drag(args[0].Float(), args[1].Float())
	return nil
}

func endDrag(this js.Value, args []js.Value) interface{} {
	session.EndDrag()
	return nil
}

func reset(this js.Value, args []js.Value) interface{} {
	session.Reset()
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// --- Query Handlers ---

func getGeometry(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(session.GetGeometry())
}

func getTransform(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(session.GetTransform())
}

func getCropBox(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(session.GetCropBox())
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(session.GetState())
}

func getPreviewCSS(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(session.PreviewCSS())
}

func project(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(session.ProjectJSON())
}
