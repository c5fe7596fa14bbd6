package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"RoomBoard/internal/engine"
)

// ToolSetter is the part of the engine the toolbar drives.
type ToolSetter interface {
	SetTool(t engine.Tool)
	Tool() engine.Tool
}

var toolIcons = map[engine.Tool]fyne.Resource{
	engine.ToolSelect:    theme.ViewFullScreenIcon(),
	engine.ToolPen:       theme.DocumentCreateIcon(),
	engine.ToolRectangle: theme.CheckButtonIcon(),
	engine.ToolCircle:    theme.RadioButtonIcon(),
	engine.ToolLine:      theme.MoreHorizontalIcon(),
	engine.ToolEraser:    theme.DeleteIcon(),
}

// NewToolbar builds the tool buttons plus reload and export actions.
func NewToolbar(tools ToolSetter, onReload, onExport func()) fyne.CanvasObject {
	current := widget.NewLabel(tools.Tool().String())

	items := make([]widget.ToolbarItem, 0, len(engine.Tools())+3)
	for _, t := range engine.Tools() {
		t := t
		items = append(items, widget.NewToolbarAction(toolIcons[t], func() {
			tools.SetTool(t)
			current.SetText(t.String())
		}))
	}
	items = append(items,
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), onReload),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), onExport),
	)

	return container.NewHBox(
		widget.NewLabel("Tool:"),
		widget.NewToolbar(items...),
		current,
		layout.NewSpacer(),
	)
}
