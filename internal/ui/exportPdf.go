package ui

import (
	"fmt"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"RoomBoard/internal/export"
	"RoomBoard/internal/render"
	"RoomBoard/internal/state"
)

// Snapshot supplies what an export writes.
type Snapshot interface {
	Shapes() []state.Shape
	Renderer() *render.Renderer
}

// exportDialog asks for a destination and writes the board there as PDF.
func exportDialog(win fyne.Window, board *BoardWidget, snap Snapshot) {
	save := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		if writer == nil {
			return
		}
		defer func() {
			if err := writer.Close(); err != nil {
				log.Printf("[UI] Error closing export: %v", err)
			}
		}()

		shapes := snap.Shapes()
		size := board.Size()
		err = export.WritePDF(writer, shapes, snap.Renderer().Style, float64(size.Width), float64(size.Height))
		if err != nil {
			log.Printf("[UI] Export failed: %v", err)
			board.SetStatus("Export failed")
			return
		}
		board.SetStatus(fmt.Sprintf("Exported %d shapes to %s", len(shapes), writer.URI().Name()))
	}, win)
	save.SetFileName("board.pdf")
	save.Show()
}
