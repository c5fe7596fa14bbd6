package ui

import (
	"context"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Board is what the window needs from the drawing engine.
type Board interface {
	ToolSetter
	Snapshot
	Reload(ctx context.Context) error
}

type App struct {
	app    fyne.App
	window fyne.Window
	board  *BoardWidget
}

// NewApp creates the fyne application and its board widget. It must run
// before anything calls into the board from another goroutine.
func NewApp(title string, width, height float32, thick int) *App {
	a := app.New()
	w := a.NewWindow(title)
	w.Resize(fyne.NewSize(width, height))
	return &App{app: a, window: w, board: NewBoardWidget(thick)}
}

func (a *App) Board() *BoardWidget { return a.board }

// Run shows the window and blocks until it is closed.
func (a *App) Run(b Board, shareLink string) {
	reload := func() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := b.Reload(ctx); err != nil {
				log.Printf("[UI] Reload failed: %v", err)
				return
			}
			a.board.SetStatus("Reloaded")
		}()
	}
	toolbar := NewToolbar(b, reload, func() { exportDialog(a.window, a.board, b) })

	footer := []fyne.CanvasObject{a.board.StatusBar()}
	if shareLink != "" {
		link := widget.NewEntry()
		link.SetText(shareLink)
		footer = append(footer, link)
	}

	content := container.NewBorder(toolbar, container.NewVBox(footer...), nil, nil, a.board)
	a.window.SetContent(content)
	a.app.Lifecycle().SetOnStarted(func() { a.board.running.Store(true) })
	a.app.Lifecycle().SetOnStopped(func() { a.board.running.Store(false) })
	a.window.ShowAndRun()
}
