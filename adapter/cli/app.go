package cli

import (
	appcontainer "github.com/shiftforge/scheduler/internal/app"
)

// App is the CLI's view onto the wired Container: every subcommand reaches
// its handlers through the global instance set by SetApp.
type App struct {
	*appcontainer.Container
}

// NewApp wraps an already-built Container for CLI use.
func NewApp(container *appcontainer.Container) *App {
	return &App{Container: container}
}

// app is the global CLI application instance.
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
