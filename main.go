package main

import (
	"embed"
	"log/slog"

	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"

	"github.com/jarwiz-ai/jarwiz/internal/app"
	"github.com/jarwiz-ai/jarwiz/internal/version"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	slog.Info("starting app", "version", version.Version, "commit", version.Commit, "date", version.Date)
	appService := app.New(version.Version)

	wailsApp := application.New(application.Options{
		Name:        "JarWiz",
		Description: "Meeting transcription with answers from your documents",
		Services: []application.Service{
			application.NewService(appService),
		},
		Assets: application.AssetOptions{
			Handler: application.BundledAssetFileServer(assets),
		},
		Mac: application.MacOptions{
			// Don't quit when all windows are closed (we have a system tray)
			ApplicationShouldTerminateAfterLastWindowClosed: false,
		},
	})

	mainWindow := wailsApp.Window.NewWithOptions(application.WebviewWindowOptions{
		Title:  "JarWiz",
		Width:  1280,
		Height: 800,
		URL:    "/",
		Mac: application.MacWindow{
			TitleBar:                application.MacTitleBarHiddenInsetUnified,
			InvisibleTitleBarHeight: 38,
		},
		EnableFileDrop:  true,
		DevToolsEnabled: true,
	})

	mainWindow.OnWindowEvent(events.Common.WindowFilesDropped, func(e *application.WindowEvent) {
		if err := appService.DropFiles(e.Context().DroppedFiles()); err != nil {
			slog.Warn("dropped file rejected", "error", err)
		}
	})

	// Intercept window close: hide instead of destroy so tray can reopen
	mainWindow.RegisterHook(events.Common.WindowClosing, func(e *application.WindowEvent) {
		e.Cancel()
		mainWindow.Hide()
	})

	appService.Init(wailsApp, mainWindow)

	systemTray := wailsApp.SystemTray.New()
	systemTray.SetLabel("JarWiz")

	trayMenu := wailsApp.NewMenu()
	trayMenu.Add("Show Window").OnClick(func(ctx *application.Context) {
		appService.ShowWindow()
	})
	trayMenu.Add("Connect to Meeting").OnClick(func(ctx *application.Context) {
		go func() {
			if err := appService.ConnectToMeeting(); err != nil {
				slog.Error("connect from tray", "error", err)
			}
		}()
	})
	trayMenu.Add("Toggle Microphone").
		SetAccelerator("CmdOrCtrl+Shift+M").
		OnClick(func(ctx *application.Context) {
			go func() {
				if err := appService.ToggleMicrophone(); err != nil {
					slog.Error("toggle microphone from tray", "error", err)
				}
			}()
		})
	trayMenu.Add("Ask from Clipboard").OnClick(func(ctx *application.Context) {
		go func() {
			if _, err := appService.AskFromClipboard(); err != nil {
				slog.Warn("ask from clipboard", "error", err)
			}
		}()
	})
	trayMenu.Add("Disconnect").OnClick(func(ctx *application.Context) {
		go appService.DisconnectAll()
	})

	trayMenu.AddSeparator()
	trayMenu.Add("Quit").
		SetAccelerator("CmdOrCtrl+Q").
		OnClick(func(ctx *application.Context) {
			appService.Shutdown()
			wailsApp.Quit()
		})

	systemTray.SetMenu(trayMenu)

	if err := wailsApp.Run(); err != nil {
		slog.Error("run app", "error", err)
	}
}
