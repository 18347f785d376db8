// Package tui provides the terminal screen for the wave portal.
package tui

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ardanlabs/waveportal/wave/api/frontends/client/app"
	"github.com/ardanlabs/waveportal/wave/app/sdk/format"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	title          = "Hey! Welcome to the Wave Portal"
	bio            = "Send me a message and you may win some ether."
	installWallet  = "Please install a wallet to use this dApp."
	connectTitle   = "Connect Wallet"
	disconnectText = "Disconnect"
	inputTitle     = "Write down whatever you want"
	placeholder    = "Your message will be stored in the blockchain forever :)"
	buttonTitle    = "Send"
	loadingTitle   = "Sending..."
)

var columns = []string{"Sender", "Message", "Received At"}

// App is the behavior the screen drives.
type App interface {
	State() app.State
	SetMessage(msg string)
	ConnectWallet(ctx context.Context)
	DisconnectWallet(ctx context.Context)
	Wave(ctx context.Context, message string)
}

// =============================================================================

type TUI struct {
	tviewApp    *tview.Application
	pages       *tview.Pages
	header      *tview.TextView
	banner      *tview.TextView
	table       *tview.Table
	footer      *tview.TextView
	textArea    *tview.TextArea
	connectBtn  *tview.Button
	sendBtn     *tview.Button
	modal       *tview.Modal
	explorerURL string
	app         App

	mu      sync.Mutex
	state   app.State
	sending bool
	running atomic.Bool
	dirty   chan struct{}
	done    chan struct{}
}

func New(explorerURL string) *TUI {
	ui := TUI{
		explorerURL: explorerURL,
		dirty:       make(chan struct{}, 1),
		done:        make(chan struct{}),
	}

	tviewApp := tview.NewApplication()

	// -------------------------------------------------------------------------

	header := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true)
	header.SetBorder(true)
	header.SetTitle(fmt.Sprintf("*** %s ***", title))

	banner := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetTextColor(tcell.ColorOrange)

	// -------------------------------------------------------------------------

	table := tview.NewTable().
		SetFixed(1, 0).
		SetSelectable(true, false)
	table.SetBorder(true)
	table.SetTitle("Waves")

	footer := tview.NewTextView().
		SetTextAlign(tview.AlignLeft).
		SetTextColor(tcell.ColorOrange)

	table.SetSelectedFunc(func(row int, column int) {
		ref, ok := table.GetCell(row, 0).GetReference().(string)
		if !ok {
			return
		}
		footer.SetText(ref)
	})

	// -------------------------------------------------------------------------

	connectBtn := tview.NewButton(connectTitle)
	connectBtn.SetStyle(tcell.StyleDefault.Background(tcell.ColorOrange).Foreground(tcell.ColorBlack).Bold(true))
	connectBtn.SetBorder(true)

	sendBtn := tview.NewButton(buttonTitle)
	sendBtn.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorOrange).Bold(true))
	sendBtn.SetActivatedStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorOrange).Bold(true))
	sendBtn.SetBorder(true)
	sendBtn.SetBorderColor(tcell.ColorOrange)

	// -------------------------------------------------------------------------

	textArea := tview.NewTextArea()
	textArea.SetWrap(true)
	textArea.SetPlaceholder(placeholder)
	textArea.SetBorder(true)
	textArea.SetTitle(inputTitle)
	textArea.SetBorderPadding(0, 0, 1, 0)

	// -------------------------------------------------------------------------

	modal := tview.NewModal().
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(int, string) {
			ui.pages.HidePage("winner")
		})

	// -------------------------------------------------------------------------

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 5, 1, false).
		AddItem(banner, 1, 1, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexColumn).
			AddItem(textArea, 0, 80, true).
			AddItem(tview.NewFlex().
				SetDirection(tview.FlexRow).
				AddItem(sendBtn, 0, 1, false).
				AddItem(connectBtn, 0, 1, false),
				0, 20, false),
			6, 1, true).
		AddItem(table, 0, 5, false).
		AddItem(footer, 1, 1, false)

	flex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlQ:
			tviewApp.Stop()
			return nil

		case tcell.KeyTab:
			if textArea.HasFocus() {
				tviewApp.SetFocus(table)
				return nil
			}
			tviewApp.SetFocus(textArea)
			return nil
		}

		return event
	})

	pages := tview.NewPages().
		AddPage("main", flex, true, true).
		AddPage("winner", modal, true, false)

	ui.tviewApp = tviewApp
	ui.pages = pages
	ui.header = header
	ui.banner = banner
	ui.table = table
	ui.footer = footer
	ui.textArea = textArea
	ui.connectBtn = connectBtn
	ui.sendBtn = sendBtn
	ui.modal = modal

	sendBtn.SetSelectedFunc(ui.buttonHandler)
	connectBtn.SetSelectedFunc(ui.connectHandler)

	textArea.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter:
			ui.buttonHandler()
			return nil
		}
		return event
	})

	textArea.SetChangedFunc(func() {
		if ui.app != nil {
			ui.app.SetMessage(textArea.GetText())
		}
	})

	return &ui
}

func (ui *TUI) SetApp(app App) {
	ui.app = app
}

// SetScreen draws on the specified screen instead of the terminal. It must be
// called before Run.
func (ui *TUI) SetScreen(screen tcell.Screen) {
	ui.tviewApp.SetScreen(screen)
}

// Stop closes the screen and makes Run return.
func (ui *TUI) Stop() {
	ui.tviewApp.Stop()
}

func (ui *TUI) Run() error {
	ui.running.Store(true)
	defer ui.running.Store(false)
	defer close(ui.done)

	ui.mu.Lock()
	state := ui.state
	ui.mu.Unlock()
	ui.apply(state)

	go ui.renderLoop()

	return ui.tviewApp.SetRoot(ui.pages, true).EnableMouse(true).Run()
}

// Render implements the app.UI interface. It can be called from any
// goroutine; the latest state is drawn on the screen goroutine.
func (ui *TUI) Render(state app.State) {
	ui.mu.Lock()
	ui.state = state
	ui.mu.Unlock()

	if !ui.running.Load() {
		return
	}

	select {
	case ui.dirty <- struct{}{}:
	default:
	}
}

// =============================================================================

func (ui *TUI) renderLoop() {
	for {
		select {
		case <-ui.dirty:
			ui.tviewApp.QueueUpdateDraw(func() {
				ui.mu.Lock()
				state := ui.state
				ui.mu.Unlock()

				ui.apply(state)
			})

		case <-ui.done:
			return
		}
	}
}

func (ui *TUI) apply(state app.State) {
	ui.header.Clear()
	fmt.Fprintln(ui.header, bio)
	switch {
	case state.Connected():
		fmt.Fprintf(ui.header, "Connected as [orange]%s[-]\n", state.Account.Hex())
	default:
		fmt.Fprintln(ui.header, "Not connected")
	}

	switch {
	case !state.WalletAvailable:
		ui.banner.SetText(installWallet)
	default:
		ui.banner.SetText("")
	}

	switch {
	case !state.WalletAvailable:
		ui.connectBtn.SetLabel("-")
	case state.Connected():
		ui.connectBtn.SetLabel(disconnectText)
	default:
		ui.connectBtn.SetLabel(connectTitle)
	}

	switch {
	case state.Loading:
		ui.sendBtn.SetLabel(loadingTitle)
	case state.CanWave():
		ui.sendBtn.SetLabel(buttonTitle)
	default:
		ui.sendBtn.SetLabel("-")
	}

	ui.mu.Lock()
	if ui.sending && !state.Loading && state.Message == "" {
		ui.sending = false
		ui.textArea.SetText("", false)
	}
	ui.mu.Unlock()

	ui.writeTable(state)

	switch {
	case state.WinnerAmount != "":
		ui.modal.SetText(fmt.Sprintf("You won %s ether!", state.WinnerAmount))
		ui.pages.ShowPage("winner")
	default:
		ui.pages.HidePage("winner")
	}
}

func (ui *TUI) writeTable(state app.State) {
	ui.table.Clear()

	for col, name := range columns {
		align := tview.AlignLeft
		if col == len(columns)-1 {
			align = tview.AlignRight
		}

		ui.table.SetCell(0, col, tview.NewTableCell(name).
			SetTextColor(tcell.ColorOrange).
			SetAttributes(tcell.AttrBold).
			SetAlign(align).
			SetSelectable(false))
	}

	for i, w := range state.Waves {
		row := i + 1

		ui.table.SetCell(row, 0, tview.NewTableCell(format.Address(w.Address)).
			SetTextColor(tcell.ColorOrange).
			SetReference(format.ExplorerLink(ui.explorerURL, w.Address)))

		ui.table.SetCell(row, 1, tview.NewTableCell(w.Message).
			SetExpansion(1))

		ui.table.SetCell(row, 2, tview.NewTableCell(format.Date(w.Timestamp)).
			SetAlign(tview.AlignRight))
	}
}

func (ui *TUI) buttonHandler() {
	if ui.app == nil {
		return
	}

	if !ui.app.State().CanWave() {
		return
	}

	msg := ui.textArea.GetText()
	if msg == "" {
		return
	}

	ui.mu.Lock()
	ui.sending = true
	ui.mu.Unlock()

	ui.app.SetMessage(msg)

	go ui.app.Wave(context.Background(), msg)
}

func (ui *TUI) connectHandler() {
	if ui.app == nil {
		return
	}

	state := ui.app.State()

	switch {
	case !state.WalletAvailable:
		return

	case state.Connected():
		go ui.app.DisconnectWallet(context.Background())

	default:
		go ui.app.ConnectWallet(context.Background())
	}
}
