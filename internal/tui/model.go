package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"

	"github.com/hylla/kolumn/internal/app"
	"github.com/hylla/kolumn/internal/domain"
	"github.com/hylla/kolumn/internal/reorder"
)

// Service is the board service the model drives.
type Service interface {
	Load(context.Context) (domain.Board, error)
	Board() domain.Board
	Recovered() bool
	DefaultPriority() domain.Priority
	AddTask(context.Context, string, domain.Priority) (domain.Task, error)
	DeleteTask(context.Context, string) error
	EditText(context.Context, string, string) (domain.Task, error)
	SetPriority(context.Context, string, domain.Priority) (domain.Task, error)
	MoveTask(context.Context, string, domain.ColumnKey, int) (bool, error)
}

// inputMode is the active overlay or editor. At most one is open.
type inputMode int

const (
	modeNone inputMode = iota
	modeAddTask
	modeEditText
	modePriority
	modeTaskInfo
	modeConfirmDelete
)

// doubleClickThreshold is the longest gap between two clicks on the same
// card text that still opens the editor.
const doubleClickThreshold = 400 * time.Millisecond

var priorityOptions = domain.Priorities()

// Model is the board screen.
type Model struct {
	svc Service

	ready  bool
	width  int
	height int
	err    error

	status string

	help          help.Model
	keys          keyMap
	showHelp      bool
	confirmDelete bool

	board          domain.Board
	selectedColumn int
	selectedTask   int
	offsets        []int

	mode            inputMode
	input           textinput.Model
	addPriority     domain.Priority
	editTaskID      string
	popupTaskID     string
	popupIndex      int
	infoTaskID      string
	pendingDeleteID string

	pendingFocusTaskID string

	drag            *reorder.Engine
	lastClickAt     time.Time
	lastClickTaskID string

	markdown        *markdownRenderer
	copyToClipboard func(string) error
	now             func() time.Time
}

// loadedMsg carries a fresh board from the service.
type loadedMsg struct {
	board     domain.Board
	recovered bool
	err       error
}

// actionMsg reports the outcome of one mutation.
type actionMsg struct {
	err         error
	status      string
	focusTaskID string
}

// NewModel constructs a board model over svc.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:             svc,
		status:          "loading...",
		help:            h,
		keys:            newKeyMap(),
		showHelp:        true,
		board:           domain.NewBoard(),
		offsets:         make([]int, len(domain.Columns())),
		drag:            reorder.NewEngine(reorder.DropRevert),
		markdown:        &markdownRenderer{},
		copyToClipboard: clipboard.WriteAll,
		now:             time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init loads the stored board.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update routes one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.cancelDrag()
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.ensureSelectionVisible()
		if m.mode == modeEditText {
			m.sizeEditInput()
		}
		return m, nil

	case tea.BlurMsg:
		m.cancelDrag()
		if m.mode == modeEditText {
			return m.commitEdit()
		}
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.board = msg.board
		m.clampSelection()
		if m.pendingFocusTaskID != "" {
			m.focusTaskByID(m.pendingFocusTaskID)
			m.pendingFocusTaskID = ""
		}
		m.closeStaleMode()
		m.ensureSelectionVisible()
		switch {
		case msg.recovered:
			m.status = "stored board was unreadable, started with an empty board"
		case m.status == "" || m.status == "loading..." || m.status == "reloading...":
			m.status = "ready"
		}
		return m, nil

	case actionMsg:
		switch {
		case isNotFound(msg.err):
			m.status = "task no longer exists"
		case msg.err != nil:
			m.status = "error: " + msg.err.Error()
		case msg.status != "":
			m.status = msg.status
		}
		if msg.focusTaskID != "" {
			m.pendingFocusTaskID = msg.focusTaskID
		}
		return m, m.syncBoard

	case tea.KeyPressMsg:
		if m.drag.Dragging() {
			m.cancelDrag()
			if key.Matches(msg, m.keys.cancel) {
				return m, nil
			}
		}
		if m.help.ShowAll {
			return m.handleHelpKey(msg)
		}
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	default:
		if m.mode == modeAddTask || m.mode == modeEditText {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

// loadData reads the board from storage.
func (m Model) loadData() tea.Msg {
	board, err := m.svc.Load(context.Background())
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{board: board, recovered: m.svc.Recovered()}
}

// syncBoard copies the service's in-memory board after a mutation.
func (m Model) syncBoard() tea.Msg {
	return loadedMsg{board: m.svc.Board()}
}

func (m Model) handleHelpKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp), key.Matches(msg, m.keys.cancel):
		m.help.ShowAll = false
		m.status = "ready"
	}
	return m, nil
}

// handleNormalModeKey handles keys while no overlay is open.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = true
		m.status = "help"
		return m, nil
	case key.Matches(msg, m.keys.cancel):
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.moveLeft):
		if m.selectedColumn > 0 {
			m.selectedColumn--
			m.selectedTask = 0
			m.ensureSelectionVisible()
		}
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		if m.selectedColumn < len(domain.Columns())-1 {
			m.selectedColumn++
			m.selectedTask = 0
			m.ensureSelectionVisible()
		}
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		if m.selectedTask < m.board.Count(m.currentColumn())-1 {
			m.selectedTask++
			m.ensureSelectionVisible()
		}
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		if m.selectedTask > 0 {
			m.selectedTask--
			m.ensureSelectionVisible()
		}
		return m, nil
	case key.Matches(msg, m.keys.addTask):
		return m, m.startAddTask()
	}

	task, ok := m.selectedTaskInColumn()
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.editTask):
		return m.startEditText(task)
	case key.Matches(msg, m.keys.priority):
		return m.openPriorityPopup(task)
	case key.Matches(msg, m.keys.taskInfo):
		m.mode = modeTaskInfo
		m.infoTaskID = task.ID
		m.status = "task info"
		return m, nil
	case key.Matches(msg, m.keys.deleteTask):
		return m.requestDelete(task)
	case key.Matches(msg, m.keys.moveTaskLeft):
		return m.moveSelectedAcross(task, -1)
	case key.Matches(msg, m.keys.moveTaskRight):
		return m.moveSelectedAcross(task, 1)
	case key.Matches(msg, m.keys.moveTaskUp):
		return m.moveSelectedWithin(task, -1)
	case key.Matches(msg, m.keys.moveTaskDown):
		return m.moveSelectedWithin(task, 1)
	case key.Matches(msg, m.keys.copyText):
		return m, m.copyTextCmd(task)
	}
	return m, nil
}

// handleInputModeKey handles keys for the open overlay or editor.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeAddTask:
		switch msg.String() {
		case "esc":
			m.closeInput()
			m.status = "add cancelled"
			return m, nil
		case "tab":
			m.addPriority = cyclePriority(m.addPriority, 1)
			return m, nil
		case "shift+tab":
			m.addPriority = cyclePriority(m.addPriority, -1)
			return m, nil
		case "enter":
			return m.submitAddTask()
		}
	case modeEditText:
		switch msg.String() {
		case "esc":
			m.closeInput()
			m.status = "edit cancelled"
			return m, nil
		case "enter":
			return m.commitEdit()
		}
	case modePriority:
		switch msg.String() {
		case "esc", "q":
			m.closePopup()
			return m, nil
		case "up", "k":
			m.popupIndex = wrapIndex(m.popupIndex, -1, len(priorityOptions))
			return m, nil
		case "down", "j", "tab":
			m.popupIndex = wrapIndex(m.popupIndex, 1, len(priorityOptions))
			return m, nil
		case "enter":
			return m.applyPriority(m.popupIndex)
		}
		return m, nil
	case modeTaskInfo:
		switch {
		case key.Matches(msg, m.keys.cancel), key.Matches(msg, m.keys.taskInfo), key.Matches(msg, m.keys.quit):
			m.mode = modeNone
			m.infoTaskID = ""
			m.status = "ready"
		case key.Matches(msg, m.keys.copyText):
			if task, ok := m.board.Task(m.infoTaskID); ok {
				return m, m.copyTextCmd(task)
			}
		}
		return m, nil
	case modeConfirmDelete:
		switch msg.String() {
		case "y", "Y", "enter":
			taskID := m.pendingDeleteID
			m.mode = modeNone
			m.pendingDeleteID = ""
			return m, m.deleteTaskCmd(taskID)
		case "n", "N", "esc", "q":
			m.mode = modeNone
			m.pendingDeleteID = ""
			m.status = "delete cancelled"
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// newModalInput constructs a text input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

func (m *Model) startAddTask() tea.Cmd {
	m.mode = modeAddTask
	m.addPriority = m.svc.DefaultPriority()
	m.input = newModalInput("", "what needs doing?", "", 240)
	m.input.SetWidth(max(20, min(60, m.width-16)))
	m.status = "new task"
	return m.input.Focus()
}

func (m Model) submitAddTask() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	priority := m.addPriority
	m.closeInput()
	svc := m.svc
	return m, func() tea.Msg {
		task, err := svc.AddTask(context.Background(), text, priority)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "task added", focusTaskID: task.ID}
	}
}

func (m Model) startEditText(task domain.Task) (tea.Model, tea.Cmd) {
	m.cancelDrag()
	m.mode = modeEditText
	m.editTaskID = task.ID
	m.input = newModalInput("", "", task.Text, 240)
	m.input.CursorEnd()
	m.sizeEditInput()
	m.status = "editing text"
	return m, m.input.Focus()
}

// sizeEditInput fits the inline editor to the card text area.
func (m *Model) sizeEditInput() {
	if card, ok := m.geometry().cardByID(m.editTaskID); ok {
		m.input.SetWidth(max(1, card.text.W-1))
	}
}

// commitEdit saves the inline edit. Blank or unchanged text only reverts the
// display.
func (m Model) commitEdit() (tea.Model, tea.Cmd) {
	taskID := m.editTaskID
	text := strings.TrimSpace(m.input.Value())
	m.closeInput()
	task, ok := m.board.Task(taskID)
	if !ok {
		return m, nil
	}
	if text == "" || text == task.Text {
		m.status = "text unchanged"
		return m, nil
	}
	svc := m.svc
	return m, func() tea.Msg {
		if _, err := svc.EditText(context.Background(), taskID, text); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "text updated", focusTaskID: taskID}
	}
}

func (m *Model) closeInput() {
	m.input.Blur()
	m.mode = modeNone
	m.editTaskID = ""
}

func (m Model) openPriorityPopup(task domain.Task) (tea.Model, tea.Cmd) {
	m.cancelDrag()
	m.mode = modePriority
	m.popupTaskID = task.ID
	m.popupIndex = priorityIndex(task.Priority)
	m.status = "choose priority"
	return m, nil
}

func (m *Model) closePopup() {
	m.mode = modeNone
	m.popupTaskID = ""
	m.status = "ready"
}

func (m Model) applyPriority(idx int) (tea.Model, tea.Cmd) {
	taskID := m.popupTaskID
	m.closePopup()
	if idx < 0 || idx >= len(priorityOptions) {
		return m, nil
	}
	priority := priorityOptions[idx]
	if task, ok := m.board.Task(taskID); !ok || task.Priority == priority {
		return m, nil
	}
	svc := m.svc
	return m, func() tea.Msg {
		if _, err := svc.SetPriority(context.Background(), taskID, priority); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "priority set to " + string(priority), focusTaskID: taskID}
	}
}

func (m Model) requestDelete(task domain.Task) (tea.Model, tea.Cmd) {
	m.cancelDrag()
	if m.confirmDelete {
		m.mode = modeConfirmDelete
		m.pendingDeleteID = task.ID
		m.status = "confirm delete"
		return m, nil
	}
	return m, m.deleteTaskCmd(task.ID)
}

func (m Model) deleteTaskCmd(taskID string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if err := svc.DeleteTask(context.Background(), taskID); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "task deleted"}
	}
}

// moveSelectedAcross appends the task to the adjacent column.
func (m Model) moveSelectedAcross(task domain.Task, delta int) (tea.Model, tea.Cmd) {
	keys := domain.Columns()
	next := m.selectedColumn + delta
	if next < 0 || next >= len(keys) {
		return m, nil
	}
	to := keys[next]
	return m, m.moveTaskCmd(task.ID, to, m.board.Count(to), "moved to "+to.Name())
}

// moveSelectedWithin shifts the task one slot inside its column.
func (m Model) moveSelectedWithin(task domain.Task, delta int) (tea.Model, tea.Cmd) {
	column := m.currentColumn()
	idx := m.selectedTask + delta
	if idx < 0 || idx >= m.board.Count(column) {
		return m, nil
	}
	return m, m.moveTaskCmd(task.ID, column, idx, "task reordered")
}

func (m Model) moveTaskCmd(taskID string, to domain.ColumnKey, index int, status string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		moved, err := svc.MoveTask(context.Background(), taskID, to, index)
		if err != nil {
			return actionMsg{err: err, focusTaskID: taskID}
		}
		if !moved {
			return actionMsg{focusTaskID: taskID}
		}
		return actionMsg{status: status, focusTaskID: taskID}
	}
}

func (m Model) copyTextCmd(task domain.Task) tea.Cmd {
	write := m.copyToClipboard
	text := task.Text
	return func() tea.Msg {
		if err := write(text); err != nil {
			return actionMsg{err: fmt.Errorf("copy to clipboard: %w", err)}
		}
		return actionMsg{status: "copied task text"}
	}
}

// cancelDrag drops any gesture in progress.
func (m *Model) cancelDrag() {
	if m.drag.Dragging() {
		m.drag.Cancel()
		m.status = "drag cancelled"
	}
}

// closeStaleMode closes editors whose task vanished on reload.
func (m *Model) closeStaleMode() {
	var taskID string
	switch m.mode {
	case modeEditText:
		taskID = m.editTaskID
	case modePriority:
		taskID = m.popupTaskID
	case modeTaskInfo:
		taskID = m.infoTaskID
	case modeConfirmDelete:
		taskID = m.pendingDeleteID
	default:
		return
	}
	if _, ok := m.board.Task(taskID); ok {
		return
	}
	if m.mode == modeEditText {
		m.input.Blur()
	}
	m.mode = modeNone
	m.editTaskID, m.popupTaskID, m.infoTaskID, m.pendingDeleteID = "", "", "", ""
}

func (m Model) currentColumn() domain.ColumnKey {
	keys := domain.Columns()
	return keys[clamp(m.selectedColumn, 0, len(keys)-1)]
}

func (m Model) selectedTaskInColumn() (domain.Task, bool) {
	tasks := m.board.Tasks(m.currentColumn())
	if m.selectedTask < 0 || m.selectedTask >= len(tasks) {
		return domain.Task{}, false
	}
	return tasks[m.selectedTask], true
}

func (m *Model) clampSelection() {
	m.selectedColumn = clamp(m.selectedColumn, 0, len(domain.Columns())-1)
	m.selectedTask = clamp(m.selectedTask, 0, max(0, m.board.Count(m.currentColumn())-1))
}

func (m *Model) focusTaskByID(taskID string) {
	column, idx, ok := m.board.Locate(taskID)
	if !ok {
		return
	}
	m.selectedColumn = column.Index()
	m.selectedTask = idx
}

// displayBoard is the board as drawn: the drag preview while a gesture is
// active, the model otherwise.
func (m Model) displayBoard() domain.Board {
	return m.drag.Preview(m.board)
}

// geometry lays out the frame currently on screen.
func (m Model) geometry() boardGeometry {
	return computeLayout(m.displayBoard(), m.width, m.height, m.showHelp, m.offsets)
}

// ensureSelectionVisible scrolls the selected column to keep the selected
// task on screen.
func (m *Model) ensureSelectionVisible() {
	if !m.ready || m.selectedColumn >= len(m.offsets) {
		return
	}
	offsets := append([]int(nil), m.offsets...)
	col := computeLayout(m.board, m.width, m.height, m.showHelp, offsets).columns[m.selectedColumn]
	switch {
	case m.selectedTask < col.offset:
		offsets[m.selectedColumn] = m.selectedTask
	case len(col.cards) > 0 && m.selectedTask > col.cards[len(col.cards)-1].index:
		offsets[m.selectedColumn] = col.offset + m.selectedTask - col.cards[len(col.cards)-1].index
	default:
		offsets[m.selectedColumn] = col.offset
	}
	m.offsets = offsets
}

func priorityIndex(priority domain.Priority) int {
	for idx, p := range priorityOptions {
		if p == priority {
			return idx
		}
	}
	return 1
}

func cyclePriority(current domain.Priority, delta int) domain.Priority {
	return priorityOptions[wrapIndex(priorityIndex(current), delta, len(priorityOptions))]
}

func wrapIndex(current, delta, total int) int {
	if total <= 0 {
		return 0
	}
	return ((current+delta)%total + total) % total
}

func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// isNotFound reports whether err means the task is gone.
func isNotFound(err error) bool {
	return errors.Is(err, app.ErrNotFound)
}
