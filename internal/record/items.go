package record

import "time"

// Script is a named shell command registered for a project root.
type Script struct {
	Name        string            `json:"name" yaml:"name"`
	Command     string            `json:"command" yaml:"command"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Cwd         string            `json:"cwd,omitempty" yaml:"cwd,omitempty"`
	Env         map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	CreatedAt   time.Time         `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt" yaml:"updatedAt"`
}

// Terminal layouts accepted in TerminalCollection.Layout.
const (
	LayoutTabs    = "tabs"
	LayoutSplit   = "split"
	LayoutWindows = "windows"
)

// Terminal describes one terminal to open as part of a collection.
type Terminal struct {
	Name    string `json:"name" yaml:"name"`
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
	Cwd     string `json:"cwd,omitempty" yaml:"cwd,omitempty"`
}

// TerminalCollection is a named group of terminals opened together.
type TerminalCollection struct {
	Name      string     `json:"name" yaml:"name"`
	Terminals []Terminal `json:"terminals" yaml:"terminals"`
	Layout    string     `json:"layout,omitempty" yaml:"layout,omitempty"`
	CreatedAt time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" yaml:"updatedAt"`
}

// Session ties a project root to the scripts and terminals a developer
// works with. IDs are assigned on create and never change.
type Session struct {
	ID                 string     `json:"id" yaml:"id"`
	Name               string     `json:"name" yaml:"name"`
	RootPath           string     `json:"rootPath" yaml:"rootPath"`
	Branch             string     `json:"branch,omitempty" yaml:"branch,omitempty"`
	Scripts            []string   `json:"scripts,omitempty" yaml:"scripts,omitempty"`
	TerminalCollection string     `json:"terminalCollection,omitempty" yaml:"terminalCollection,omitempty"`
	CreatedAt          time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt" yaml:"updatedAt"`
	LastOpenedAt       *time.Time `json:"lastOpenedAt,omitempty" yaml:"lastOpenedAt,omitempty"`
}
