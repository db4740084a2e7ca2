package framework

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

type EventKind string

const (
	EventInstall       EventKind = "install"
	EventConfigChanged EventKind = "config-changed"
	EventAction        EventKind = "action"

	ActionPullSite = "pull-site"
)

var ErrUnknownEvent = errors.New("unknown event")

/**
 * 一个生命周期事件
 * @property {EventKind} kind - install/config-changed/action
 * @property {string} action - Action name, only set for action events
 * @property {map[string]string} params - Action parameters
 */
type Event struct {
	Kind   EventKind         `json:"kind"`
	Action string            `json:"action,omitempty"`
	Params map[string]string `json:"params,omitempty"`
}

func (e Event) Name() string {
	if e.Kind == EventAction {
		return e.Action
	}
	return string(e.Kind)
}

// Handler has one method per event kind the unit reacts to.
type Handler interface {
	OnInstall(ctx context.Context) error
	OnConfigChanged(ctx context.Context) error
	OnPullSiteAction(ctx context.Context, event *ActionEvent) error
}

var hooks = map[string]EventKind{
	string(EventInstall):       EventInstall,
	string(EventConfigChanged): EventConfigChanged,
}

var actions = map[string]struct{}{
	ActionPullSite: {},
}

// ParseHook maps a hook name to its event
func ParseHook(name string) (Event, error) {
	kind, ok := hooks[name]
	if !ok {
		return Event{}, fmt.Errorf("%w: hook %q", ErrUnknownEvent, name)
	}
	return Event{Kind: kind}, nil
}

// ParseAction maps an action name to its event
func ParseAction(name string, params map[string]string) (Event, error) {
	if _, ok := actions[name]; !ok {
		return Event{}, fmt.Errorf("%w: action %q", ErrUnknownEvent, name)
	}
	return Event{Kind: EventAction, Action: name, Params: params}, nil
}

// ParseEvent accepts either a hook or an action name
func ParseEvent(name string) (Event, error) {
	if ev, err := ParseHook(name); err == nil {
		return ev, nil
	}
	return ParseAction(name, nil)
}

func HookNames() []string {
	names := make([]string, 0, len(hooks))
	for name := range hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ActionNames() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

/**
 * ActionEvent 由动作处理函数填写结果
 * @description
 * - SetResults 合并结果
 * - Fail 标记失败，失败后的结果不会返回给调用方
 */
type ActionEvent struct {
	Name   string
	Params map[string]string

	mutex   sync.Mutex
	results map[string]string
	failed  bool
	message string
}

func NewActionEvent(name string, params map[string]string) *ActionEvent {
	return &ActionEvent{Name: name, Params: params}
}

func (a *ActionEvent) SetResults(results map[string]string) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.results == nil {
		a.results = make(map[string]string, len(results))
	}
	for k, v := range results {
		a.results[k] = v
	}
}

func (a *ActionEvent) Fail(message string) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.failed = true
	a.message = message
}

func (a *ActionEvent) Results() map[string]string {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.failed {
		return nil
	}
	out := make(map[string]string, len(a.results))
	for k, v := range a.results {
		out[k] = v
	}
	return out
}

// Failed returns the failure message and whether Fail was called
func (a *ActionEvent) Failed() (string, bool) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.message, a.failed
}
