package framework

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hello-kubecon/internal/logger"
	"hello-kubecon/internal/metrics"
)

var ErrActionFailed = errors.New("action failed")

/**
 * Result of one dispatched event
 * @property {string} event - Hook or action name
 * @property {string} status - "ok" or "failed"
 * @property {map[string]string} results - Action results, empty for hooks
 * @property {string} message - Failure message of an action
 */
type Outcome struct {
	Event    string            `json:"event"`
	Status   string            `json:"status"`
	Results  map[string]string `json:"results,omitempty"`
	Message  string            `json:"message,omitempty"`
	Duration time.Duration     `json:"duration"`
}

const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Dispatcher runs events against a handler one at a time.
type Dispatcher struct {
	handler Handler
	mutex   sync.Mutex
}

func NewDispatcher(handler Handler) *Dispatcher {
	return &Dispatcher{handler: handler}
}

/**
 * 分发一个事件
 * @param {context.Context} ctx - Passed through to the handler
 * @param {Event} ev - Event to run
 * @returns {*Outcome} Outcome, also returned with a failed action
 * @returns {error} Handler error, ErrUnknownEvent or ErrActionFailed
 * @description
 * - 同一时刻只运行一个事件
 * - 动作的处理错误转换为 ActionEvent.Fail
 */
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (*Outcome, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	start := time.Now()
	outcome := &Outcome{Event: ev.Name(), Status: OutcomeOK}
	logger.Infof("Dispatching event '%s'", ev.Name())

	var err error
	switch ev.Kind {
	case EventInstall:
		err = d.handler.OnInstall(ctx)
	case EventConfigChanged:
		err = d.handler.OnConfigChanged(ctx)
	case EventAction:
		err = d.dispatchAction(ctx, ev, outcome)
	default:
		err = fmt.Errorf("%w: kind %q", ErrUnknownEvent, ev.Kind)
	}
	outcome.Duration = time.Since(start)

	if err != nil {
		outcome.Status = OutcomeFailed
		if outcome.Message == "" {
			outcome.Message = err.Error()
		}
		metrics.IncEvent(string(ev.Kind), OutcomeFailed)
		logger.Errorf("Event '%s' failed: %v", ev.Name(), err)
		return outcome, err
	}
	metrics.IncEvent(string(ev.Kind), OutcomeOK)
	logger.Infof("Event '%s' done in %s", ev.Name(), outcome.Duration)
	return outcome, nil
}

/**
 * 在分发锁内执行fn
 * @param {func() error} fn - Work that mutates what event handlers own
 * @returns {error} Error of fn
 * @description
 * - 与 Dispatch 共用一把锁，fn 不会和事件交叉执行
 */
func (d *Dispatcher) Exclusive(fn func() error) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return fn()
}

func (d *Dispatcher) dispatchAction(ctx context.Context, ev Event, outcome *Outcome) error {
	action := NewActionEvent(ev.Action, ev.Params)

	var err error
	switch ev.Action {
	case ActionPullSite:
		err = d.handler.OnPullSiteAction(ctx, action)
	default:
		return fmt.Errorf("%w: action %q", ErrUnknownEvent, ev.Action)
	}
	if err != nil {
		action.Fail(err.Error())
	}
	if msg, failed := action.Failed(); failed {
		outcome.Message = msg
		if err == nil {
			err = fmt.Errorf("%w: %s", ErrActionFailed, msg)
		} else {
			err = fmt.Errorf("%w: %w", ErrActionFailed, err)
		}
		return err
	}
	outcome.Results = action.Results()
	return nil
}
