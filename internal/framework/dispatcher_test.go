package framework

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hello-kubecon/internal/metrics"
)

type fakeHandler struct {
	calls     []string
	err       error
	failMsg   string
	active    int32
	overlap   int32
	hookDelay time.Duration
	mutex     sync.Mutex
}

func (h *fakeHandler) record(name string) {
	if atomic.AddInt32(&h.active, 1) > 1 {
		atomic.StoreInt32(&h.overlap, 1)
	}
	time.Sleep(h.hookDelay)
	h.mutex.Lock()
	h.calls = append(h.calls, name)
	h.mutex.Unlock()
	atomic.AddInt32(&h.active, -1)
}

func (h *fakeHandler) OnInstall(ctx context.Context) error {
	h.record("install")
	return h.err
}

func (h *fakeHandler) OnConfigChanged(ctx context.Context) error {
	h.record("config-changed")
	return h.err
}

func (h *fakeHandler) OnPullSiteAction(ctx context.Context, event *ActionEvent) error {
	h.record("pull-site")
	if h.err != nil {
		return h.err
	}
	if h.failMsg != "" {
		event.Fail(h.failMsg)
		return nil
	}
	event.SetResults(map[string]string{"result": "site pulled"})
	return nil
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent("install")
	require.NoError(t, err)
	assert.Equal(t, Event{Kind: EventInstall}, ev)

	ev, err = ParseEvent("config-changed")
	require.NoError(t, err)
	assert.Equal(t, EventConfigChanged, ev.Kind)

	ev, err = ParseEvent("pull-site")
	require.NoError(t, err)
	assert.Equal(t, EventAction, ev.Kind)
	assert.Equal(t, "pull-site", ev.Name())

	_, err = ParseEvent("upgrade-charm")
	assert.True(t, errors.Is(err, ErrUnknownEvent))

	_, err = ParseHook("pull-site")
	assert.True(t, errors.Is(err, ErrUnknownEvent))
	_, err = ParseAction("install", nil)
	assert.True(t, errors.Is(err, ErrUnknownEvent))
}

func TestDispatchHooks(t *testing.T) {
	h := &fakeHandler{}
	d := NewDispatcher(h)
	before := testutil.ToFloat64(metrics.EventCounter("config-changed", OutcomeOK))

	out, err := d.Dispatch(context.Background(), Event{Kind: EventInstall})
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, out.Status)
	_, err = d.Dispatch(context.Background(), Event{Kind: EventConfigChanged})
	require.NoError(t, err)

	assert.Equal(t, []string{"install", "config-changed"}, h.calls)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.EventCounter("config-changed", OutcomeOK)))
}

func TestDispatchHookError(t *testing.T) {
	boom := errors.New("boom")
	d := NewDispatcher(&fakeHandler{err: boom})

	out, err := d.Dispatch(context.Background(), Event{Kind: EventConfigChanged})
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, OutcomeFailed, out.Status)
	assert.Equal(t, "boom", out.Message)
}

func TestDispatchAction(t *testing.T) {
	d := NewDispatcher(&fakeHandler{})

	out, err := d.Dispatch(context.Background(), Event{Kind: EventAction, Action: ActionPullSite})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"result": "site pulled"}, out.Results)
}

func TestDispatchActionFailure(t *testing.T) {
	boom := errors.New("download failed")
	d := NewDispatcher(&fakeHandler{err: boom})

	out, err := d.Dispatch(context.Background(), Event{Kind: EventAction, Action: ActionPullSite})
	assert.True(t, errors.Is(err, ErrActionFailed))
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, "download failed", out.Message)
	assert.Nil(t, out.Results)

	d = NewDispatcher(&fakeHandler{failMsg: "explicit"})
	out, err = d.Dispatch(context.Background(), Event{Kind: EventAction, Action: ActionPullSite})
	assert.True(t, errors.Is(err, ErrActionFailed))
	assert.Equal(t, "explicit", out.Message)
}

func TestDispatchUnknownAction(t *testing.T) {
	h := &fakeHandler{}
	d := NewDispatcher(h)

	_, err := d.Dispatch(context.Background(), Event{Kind: EventAction, Action: "missing"})
	assert.True(t, errors.Is(err, ErrUnknownEvent))
	assert.Empty(t, h.calls)
}

func TestDispatchSerialized(t *testing.T) {
	h := &fakeHandler{hookDelay: 10 * time.Millisecond}
	d := NewDispatcher(h)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Dispatch(context.Background(), Event{Kind: EventConfigChanged})
		}()
	}
	wg.Wait()

	assert.Len(t, h.calls, 5)
	assert.Zero(t, atomic.LoadInt32(&h.overlap))
}

func TestExclusiveWaitsForDispatch(t *testing.T) {
	h := &fakeHandler{hookDelay: 50 * time.Millisecond}
	d := NewDispatcher(h)

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Dispatch(context.Background(), Event{Kind: EventConfigChanged})
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&h.active) == 1 }, time.Second, time.Millisecond)

	var during int32
	err := d.Exclusive(func() error {
		during = atomic.LoadInt32(&h.active)
		return errors.New("exclusive failed")
	})
	<-done

	assert.EqualError(t, err, "exclusive failed")
	assert.Zero(t, during)
	assert.Equal(t, []string{"config-changed"}, h.calls)
}

func TestActionEventFailDropsResults(t *testing.T) {
	ev := NewActionEvent(ActionPullSite, nil)
	ev.SetResults(map[string]string{"result": "partial"})
	ev.Fail("nope")

	assert.Nil(t, ev.Results())
	msg, failed := ev.Failed()
	assert.True(t, failed)
	assert.Equal(t, "nope", msg)
}
