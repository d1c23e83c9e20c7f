package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	started []StartAutomation
	runs    []RunImmediately
	closed  []string
	err     error
}

func (r *recorder) StartAutomation(ctx context.Context, req StartAutomation) (Response, error) {
	r.started = append(r.started, req)
	return Response{Success: true}, r.err
}

func (r *recorder) RunImmediately(ctx context.Context, req RunImmediately) (Response, error) {
	r.runs = append(r.runs, req)
	return Response{Success: true, RunID: "run-1"}, r.err
}

func (r *recorder) CloseTab(ctx context.Context, tabID string) (Response, error) {
	r.closed = append(r.closed, tabID)
	return Response{Success: true}, r.err
}

func TestDecodeVariants(t *testing.T) {
	tests := []struct {
		raw  string
		want Request
	}{
		{`{"action":"startAutomation","prompt":"hi"}`, StartAutomation{Prompt: "hi"}},
		{`{"action":"runImmediately","prompt":".","model":"claude-3-5-haiku-20241022"}`, RunImmediately{Prompt: ".", Model: "claude-3-5-haiku-20241022"}},
		{`{"action":"closeTab","tabId":"t1"}`, CloseTab{TabID: "t1"}},
		{`{"action":"closeCurrentTab"}`, CloseCurrentTab{}},
	}
	for _, tt := range tests {
		got, err := Decode([]byte(tt.raw))
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got)
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte(`{"action":"selfDestruct"}`))
	assert.True(t, errors.Is(err, ErrUnknownAction))

	_, err = Decode([]byte(`{}`))
	assert.True(t, errors.Is(err, ErrMalformed))

	_, err = Decode([]byte(`not json`))
	assert.True(t, errors.Is(err, ErrMalformed))

	_, err = Decode([]byte(`{"action":"startAutomation","prompt":5}`))
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestEncodeRoundTrip(t *testing.T) {
	raw, err := Encode(RunImmediately{Prompt: "p", Model: "m"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"runImmediately","prompt":"p","model":"m"}`, string(raw))

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, RunImmediately{Prompt: "p", Model: "m"}, got)
}

func TestDispatchRoutes(t *testing.T) {
	rec := &recorder{}
	d := New(rec)
	ctx := context.Background()

	resp, err := d.DispatchRaw(ctx, []byte(`{"action":"runImmediately","prompt":"x"}`))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, []RunImmediately{{Prompt: "x"}}, rec.runs)

	_, err = d.Dispatch(ctx, StartAutomation{TabID: "a", Prompt: "y"})
	require.NoError(t, err)
	assert.Equal(t, "a", rec.started[0].TabID)

	_, err = d.Dispatch(ctx, CloseTab{TabID: "t1"})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, CloseCurrentTab{TabID: "t2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, rec.closed)
}

func TestDispatchHandlerError(t *testing.T) {
	rec := &recorder{err: errors.New("tab gone")}
	d := New(rec)

	resp, err := d.Dispatch(context.Background(), CloseTab{TabID: "x"})
	assert.EqualError(t, err, "tab gone")
	assert.False(t, resp.Success)
	assert.Equal(t, "tab gone", resp.Error)
}

type bogus struct{}

func (bogus) Action() Action { return "bogus" }

func TestDispatchUnknown(t *testing.T) {
	d := New(&recorder{})
	resp, err := d.Dispatch(context.Background(), bogus{})
	assert.True(t, errors.Is(err, ErrUnknownAction))
	assert.False(t, resp.Success)

	_, err = d.Dispatch(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrUnknownAction))
}

func TestActions(t *testing.T) {
	d := New(&recorder{})
	assert.Equal(t, []Action{ActionCloseCurrentTab, ActionCloseTab, ActionRunImmediately, ActionStartAutomation}, d.Actions())
}
