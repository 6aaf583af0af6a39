package registry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricmgr/fabricmgr/internal/apperrors"
	"github.com/fabricmgr/fabricmgr/internal/logger"
)

type runnerModule struct {
	name    string
	lastReq *Request
	result  Result
	err     error
}

func (m *runnerModule) Name() string        { return m.name }
func (m *runnerModule) Description() string { return "runner module" }

func (m *runnerModule) Run(_ context.Context, req Request) (Result, error) {
	m.lastReq = &req
	if m.result == nil {
		return Result{KeyStatus: StatusSuccess}, m.err
	}
	return m.result, m.err
}

type commandModule struct {
	runnerModule
	commands map[string]EntryPoint
}

func (m *commandModule) Command(name string) (EntryPoint, bool) {
	entry, ok := m.commands[name]
	return entry, ok
}

type inertModule struct{ name string }

func (m *inertModule) Name() string        { return m.name }
func (m *inertModule) Description() string { return "no entry points" }

func newTestRegistry() (*Registry, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewRegistry(logger.NewWithOutput(&buf, "registry-test")), &buf
}

func TestInvokeDefaultEntryPoint(t *testing.T) {
	r, _ := newTestRegistry()
	mod := &runnerModule{name: "azure"}
	r.Register(mod)

	result, err := r.Invoke(context.Background(), "azure", Request{SubscriptionID: "sub-1"}, "")

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status())
	require.NotNil(t, mod.lastReq)
	assert.Equal(t, "sub-1", mod.lastReq.SubscriptionID)
	assert.Empty(t, mod.lastReq.Command)
}

func TestInvokeNamedCommandNoInjection(t *testing.T) {
	r, _ := newTestRegistry()
	var seen *Request
	mod := &commandModule{
		runnerModule: runnerModule{name: "azure"},
		commands: map[string]EntryPoint{
			"visualize": func(_ context.Context, req Request) (Result, error) {
				seen = &req
				return Result{KeyStatus: StatusSuccess}, nil
			},
		},
	}
	r.Register(mod)

	_, err := r.Invoke(context.Background(), "azure", Request{OutputDir: "/tmp/out"}, "visualize")

	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Empty(t, seen.Command, "direct command dispatch must not inject the command name")
	assert.Equal(t, "/tmp/out", seen.OutputDir)
	assert.Nil(t, mod.lastReq, "default entry point must not run on a command hit")
}

func TestInvokeFallbackInjectsCommand(t *testing.T) {
	r, buf := newTestRegistry()
	mod := &runnerModule{name: "powerbi"}
	r.Register(mod)

	_, err := r.Invoke(context.Background(), "powerbi", Request{}, "scan")

	require.NoError(t, err)
	require.NotNil(t, mod.lastReq)
	assert.Equal(t, "scan", mod.lastReq.Command)
	assert.Contains(t, buf.String(), "falling back to default entry point")
}

func TestInvokeUnknownModule(t *testing.T) {
	r, _ := newTestRegistry()

	_, err := r.Invoke(context.Background(), "nosuch", Request{}, "")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeModuleNotFound))
	assert.Contains(t, err.Error(), "nosuch")
}

func TestInvokeNoEntryPoint(t *testing.T) {
	r, _ := newTestRegistry()
	r.Register(&inertModule{name: "inert"})

	tests := []struct {
		name    string
		command string
	}{
		{"without command", ""},
		{"with command", "collect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Invoke(context.Background(), "inert", Request{}, tt.command)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeEntryPointMissing))
		})
	}
}

func TestInvokeErrorPropagatesUnwrapped(t *testing.T) {
	r, buf := newTestRegistry()
	boom := errors.New("collection exploded")
	r.Register(&runnerModule{name: "azure", err: boom})

	_, err := r.Invoke(context.Background(), "azure", Request{}, "")

	assert.Equal(t, boom, err)
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestRegisterDuplicateReplaces(t *testing.T) {
	r, buf := newTestRegistry()
	first := &runnerModule{name: "azure"}
	second := &runnerModule{name: "azure"}
	r.Register(first)
	r.Register(second)

	_, err := r.Invoke(context.Background(), "azure", Request{}, "")
	require.NoError(t, err)
	assert.Nil(t, first.lastReq)
	assert.NotNil(t, second.lastReq)
	assert.Contains(t, buf.String(), "replacing registered module")
}

func TestListSorted(t *testing.T) {
	r, _ := newTestRegistry()
	for _, name := range []string{"powerbi", "azure", "reports", "fabric"} {
		r.Register(&runnerModule{name: name})
	}

	modules := r.List()
	names := make([]string, 0, len(modules))
	for _, m := range modules {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"azure", "fabric", "powerbi", "reports"}, names)
	assert.True(t, r.Has("fabric"))
	assert.False(t, r.Has("gone"))
}

func TestResultAccessors(t *testing.T) {
	result := Result{
		KeyStatus:  StatusSuccess,
		KeySummary: map[string]int{"resources": 6},
	}
	assert.Equal(t, StatusSuccess, result.Status())
	assert.Equal(t, 6, result.Summary()["resources"])

	empty := Result{}
	assert.Empty(t, empty.Status())
	assert.Nil(t, empty.Summary())
}

func TestInvokeLogsModuleAndCommand(t *testing.T) {
	r, buf := newTestRegistry()
	r.Register(&runnerModule{name: "azure"})

	_, err := r.Invoke(context.Background(), "azure", Request{}, "")
	require.NoError(t, err)

	logged := buf.String()
	assert.True(t, strings.Contains(logged, `"module":"azure"`))
	assert.True(t, strings.Contains(logged, "module invocation complete"))
}
