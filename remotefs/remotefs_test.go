package remotefs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sos/defs"
)

type recordingTransport struct {
	lastReq Request
}

func (t *recordingTransport) Send(req Request, deliver func(any, defs.Err_t)) {
	t.lastReq = req
	deliver([]byte("payload"), defs.OK)
}

func TestReadAsyncDeliversCompletion(t *testing.T) {
	tr := &recordingTransport{}
	c := New(tr)
	c.ReadAsync(7, 100, 8, "tag1")

	select {
	case comp := <-c.Completions:
		require.Equal(t, defs.OK, comp.Err)
		require.Equal(t, "payload", string(comp.Data))
		require.Equal(t, Handle(7), comp.Req.File)
		require.Equal(t, "tag1", comp.Req.Token)
	case <-time.After(time.Second):
		t.Fatal("no completion delivered")
	}
}

func TestWriteAsyncDeliversError(t *testing.T) {
	tr := &errTransport{}
	c := New(tr)
	c.WriteAsync(1, 0, []byte("x"), nil)

	select {
	case comp := <-c.Completions:
		require.Equal(t, defs.ERemoteIOFailure, comp.Err)
	case <-time.After(time.Second):
		t.Fatal("no completion delivered")
	}
}

type errTransport struct{}

func (errTransport) Send(req Request, deliver func(any, defs.Err_t)) {
	deliver(nil, defs.ERemoteIOFailure)
}

type openTransport struct{}

func (openTransport) Send(req Request, deliver func(any, defs.Err_t)) {
	switch req.Kind {
	case ReqOpen:
		deliver(&OpenResult{Handle: 42, Size: 1024}, defs.OK)
	case ReqStat:
		deliver(&StatResult{Size: 1024, IsDir: false}, defs.OK)
	case ReqGetdirent:
		deliver(&DirentResult{Names: []string{"a", "b"}}, defs.OK)
	default:
		deliver(nil, defs.ERemoteIOFailure)
	}
}

func TestOpenAsyncDeliversHandleAndSize(t *testing.T) {
	c := New(openTransport{})
	c.OpenAsync("/remote/5", "tag")

	comp := <-c.Completions
	require.Equal(t, defs.OK, comp.Err)
	require.Equal(t, Handle(42), comp.Handle)
	require.EqualValues(t, 1024, comp.Size)
}

func TestStatAsyncDeliversSizeAndKind(t *testing.T) {
	c := New(openTransport{})
	c.StatAsync(42, "tag")

	comp := <-c.Completions
	require.Equal(t, defs.OK, comp.Err)
	require.EqualValues(t, 1024, comp.Size)
	require.False(t, comp.IsDir)
}

func TestGetdirentAsyncDeliversNames(t *testing.T) {
	c := New(openTransport{})
	c.GetdirentAsync(42, 0, "tag")

	comp := <-c.Completions
	require.Equal(t, defs.OK, comp.Err)
	require.Equal(t, []string{"a", "b"}, comp.Names)
}

func TestFileCloseAndReopenAdjustRefcount(t *testing.T) {
	c := New(openTransport{})
	f := NewFile(c, 42, 1024)
	require.Equal(t, defs.OK, f.Reopen())
	require.Equal(t, defs.OK, f.Close())
	require.Equal(t, defs.OK, f.Close())
}
