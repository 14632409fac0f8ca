package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/config"
	"github.com/ugparu/vkvideo/layer"
	"github.com/ugparu/vkvideo/params"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/session"
	"github.com/ugparu/vkvideo/std"
	"github.com/ugparu/vkvideo/utils/lifecycle"
)

type fixture struct {
	server    *Server
	session   vkvideo.Handle
	params    vkvideo.Handle
	collector *report.Collector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	collector := report.NewCollector(0)
	dev := layer.New(profile.DefaultProvider(), collector)

	s, diags := dev.CreateVideoSession(session.CreateInfo{
		Profile:                    profile.H264DecodeProfile,
		MaxCodedExtent:             vkvideo.Extent2D{Width: 1920, Height: 1088},
		MaxDpbSlots:                4,
		MaxActiveReferencePictures: 4,
		MemoryBindingCount:         2,
	})
	require.Empty(t, diags)
	p, diags, err := dev.CreateVideoSessionParameters(s, vkvideo.NullHandle, params.CreateInfo{
		H264: &params.H264CreateInfo{MaxStdSPSCount: 2, MaxStdPPSCount: 2, Add: &params.H264AddInfo{
			SPS: []std.H264SequenceParameterSet{{SeqParameterSetID: 0}},
			PPS: []std.H264PictureParameterSet{{PicParameterSetID: 1}, {PicParameterSetID: 1}},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{params.RuleDuplicateKey}, diags.Rules())

	settings := config.Default()
	settings.Pprof = true
	settings.DebugAddr = "127.0.0.1:0"
	return &fixture{server: New(dev, collector, settings), session: s, params: p, collector: collector}
}

func (f *fixture) get(t *testing.T, method, path string, out any) int {
	t.Helper()
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, httptest.NewRequest(method, path, nil))
	if out != nil && w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w.Code
}

func TestSessions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var all []sessionView
	require.Equal(t, http.StatusOK, f.get(t, http.MethodGet, "/sessions", &all))
	require.Len(t, all, 1)
	require.Equal(t, f.session.String(), all[0].Handle)
	require.Equal(t, "DECODE_H264", all[0].Operation)
	require.False(t, all[0].MemoryBound)
	require.Equal(t, []uint32{0, 1}, all[0].UnboundIndices)

	var one sessionView
	require.Equal(t, http.StatusOK, f.get(t, http.MethodGet, "/sessions/"+f.session.String(), &one))
	require.Equal(t, all[0], one)

	require.Equal(t, http.StatusNotFound, f.get(t, http.MethodGet, "/sessions/0x1", nil))
	require.Equal(t, http.StatusBadRequest, f.get(t, http.MethodGet, "/sessions/abc", nil))
}

func TestParameters(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var p parametersView
	require.Equal(t, http.StatusOK, f.get(t, http.MethodGet, "/parameters/"+f.params.String(), &p))
	require.Equal(t, f.session.String(), p.Session)
	require.Equal(t, 1, p.Counts.SPS)
	require.Zero(t, p.Counts.PPS)

	var all []parametersView
	require.Equal(t, http.StatusOK, f.get(t, http.MethodGet, "/parameters", &all))
	require.Equal(t, []parametersView{p}, all)
	require.Equal(t, http.StatusNotFound, f.get(t, http.MethodGet, "/parameters/"+f.session.String(), nil))
}

func TestDiagnostics(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var out struct {
		Total       uint64           `json:"total"`
		Diagnostics []DiagnosticView `json:"diagnostics"`
	}
	require.Equal(t, http.StatusOK, f.get(t, http.MethodGet, "/diagnostics", &out))
	require.Equal(t, uint64(1), out.Total)
	require.Len(t, out.Diagnostics, 1)
	require.Equal(t, params.RuleDuplicateKey, out.Diagnostics[0].Rule)
	require.Equal(t, []string{f.session.String(), f.params.String()}, out.Diagnostics[0].Objects)

	require.Equal(t, http.StatusOK, f.get(t, http.MethodGet, "/diagnostics?rule=other", &out))
	require.Empty(t, out.Diagnostics)

	require.Equal(t, http.StatusNoContent, f.get(t, http.MethodDelete, "/diagnostics", nil))
	require.Empty(t, f.collector.Snapshot())
}

func TestCapabilities(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var all []CapabilityView
	require.Equal(t, http.StatusOK, f.get(t, http.MethodGet, "/capabilities", &all))
	require.Len(t, all, len(profile.DefaultProvider().Profiles()))
	require.Equal(t, "DECODE_H264", all[0].Operation)

	var av1 []CapabilityView
	require.Equal(t, http.StatusOK, f.get(t, http.MethodGet, "/capabilities?operation=ENCODE_AV1", &av1))
	require.NotEmpty(t, av1)
	for _, v := range av1 {
		require.Equal(t, "ENCODE_AV1", v.Operation)
		require.NotNil(t, v.Capabilities)
		require.NotNil(t, v.Capabilities.AV1Encode)
	}
}

func TestPprofRegistered(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.get(t, http.MethodGet, "/debug/pprof/cmdline", nil))
}

func TestListenAndClose(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.server.Listen())
	require.NotEqual(t, "127.0.0.1:0", f.server.Addr())

	resp, err := http.Get("http://" + f.server.Addr() + "/sessions") //nolint:noctx
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	err = f.server.Listen()
	target := &lifecycle.StartedAlreadyError{}
	require.ErrorAs(t, err, &target)

	f.server.Close()
	<-f.server.Dead()
}
