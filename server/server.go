// Package server exposes the tracked video objects and the collected diagnostics over HTTP.
package server

import (
	"errors"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/config"
	"github.com/ugparu/vkvideo/layer"
	"github.com/ugparu/vkvideo/params"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/session"
	"github.com/ugparu/vkvideo/utils/lifecycle"
	"github.com/ugparu/vkvideo/utils/logger"
)

const readHeaderTimeout = 5 * time.Second

type Server struct {
	lifecycle.Manager[*Server]
	dev       *layer.Device
	collector *report.Collector
	router    *gin.Engine
	server    *http.Server
	listener  net.Listener
	deadChan  chan struct{}
}

// New builds the router for dev. collector may be nil, in which case /diagnostics is empty.
func New(dev *layer.Device, collector *report.Collector, settings config.Settings) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if settings.Pprof {
		pprof.Register(router)
	}

	s := &Server{
		dev:       dev,
		collector: collector,
		router:    router,
		server: &http.Server{
			Addr:              settings.DebugAddr,
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		deadChan: make(chan struct{}),
	}
	s.Manager = lifecycle.NewDefaultManager(s)

	router.GET("/sessions", s.getSessions)
	router.GET("/sessions/:handle", s.getSession)
	router.GET("/parameters", s.getAllParameters)
	router.GET("/parameters/:handle", s.getParameters)
	router.GET("/diagnostics", s.getDiagnostics)
	router.DELETE("/diagnostics", s.resetDiagnostics)
	router.GET("/capabilities", s.getCapabilities)

	logger.Debug(s, "Initialized and set up")
	return s
}

func (s *Server) String() string {
	return "DEBUG_SERVER"
}

// Handler returns the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Listen binds the configured address and serves in the background.
func (s *Server) Listen() error {
	return s.Start(func(s *Server) error {
		l, err := net.Listen("tcp", s.server.Addr)
		if err != nil {
			return err
		}
		s.listener = l
		go func() {
			defer close(s.deadChan)
			logger.Infof(s, "Listening on %s", l.Addr())
			if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warning(s, err.Error())
			}
		}()
		return nil
	})
}

// Dead is closed when the server stops serving.
func (s *Server) Dead() <-chan struct{} {
	return s.deadChan
}

func (s *Server) Close_() { //nolint:revive
	logger.Warning(s, "Stopping and closing")
	if err := s.server.Close(); err != nil {
		logger.Warning(s, err.Error())
	}
}

func parseHandle(c *gin.Context) (vkvideo.Handle, bool) {
	h, err := strconv.ParseUint(c.Param("handle"), 0, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid handle " + c.Param("handle")})
		return vkvideo.NullHandle, false
	}
	return vkvideo.Handle(h), true
}

type sessionView struct {
	Handle                     string   `json:"handle"`
	Operation                  string   `json:"operation"`
	Profile                    string   `json:"profile"`
	MaxCodedExtent             string   `json:"max_coded_extent"`
	MaxDpbSlots                uint32   `json:"max_dpb_slots"`
	MaxActiveReferencePictures uint32   `json:"max_active_reference_pictures"`
	Flags                      uint32   `json:"flags"`
	MemoryBound                bool     `json:"memory_bound"`
	UnboundIndices             []uint32 `json:"unbound_indices,omitempty"`
	Recorders                  int32    `json:"recorders"`
}

func newSessionView(s *session.Session) sessionView {
	info := s.Info()
	return sessionView{
		Handle:                     s.Handle().String(),
		Operation:                  s.Operation().String(),
		Profile:                    s.Profile().String(),
		MaxCodedExtent:             info.MaxCodedExtent.String(),
		MaxDpbSlots:                s.MaxDpbSlots(),
		MaxActiveReferencePictures: s.MaxActiveReferencePictures(),
		Flags:                      uint32(info.Flags),
		MemoryBound:                s.MemoryBound(),
		UnboundIndices:             s.UnboundIndices(),
		Recorders:                  s.Count(),
	}
}

func (s *Server) getSessions(c *gin.Context) {
	sessions := s.dev.Sessions()
	out := make([]sessionView, 0, len(sessions))
	for _, ss := range sessions {
		out = append(out, newSessionView(ss))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getSession(c *gin.Context) {
	h, ok := parseHandle(c)
	if !ok {
		return
	}
	ss, ok := s.dev.Session(h)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no video session " + h.String()})
		return
	}
	c.JSON(http.StatusOK, newSessionView(ss))
}

type parametersView struct {
	Handle          string        `json:"handle"`
	Session         string        `json:"session"`
	UpdateSequence  uint32        `json:"update_sequence"`
	QualityLevel    uint32        `json:"quality_level"`
	QuantizationMap string        `json:"quantization_map"`
	Counts          params.Counts `json:"counts"`
	Recorders       int32         `json:"recorders"`
}

func newParametersView(p *params.Parameters) parametersView {
	return parametersView{
		Handle:          p.Handle().String(),
		Session:         p.Session().Handle().String(),
		UpdateSequence:  p.UpdateSequence(),
		QualityLevel:    p.QualityLevel(),
		QuantizationMap: p.QuantizationMap().Kind.String(),
		Counts:          p.Counts(),
		Recorders:       p.Count(),
	}
}

func (s *Server) getAllParameters(c *gin.Context) {
	all := s.dev.AllParameters()
	out := make([]parametersView, 0, len(all))
	for _, p := range all {
		out = append(out, newParametersView(p))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getParameters(c *gin.Context) {
	h, ok := parseHandle(c)
	if !ok {
		return
	}
	p, ok := s.dev.Parameters(h)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no video session parameters " + h.String()})
		return
	}
	c.JSON(http.StatusOK, newParametersView(p))
}

// DiagnosticView is the JSON form of a diagnostic.
type DiagnosticView struct {
	Rule    string   `json:"rule"`
	Kind    string   `json:"kind"`
	Objects []string `json:"objects"`
	Message string   `json:"message"`
}

func NewDiagnosticView(d report.Diagnostic) DiagnosticView {
	objs := make([]string, 0, len(d.Objects))
	for _, o := range d.Objects {
		objs = append(objs, o.String())
	}
	return DiagnosticView{Rule: d.Rule, Kind: d.Kind.String(), Objects: objs, Message: d.Message}
}

func (s *Server) getDiagnostics(c *gin.Context) {
	out := struct {
		Total       uint64           `json:"total"`
		Diagnostics []DiagnosticView `json:"diagnostics"`
	}{Diagnostics: []DiagnosticView{}}
	if s.collector != nil {
		rule := c.Query("rule")
		for _, d := range s.collector.Snapshot() {
			if rule == "" || d.Rule == rule {
				out.Diagnostics = append(out.Diagnostics, NewDiagnosticView(d))
			}
		}
		out.Total = s.collector.Total()
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) resetDiagnostics(c *gin.Context) {
	if s.collector != nil {
		s.collector.Reset()
	}
	c.Status(http.StatusNoContent)
}

// CapabilityView is the JSON form of one resolved profile.
type CapabilityView struct {
	Operation    string                `json:"operation"`
	Profile      string                `json:"profile"`
	Capabilities *profile.Capabilities `json:"capabilities,omitempty"`
	Error        string                `json:"error,omitempty"`
}

// Capabilities resolves every profile dev knows about, ordered by operation and profile.
func Capabilities(dev *layer.Device) []CapabilityView {
	profiles := dev.Profiles()
	slices.SortFunc(profiles, func(a, b profile.Profile) int {
		if a.Operation != b.Operation {
			return int(a.Operation) - int(b.Operation)
		}
		return strings.Compare(a.String(), b.String())
	})
	out := make([]CapabilityView, 0, len(profiles))
	for _, p := range profiles {
		v := CapabilityView{Operation: p.Operation.String(), Profile: p.String()}
		caps, err := dev.Resolver().Resolve(p)
		if err != nil {
			v.Error = err.Error()
		} else {
			v.Capabilities = caps
		}
		out = append(out, v)
	}
	return out
}

func (s *Server) getCapabilities(c *gin.Context) {
	out := Capabilities(s.dev)
	if op := c.Query("operation"); op != "" {
		out = slices.DeleteFunc(out, func(v CapabilityView) bool { return v.Operation != op })
	}
	c.JSON(http.StatusOK, out)
}
