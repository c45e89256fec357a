// Package monitoring serves the state of a running MMU over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/monitoring/web"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// MMU is the view of an MMU that the monitor needs. Every method must be safe
// to call while the MMU serves requests.
type MMU interface {
	Name() string
	Config() mmu.Config
	ResidentPages() []vm.PageTableEntry
	Frame(index uint64) ([]byte, error)
	Snapshot() mmu.Snapshot
}

// Monitor turns a simulation into a server that reports the state of an MMU.
type Monitor struct {
	mmu             MMU
	portNumber      int
	profileDuration time.Duration
	logger          *slog.Logger

	server *http.Server

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		profileDuration: time.Second,
		logger:          slog.New(slog.DiscardHandler),
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// replaced by a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn("port not allowed for monitoring, using a random port",
			"port", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger of the monitor.
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	m.logger = logger
	return m
}

// WithProfileDuration sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// RegisterMMU sets the MMU to be monitored.
func (m *Monitor) RegisterMMU(c MMU) {
	m.mmu = c
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := newProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler that serves the monitoring API and the web page.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/config", m.mmuOr404(m.showConfig))
	r.HandleFunc("/api/stats", m.mmuOr404(m.showStats))
	r.HandleFunc("/api/pagetable", m.mmuOr404(m.listPageTable))
	r.HandleFunc("/api/frame/{index}", m.mmuOr404(m.showFrame))
	r.HandleFunc("/api/mmu", m.mmuOr404(m.serializeMMU))
	r.HandleFunc("/api/field/{json}", m.mmuOr404(m.listFieldValue))
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.Assets()))

	return r
}

// StartServer starts serving in the background and returns the URL of the
// web page.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("monitor: %w", err)
	}

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitor stopped", "error", err)
		}
	}()

	return url, nil
}

// StopServer shuts the server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

// OpenBrowser opens the web page of a started monitor.
func OpenBrowser(url string) error {
	return browser.OpenURL(url)
}

func (m *Monitor) mmuOr404(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.mmu == nil {
			http.Error(w, "no MMU registered", http.StatusNotFound)
			return
		}

		h(w, r)
	}
}

type configRsp struct {
	Name string `json:"name"`
	mmu.Config
	NumPages uint64 `json:"num_pages"`
}

func (m *Monitor) showConfig(w http.ResponseWriter, _ *http.Request) {
	config := m.mmu.Config()

	m.writeJSON(w, configRsp{
		Name:     m.mmu.Name(),
		Config:   config,
		NumPages: config.NumPages(),
	})
}

type statsRsp struct {
	mmu.Stats
	Accesses   uint64  `json:"accesses"`
	MissRate   float64 `json:"miss_rate"`
	FreeFrames int     `json:"free_frames"`
}

func (m *Monitor) showStats(w http.ResponseWriter, _ *http.Request) {
	snap := m.mmu.Snapshot()

	m.writeJSON(w, statsRsp{
		Stats:      snap.Stats,
		Accesses:   snap.Stats.Accesses(),
		MissRate:   snap.Stats.MissRate(),
		FreeFrames: snap.NumFreeFrames,
	})
}

type pageTableEntryRsp struct {
	PageNumber  uint64 `json:"page_number"`
	BaseAddress uint64 `json:"base_address"`
	FrameIndex  uint64 `json:"frame_index"`
	Dirty       bool   `json:"dirty"`
}

func (m *Monitor) listPageTable(w http.ResponseWriter, _ *http.Request) {
	entries := m.mmu.ResidentPages()
	pageSize := m.mmu.Config().PageSize

	rsp := make([]pageTableEntryRsp, 0, len(entries))
	for _, e := range entries {
		rsp = append(rsp, pageTableEntryRsp{
			PageNumber:  e.PageNumber,
			BaseAddress: vm.PageBase(e.PageNumber, pageSize),
			FrameIndex:  e.FrameIndex,
			Dirty:       e.Dirty,
		})
	}

	m.writeJSON(w, rsp)
}

type frameRsp struct {
	Index      uint64  `json:"index"`
	PageNumber *uint64 `json:"page_number"`
	Dirty      bool    `json:"dirty"`
	Data       string  `json:"data"`
}

func (m *Monitor) showFrame(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 0, 64)
	if err != nil {
		http.Error(w, "invalid frame index", http.StatusBadRequest)
		return
	}

	data, err := m.mmu.Frame(index)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	rsp := frameRsp{
		Index: index,
		Data:  hex.EncodeToString(data),
	}

	for _, e := range m.mmu.ResidentPages() {
		if e.FrameIndex == index {
			page := e.PageNumber
			rsp.PageNumber = &page
			rsp.Dirty = e.Dirty
		}
	}

	m.writeJSON(w, rsp)
}

func (m *Monitor) snapshot() *mmu.Snapshot {
	s := m.mmu.Snapshot()
	return &s
}

func (m *Monitor) serializeMMU(w http.ResponseWriter, _ *http.Request) {
	m.writeSerialized(w, nil)
}

type fieldReq struct {
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.writeSerialized(w, strings.Split(req.FieldName, "."))
}

// writeSerialized writes a snapshot of the MMU, or the field of the snapshot
// that the entry point names.
func (m *Monitor) writeSerialized(w http.ResponseWriter, entryPoint []string) {
	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.snapshot())
	serializer.SetMaxDepth(1)

	if entryPoint != nil {
		err := serializer.SetEntryPoint(entryPoint)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	buf := bytes.NewBuffer(nil)

	err := serializer.Serialize(buf)
	if err != nil {
		m.internalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	rsp := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		rsp = append(rsp, b.snapshot())
	}

	m.writeJSON(w, rsp)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.internalError(w, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		m.internalError(w, err)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		m.internalError(w, err)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		m.internalError(w, err)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.internalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (m *Monitor) internalError(w http.ResponseWriter, err error) {
	m.logger.Error("monitor request failed", "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
