// Package monitoring turns a simulator into a server, so that the memory
// system can be inspected and driven over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/memsim/sim/hooking"
	"github.com/sarchlab/memsim/simulator"
	"github.com/sarchlab/memsim/vm"
)

// Monitor serves the state of a simulator and accepts commands.
type Monitor struct {
	sim         *simulator.Simulator
	player      *simulator.Player
	tagCounter  *hooking.TagCountTracer
	portNumber  int
	openBrowser bool

	server   *http.Server
	listener net.Listener
}

// NewMonitor creates a new Monitor for the simulator.
func NewMonitor(sim *simulator.Simulator) *Monitor {
	return &Monitor{sim: sim}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithPlayer lets the monitor start and stop a scripted run.
func (m *Monitor) WithPlayer(p *simulator.Player) *Monitor {
	m.player = p
	return m
}

// WithTagCounter exposes the counts of a tag counter.
func (m *Monitor) WithTagCounter(t *hooking.TagCountTracer) *Monitor {
	m.tagCounter = t
	return m
}

// WithBrowser opens the monitor in a browser once the server is up.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// Handler returns the router that serves the API.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/state", m.state).Methods(http.MethodGet)
	r.HandleFunc("/api/log", m.listLog).Methods(http.MethodGet)
	r.HandleFunc("/api/allocate", m.allocate).Methods(http.MethodPost)
	r.HandleFunc("/api/access/{page}", m.access).Methods(http.MethodPost)
	r.HandleFunc("/api/free", m.free).Methods(http.MethodPost)
	r.HandleFunc("/api/reset", m.reset).Methods(http.MethodPost)
	r.HandleFunc("/api/field/{json}", m.listFieldValue).Methods(http.MethodGet)
	r.HandleFunc("/api/tags", m.listTags).Methods(http.MethodGet)
	r.HandleFunc("/api/player", m.playerStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/player/play", m.play).Methods(http.MethodPost)
	r.HandleFunc("/api/player/pause", m.pause).Methods(http.MethodPost)
	r.HandleFunc("/api/player/rewind", m.rewind).Methods(http.MethodPost)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)

	return r
}

// StartServer starts the monitor as a web server and returns the address it
// listens on.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring memory system with %s\n", url)

	go func() {
		err := m.server.Serve(listener)
		if !errors.Is(err, http.ErrServerClosed) {
			dieOnErr(err)
		}
	}()

	if m.openBrowser {
		err = browser.OpenURL(url + "/api/state")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open browser: %v\n", err)
		}
	}

	return listener.Addr().String()
}

// StopServer shuts the server down, waiting for open requests until the
// context expires.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

type stateRsp struct {
	Name           string   `json:"name"`
	Seq            uint64   `json:"seq"`
	State          vm.State `json:"state"`
	AllocatedPages []int    `json:"allocated_pages"`
	UsedFrames     int      `json:"used_frames"`
	UsedSwapSlots  int      `json:"used_swap_slots"`
}

func (m *Monitor) state(w http.ResponseWriter, _ *http.Request) {
	snapshot := m.sim.Snapshot()

	writeJSON(w, stateRsp{
		Name:           snapshot.Name,
		Seq:            snapshot.Seq,
		State:          snapshot.State,
		AllocatedPages: snapshot.State.AllocatedPages(),
		UsedFrames:     snapshot.State.UsedFrames(),
		UsedSwapSlots:  snapshot.State.UsedSwapSlots(),
	})
}

func (m *Monitor) listLog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, nonNil(m.sim.Log()))
}

type commandRsp struct {
	Command string     `json:"command"`
	Outcome vm.Outcome `json:"outcome"`
	Error   string     `json:"error,omitempty"`
	State   vm.State   `json:"state"`
}

func (m *Monitor) execute(w http.ResponseWriter, cmd vm.Command) {
	out, state := m.sim.Execute(cmd)

	rsp := commandRsp{
		Command: cmd.String(),
		Outcome: out,
		State:   state,
	}

	if out.Err != nil {
		rsp.Error = out.Err.Error()
	}

	writeJSON(w, rsp)
}

func (m *Monitor) allocate(w http.ResponseWriter, _ *http.Request) {
	m.execute(w, vm.Allocate{})
}

func (m *Monitor) access(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(mux.Vars(r)["page"])
	if err != nil {
		http.Error(w, "page must be an integer", http.StatusBadRequest)
		return
	}

	m.execute(w, vm.Access{Page: page})
}

func (m *Monitor) free(w http.ResponseWriter, _ *http.Request) {
	m.execute(w, vm.Free{})
}

func (m *Monitor) reset(w http.ResponseWriter, _ *http.Request) {
	m.execute(w, vm.Reset{})
}

type fieldReq struct {
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snapshot := m.sim.Snapshot()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&snapshot)
	serializer.SetMaxDepth(1)

	if req.FieldName != "" {
		err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) listTags(w http.ResponseWriter, _ *http.Request) {
	if m.tagCounter == nil {
		http.Error(w, "tag counting is disabled", http.StatusNotFound)
		return
	}

	writeJSON(w, m.tagCounter.Counts())
}

type playerRsp struct {
	Playing  bool `json:"playing"`
	Position int  `json:"position"`
	Total    int  `json:"total"`
}

func (m *Monitor) playerOr404(w http.ResponseWriter) *simulator.Player {
	if m.player == nil {
		http.Error(w, "no script is loaded", http.StatusNotFound)
	}

	return m.player
}

func (m *Monitor) writePlayerStatus(w http.ResponseWriter) {
	writeJSON(w, playerRsp{
		Playing:  m.player.Playing(),
		Position: m.player.Position(),
		Total:    m.player.Len(),
	})
}

func (m *Monitor) playerStatus(w http.ResponseWriter, _ *http.Request) {
	if m.playerOr404(w) == nil {
		return
	}

	m.writePlayerStatus(w)
}

func (m *Monitor) play(w http.ResponseWriter, _ *http.Request) {
	p := m.playerOr404(w)
	if p == nil {
		return
	}

	p.Start(context.Background())
	m.writePlayerStatus(w)
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	p := m.playerOr404(w)
	if p == nil {
		return
	}

	p.Stop()
	m.writePlayerStatus(w)
}

func (m *Monitor) rewind(w http.ResponseWriter, _ *http.Request) {
	p := m.playerOr404(w)
	if p == nil {
		return
	}

	p.Rewind()
	m.writePlayerStatus(w)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
