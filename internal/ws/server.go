package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/neurocalm/backend/internal/eeg"
	"github.com/neurocalm/backend/internal/session"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Server owns the HTTP surface: the websocket endpoint clients subscribe
// and command through, plus small JSON endpoints for session state and
// process health.
type Server struct {
	hub            *Hub
	controller     *session.Controller
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	authToken      string
}

func NewServer(hub *Hub, controller *session.Controller, allowedOrigins []string, authToken string) *Server {
	s := &Server{
		hub:            hub,
		controller:     controller,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		authToken:      authToken,
	}
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}
	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/session", s.handleSession)
	mux.HandleFunc("/api/health", s.handleHealth)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	log.Printf("client connected: %s", r.RemoteAddr)
	sub := s.hub.Subscribe(conn)

	go func() {
		defer func() {
			s.hub.Unsubscribe(sub)
			log.Printf("client disconnected: %s", r.RemoteAddr)
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.dispatch(sub, data)
		}
	}()
}

// dispatch routes one inbound client message. Malformed or out-of-range
// commands are rejected with an error event to the offending subscriber
// only; session state is never changed by a rejected command.
func (s *Server) dispatch(sub *Subscriber, data []byte) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		s.rejectCommand(sub, fmt.Sprintf("invalid command payload: %v", err))
		return
	}

	switch cmd.Type {
	case CmdStartRecording:
		if err := s.controller.Start(); errors.Is(err, session.ErrAlreadyRecording) {
			s.hub.SendTo(sub, Event{Type: EvtInfo, Payload: MessagePayload{Message: "recording already in progress"}})
		}
		// Other start failures already surfaced as an error event by the
		// controller.

	case CmdStopRecording:
		if err := s.controller.Stop(); errors.Is(err, session.ErrNotRecording) {
			s.hub.SendTo(sub, Event{Type: EvtInfo, Payload: MessagePayload{Message: "no recording in progress"}})
		}

	case CmdSetMode, CmdSetMentalState:
		mode, err := eeg.ParseMode(cmd.Mode)
		if err != nil {
			s.rejectCommand(sub, err.Error())
			return
		}
		s.controller.SetMode(mode, cmd.Context)

	case CmdGetRecommendation:
		technique, rankings, ok := s.controller.Recommend()
		if !ok {
			s.hub.SendTo(sub, Event{Type: EvtInfo, Payload: MessagePayload{Message: "no recommendation available yet"}})
			return
		}
		s.hub.SendTo(sub, Event{Type: EvtRecommendation, Payload: RecommendationPayload{
			Technique: technique,
			Rankings:  rankings,
		}})

	default:
		s.rejectCommand(sub, fmt.Sprintf("unknown command type %q", cmd.Type))
	}
}

func (s *Server) rejectCommand(sub *Subscriber, msg string) {
	log.Printf("rejected command from %s: %s", sub.ID, msg)
	s.hub.SendTo(sub, Event{Type: EvtError, Payload: MessagePayload{Message: msg}})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.controller.Snapshot())
}

type healthResponse struct {
	Status  string           `json:"status"`
	Clients int              `json:"clients"`
	Session session.Snapshot `json:"session"`
	Process struct {
		CPUPercent float64 `json:"cpu_percent"`
		RSSBytes   uint64  `json:"rss_bytes"`
	} `json:"process"`
	Host struct {
		MemUsedPercent float64 `json:"mem_used_percent"`
	} `json:"host"`
}

// handleHealth reports liveness plus coarse resource usage of the engine
// process and host, for dashboards and on-call checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	resp := healthResponse{
		Status:  "ok",
		Clients: s.hub.ClientCount(),
		Session: s.controller.Snapshot(),
	}

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if cpu, err := p.CPUPercent(); err == nil {
			resp.Process.CPUPercent = cpu
		}
		if mi, err := p.MemoryInfo(); err == nil {
			resp.Process.RSSBytes = mi.RSS
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		resp.Host.MemUsedPercent = vm.UsedPercent
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	if r.URL.Query().Get("token") == s.authToken {
		return true
	}
	if r.Header.Get("X-Neurocalm-Token") == s.authToken {
		return true
	}
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken
}

// checkOrigin permits same-host and localhost origins by default; when an
// allowlist is configured it is authoritative.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := parsed.Host
	if host == r.Host {
		return true
	}
	for _, local := range []string{"localhost", "127.0.0.1", "[::1]"} {
		if host == local || strings.HasPrefix(host, local+":") {
			return true
		}
	}
	return false
}

func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
