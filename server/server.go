// Package server exposes a running character over HTTP: skeleton and clip
// inspection, playback commands and a websocket stream of frames.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/binzume/tweenanim/anim"
	"github.com/binzume/tweenanim/character"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

type Server struct {
	loop     *Loop
	router   *mux.Router
	upgrader websocket.Upgrader
}

func NewServer(loop *Loop) *Server {
	s := &Server{loop: loop}
	r := mux.NewRouter()
	r.HandleFunc("/skeleton", s.handleSkeleton).Methods("GET")
	r.HandleFunc("/clips", s.handleClips).Methods("GET")
	r.HandleFunc("/frame", s.handleFrame).Methods("GET")
	r.HandleFunc("/play/{clip}", s.handleCommand(character.OpPlay)).Methods("POST")
	r.HandleFunc("/smooth/{clip}", s.handleCommand(character.OpSmooth)).Methods("POST")
	r.HandleFunc("/stop/{clip}", s.handleCommand(character.OpStop)).Methods("POST")
	r.HandleFunc("/weight/{clip}", s.handleCommand(character.OpWeight)).Methods("POST")
	r.HandleFunc("/root/{clip}/{joint}", s.handleCommand(character.OpRoot)).Methods("POST")
	r.HandleFunc("/ws", s.handleWebsocket)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	h := handlers.RecoveryHandler()(s.router)
	return handlers.LoggingHandler(os.Stdout, h)
}

// ListenAndServe runs the frame loop and the HTTP server until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string, fps int) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	loopErr := make(chan error, 1)
	go func() {
		loopErr <- s.loop.Run(ctx, fps)
	}()
	go func() {
		select {
		case <-ctx.Done():
		case err := <-loopErr:
			if err != nil && err != context.Canceled {
				log.Printf("[web] frame loop stopped: %v", err)
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[web] Starting server %v", addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[web] encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type jointInfo struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Parent int64  `json:"parent"`
}

func (s *Server) handleSkeleton(w http.ResponseWriter, r *http.Request) {
	skel := s.loop.char.Skeleton()
	joints := make([]jointInfo, len(skel.Joints))
	for i, j := range skel.Joints {
		parent := int64(j.Parent)
		if j.Parent == anim.NoParent {
			parent = -1
		}
		joints[i] = jointInfo{Index: i, Name: j.Name, Parent: parent}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"name": skel.Name, "joints": joints})
}

func (s *Server) handleClips(w http.ResponseWriter, r *http.Request) {
	if f := s.loop.Latest(); f != nil {
		writeJSON(w, http.StatusOK, f.Clips)
		return
	}
	var clips []character.ClipStatus
	for _, c := range s.loop.char.Assets().Clips {
		clips = append(clips, character.ClipStatus{Name: c.Name, Duration: c.Duration})
	}
	writeJSON(w, http.StatusOK, clips)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	f := s.loop.Latest()
	if f == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func queryFloat(r *http.Request, key string, def float32) (float32, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 32)
	return float32(f), err
}

// handleCommand validates names against the shared assets and queues the command
// for the frame loop.
func (s *Server) handleCommand(op character.Op) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		cmd := character.Command{Op: op, Clip: vars["clip"], Joint: vars["joint"]}

		found := false
		for _, c := range s.loop.char.Assets().Clips {
			found = found || c.Name == cmd.Clip
		}
		if !found {
			writeError(w, http.StatusNotFound, anim.ErrNotFound)
			return
		}
		if cmd.Joint != "" {
			if _, err := s.loop.char.Skeleton().JointIndex(cmd.Joint); err != nil {
				writeError(w, http.StatusNotFound, err)
				return
			}
		}

		var err error
		if cmd.Weight, err = queryFloat(r, "weight", 1); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		defaultFade := float32(0)
		if op == character.OpSmooth {
			defaultFade = 0.5
		}
		if cmd.Fade, err = queryFloat(r, "fade", defaultFade); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if v := r.URL.Query().Get("loop"); v != "" {
			if cmd.Loop, err = strconv.ParseBool(v); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
		}
		if err := s.loop.Submit(cmd); err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeJSON(w, http.StatusAccepted, cmd)
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade: %v", err)
		return
	}
	s.loop.hub.register(conn)
}
