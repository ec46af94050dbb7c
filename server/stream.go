package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/knowbot-ai/knowbot/pipeline"
)

// streamFrame is the SSE payload envelope. "start" opens the stream, one
// "stage" frame follows per completed stage, and exactly one of "complete"
// or "error" closes it.
type streamFrame struct {
	Type        string               `json:"type"`
	Stage       string               `json:"stage,omitempty"`
	State       *pipeline.Projection `json:"state,omitempty"`
	FinalAnswer string               `json:"final_answer,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// handleStream runs the pipeline and streams one SSE frame per stage.
//
// The run is detached from the request context: a client that disconnects
// mid-run cancels the stream goroutine on the next write, leaving the session
// checkpointed at the last completed stage.
func (s *Server) handleStream(c *fiber.Ctx) error {
	var req queryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return badRequest(c, err.Error())
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	log := s.log
	p := s.pipeline

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, err := p.RunStream(ctx, req.SessionID, req.Query, pipeline.RunOptions{
			GlobalTargetLanguage: req.GlobalTargetLanguage,
		})
		if err != nil {
			writeFrame(w, streamFrame{Type: "error", Error: err.Error()})
			return
		}

		if !writeFrame(w, streamFrame{Type: "start"}) {
			return
		}

		var last pipeline.Event
		failed := false
		for ev := range events {
			if ev.Stage == pipeline.StageError {
				writeFrame(w, streamFrame{Type: "error", Error: ev.State.Error})
				failed = true
				break
			}
			last = ev
			state := ev.State
			if !writeFrame(w, streamFrame{Type: "stage", Stage: ev.Stage, State: &state}) {
				log.Debug("stream client disconnected",
					zap.String("session_id", req.SessionID),
					zap.String("stage", ev.Stage),
				)
				return
			}
		}

		if !failed {
			writeFrame(w, streamFrame{Type: "complete", FinalAnswer: last.State.FinalAnswer})
		}
	}))
	return nil
}

// writeFrame sends one SSE data frame; false means the client went away.
func writeFrame(w *bufio.Writer, frame streamFrame) bool {
	payload, err := json.Marshal(frame)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return false
	}
	return w.Flush() == nil
}
