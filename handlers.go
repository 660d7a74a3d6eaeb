package avatartalk

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/alekhya6767/Avatar-Talk/asr"
	"github.com/alekhya6767/Avatar-Talk/mt"
	"github.com/alekhya6767/Avatar-Talk/pipeline"
	"github.com/alekhya6767/Avatar-Talk/tts"
)

// TranslateRequest is the batch translation payload.
type TranslateRequest struct {
	AudioData        string `json:"audio_data"`
	TargetLanguage   string `json:"target_language"`
	SaveIntermediate bool   `json:"save_intermediate"`
}

// TranslateResponse is the batch translation reply.
type TranslateResponse struct {
	Success          bool               `json:"success"`
	SourceText       string             `json:"english_text,omitempty"`
	TranslatedText   string             `json:"translated_text,omitempty"`
	TranslatedAudio  string             `json:"translated_audio,omitempty"`
	Timings          map[string]float64 `json:"timings,omitempty"`
	TranscodeApplied bool               `json:"transcode_applied"`
	Error            string             `json:"error,omitempty"`
}

// StatusResponse reports adapter reachability and translator cache state.
type StatusResponse struct {
	Recognizer  asr.Status `json:"recognizer"`
	Translator  mt.Status  `json:"translator"`
	Synthesizer tts.Status `json:"synthesizer"`
	Sessions    int        `json:"active_sessions"`
}

func (s *Server) handleTranslateAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

	var req TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.AudioData == "" {
		writeError(w, http.StatusBadRequest, "audio_data is required")
		return
	}
	if req.TargetLanguage == "" {
		writeError(w, http.StatusBadRequest, "target_language is required")
		return
	}

	audio, err := base64.StdEncoding.DecodeString(req.AudioData)
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio_data is not valid base64")
		return
	}

	workDir, err := os.MkdirTemp("", "avatar-talk-batch-")
	if err != nil {
		s.log.Errorw("create work dir", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer os.RemoveAll(workDir)

	id := uuid.NewString()
	inputPath := filepath.Join(workDir, id+".wav")
	outputPath := filepath.Join(workDir, id+".out.wav")
	if err := os.WriteFile(inputPath, audio, 0o644); err != nil {
		s.log.Errorw("write input audio", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	result, runErr := s.deps.Pipeline.Run(r.Context(), pipeline.Request{
		InputPath:        inputPath,
		OutputPath:       outputPath,
		TargetLang:       req.TargetLanguage,
		SaveIntermediate: req.SaveIntermediate,
	})
	if s.deps.Metrics != nil {
		s.deps.Metrics.TranslationFinished("batch", runErr == nil)
	}
	if s.deps.Store != nil {
		if err := s.deps.Store.RecordBatch(r.Context(), result); err != nil {
			s.log.Errorw("record batch translation", "error", err)
		}
	}

	resp := TranslateResponse{
		Success:          result.Success,
		SourceText:       result.SourceText,
		TranslatedText:   result.TranslatedText,
		Timings:          result.Timings.Seconds(),
		TranscodeApplied: result.TranscodeApplied,
		Error:            result.Error,
	}
	if runErr != nil {
		s.log.Errorw("batch translation failed",
			"target_lang", req.TargetLanguage, "error", runErr)
		var stageErr *pipeline.Error
		status := http.StatusInternalServerError
		if errors.As(runErr, &stageErr) && errors.Is(stageErr.Err, pipeline.ErrNoSpeech) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, resp)
		return
	}

	out, err := os.ReadFile(result.OutputFile)
	if err != nil {
		s.log.Errorw("read output audio", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp.TranslatedAudio = base64.StdEncoding.EncodeToString(out)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{}
	if s.deps.Recognizer != nil {
		resp.Recognizer = s.deps.Recognizer.Status()
	}
	if s.deps.Engine != nil {
		resp.Translator = s.deps.Engine.Status()
	}
	if s.deps.Synthesizer != nil {
		resp.Synthesizer = s.deps.Synthesizer.Status()
	}
	if s.deps.Sessions != nil {
		resp.Sessions = s.deps.Sessions.ActiveSessions()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	if sessionID := r.URL.Query().Get("session_id"); sessionID != "" {
		records, err := s.deps.Store.SessionHistory(r.Context(), sessionID)
		if err != nil {
			s.log.Errorw("load session history", "session_id", sessionID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, records)
		return
	}

	records, err := s.deps.Store.Recent(r.Context(), limit)
	if err != nil {
		s.log.Errorw("load recent history", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
