package server

import (
	"encoding/json"
	"net/http"

	"github.com/CamberLoid/FHEVault/internal/apperr"
	"github.com/CamberLoid/FHEVault/internal/restfulpayload"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// returnFailure 统一的失败响应
// 内部错误只返回 internalMsg，原因写入日志
func (s *Server) returnFailure(w http.ResponseWriter, req *http.Request, err error, internalMsg string) {
	status := apperr.HTTPStatus(err)
	resp := restfulpayload.FailureResp{Success: false, Details: apperr.Details(err)}

	switch apperr.Kind(err) {
	case "internal":
		resp.Error = internalMsg
		s.log.Error().Err(err).
			Str("path", req.URL.Path).
			Str("request_id", middleware.GetReqID(req.Context())).
			Msg(internalMsg)
	case "not_found":
		resp.Error = "Strategy not found"
	case "timeout":
		resp.Error = "Request timed out"
	default:
		if resp.Details != nil {
			resp.Error = "Invalid strategy data"
		} else {
			resp.Error = err.Error()
		}
	}

	writeJSON(w, status, resp)
}

// decodeBody 只报告 JSON 语法错误；字段类型由各自的校验处理
func decodeBody(w http.ResponseWriter, req *http.Request, v any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.Wrap(apperr.ErrInvalidInput, "request body too large")
		}
		return errors.Wrap(apperr.ErrInvalidInput, "malformed JSON body")
	}
	return nil
}

func (s *Server) handleNotFound(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusNotFound, restfulpayload.FailureResp{
		Error: "function not found: " + req.URL.Path,
	})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, restfulpayload.FailureResp{
		Error: "method " + req.Method + " not allowed on " + req.URL.Path,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, restfulpayload.VersionResp{Status: "OK", Version: s.version})
}

func (s *Server) handleVersion(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, restfulpayload.VersionResp{
		Status:  "OK",
		Version: s.version,
		Schemes: s.svc.Schemes(),
	})
}

// POST /api/strategies/submit
func (s *Server) handleSubmit(w http.ResponseWriter, req *http.Request) {
	var body restfulpayload.SubmitStrategyReq
	if err := decodeBody(w, req, &body); err != nil {
		s.returnFailure(w, req, err, "")
		return
	}

	rec, err := s.svc.Submit(req.Context(), body)
	if err != nil {
		s.returnFailure(w, req, err, "Failed to submit strategy")
		return
	}

	writeJSON(w, http.StatusOK, restfulpayload.SubmitResp{
		Success:    true,
		StrategyID: rec.ID,
		Message:    "Strategy encrypted and submitted successfully",
	})
}

// POST /api/strategies/{id}/compute
func (s *Server) handleCompute(w http.ResponseWriter, req *http.Request) {
	rec, err := s.svc.Compute(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		s.returnFailure(w, req, err, "Failed to compute strategy score")
		return
	}

	writeJSON(w, http.StatusOK, restfulpayload.ComputeResp{
		Success:        true,
		StrategyID:     rec.ID,
		EncryptedScore: *rec.EncryptedScore,
		Status:         rec.Status,
	})
}

// GET /api/strategies/{id}
func (s *Server) handleGet(w http.ResponseWriter, req *http.Request) {
	rec, err := s.svc.Get(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		s.returnFailure(w, req, err, "Failed to retrieve strategy")
		return
	}
	writeJSON(w, http.StatusOK, restfulpayload.StrategyResp{Success: true, Strategy: rec})
}

// GET /api/strategies
func (s *Server) handleList(w http.ResponseWriter, req *http.Request) {
	list, err := s.svc.List(req.Context())
	if err != nil {
		s.returnFailure(w, req, err, "Failed to retrieve strategies")
		return
	}
	writeJSON(w, http.StatusOK, restfulpayload.ListResp{Success: true, Strategies: list, Count: len(list)})
}

// POST /api/strategies/{id}/decrypted
func (s *Server) handleReportDecrypted(w http.ResponseWriter, req *http.Request) {
	var body restfulpayload.ReportDecryptedReq
	if err := decodeBody(w, req, &body); err != nil {
		s.returnFailure(w, req, err, "")
		return
	}

	rec, err := s.svc.ReportDecrypted(req.Context(), chi.URLParam(req, "id"), body.DecryptedScore)
	if err != nil {
		s.returnFailure(w, req, err, "Failed to store decrypted score")
		return
	}
	writeJSON(w, http.StatusOK, restfulpayload.StrategyResp{Success: true, Strategy: rec})
}

// GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, req *http.Request) {
	stats, err := s.svc.Stats(req.Context())
	if err != nil {
		s.returnFailure(w, req, err, "Failed to retrieve stats")
		return
	}
	writeJSON(w, http.StatusOK, restfulpayload.StatsResp{
		Success:           true,
		TotalStrategies:   stats.TotalStrategies,
		TotalComputations: stats.TotalComputations,
	})
}
