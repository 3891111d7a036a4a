package ui

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"riskcorr/domain/core"
	"riskcorr/domain/corr"
	apperrors "riskcorr/internal/errors"
)

// analysisRequest is the wire form of one analysis request
type analysisRequest struct {
	Variables     []string `json:"variables"`
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date"`
	Method        string   `json:"method"`
	MinEffectSize *float64 `json:"min_effect_size"`
	Alpha         *float64 `json:"alpha"`
}

// errorBody is the machine-readable error envelope
type errorBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

const dateLayout = "2006-01-02"

// toDomain maps the wire request onto the validated domain request. Date
// parse failures map onto the invalid-date-range kind; everything else is
// left for domain validation.
func (r analysisRequest) toDomain() (corr.Request, error) {
	req := corr.Request{Config: corr.DefaultConfig()}
	for _, v := range r.Variables {
		req.Variables = append(req.Variables, core.VariableKey(v))
	}

	var err error
	if req.Start, err = time.Parse(dateLayout, r.StartDate); err != nil {
		return corr.Request{}, apperrors.WithCode(apperrors.CodeInvalidDateRange,
			apperrors.New(apperrors.CodeInvalidDateRange, "start_date must be YYYY-MM-DD"))
	}
	if req.End, err = time.Parse(dateLayout, r.EndDate); err != nil {
		return corr.Request{}, apperrors.WithCode(apperrors.CodeInvalidDateRange,
			apperrors.New(apperrors.CodeInvalidDateRange, "end_date must be YYYY-MM-DD"))
	}

	if r.Method != "" {
		req.Config.Method = corr.Method(r.Method)
	}
	if r.Alpha != nil {
		req.Config.Alpha = *r.Alpha
	}
	if r.MinEffectSize != nil {
		req.Config.MinEffectSize = *r.MinEffectSize
	}
	return req, nil
}

// handleAnalysis runs one correlation analysis and returns the full report
func (s *Server) handleAnalysis(c *gin.Context) {
	report, ok := s.runAnalysis(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleAnalysisReport runs the analysis and renders it as an HTML document
// for the presentation layer
func (s *Server) handleAnalysisReport(c *gin.Context) {
	report, ok := s.runAnalysis(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", RenderHTML(report))
}

func (s *Server) runAnalysis(c *gin.Context) (*corr.AnalysisReport, bool) {
	var wire analysisRequest
	if err := c.ShouldBindJSON(&wire); err != nil {
		s.writeError(c, apperrors.New(apperrors.CodeInvalidRequest, "malformed request body: "+err.Error()))
		return nil, false
	}

	req, err := wire.toDomain()
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}

	report, err := s.service.Run(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	return report, true
}

// writeError maps error codes onto HTTP statuses and the error envelope
func (s *Server) writeError(c *gin.Context, err error) {
	code := apperrors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case apperrors.CodeInvalidRequest,
		apperrors.CodeInsufficientVariables,
		apperrors.CodeInvalidMethod,
		apperrors.CodeInvalidThreshold,
		apperrors.CodeInvalidDateRange:
		status = http.StatusBadRequest
	case apperrors.CodeDataUnavailable:
		status = http.StatusBadGateway
	case apperrors.CodeTimeout:
		status = http.StatusGatewayTimeout
	}

	var body errorBody
	body.Error.Kind = code
	body.Error.Message = err.Error()
	s.logger.Warn("[Server] request failed: %s: %v", code, err)
	c.JSON(status, body)
}
