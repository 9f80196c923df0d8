// Package httpapi exposes the policy over HTTP: a JSON decide/reward surface
// for hosts that do not speak gRPC, plus read-only introspection.
package httpapi

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/codec"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/eval"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/policy"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// #region server
// Server holds what the handlers read from.
type Server struct {
	policy   *policy.Policy
	observer codec.Observer
	gatherer prometheus.Gatherer
	harness  *eval.EvalHarness
}

// NewServer builds the HTTP surface for p. observer may be nil; gatherer may
// be nil to leave /metrics unmounted.
func NewServer(p *policy.Policy, observer codec.Observer, gatherer prometheus.Gatherer, evalConfig eval.EvalConfig) *Server {
	return &Server{
		policy:   p,
		observer: observer,
		gatherer: gatherer,
		harness:  eval.NewEvalHarness(evalConfig),
	}
}

// Router returns the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		if param.Path == "/decide" || param.Path == "/reward" {
			return ""
		}
		return fmt.Sprintf("[httpapi] [%s] %s %s %d %s\n",
			param.TimeStamp.Format("2006-01-02 15:04:05"),
			param.Method,
			param.Path,
			param.StatusCode,
			param.ErrorMessage,
		)
	}))

	r.GET("/healthz", s.handleHealth)
	r.GET("/params", s.handleParams)
	r.GET("/stats", s.handleStats)
	r.GET("/eval", s.handleEval)
	r.POST("/decide", s.handleDecide)
	r.POST("/reward", s.handleReward)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

// #endregion server

// #region introspection
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleParams(c *gin.Context) {
	c.String(http.StatusOK, s.policy.Snapshot().String())
}

func (s *Server) handleStats(c *gin.Context) {
	snap := s.policy.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"decisions":     snap.Decisions,
		"rewards":       snap.Rewards,
		"baseline":      int32(snap.Baseline),
		"baseline_text": snap.Baseline.String(),
		"staleness":     s.policy.Config().Staleness.String(),
	})
}

func (s *Server) handleEval(c *gin.Context) {
	res := s.harness.Run(s.policy.Snapshot())
	code := http.StatusOK
	if !res.Passed {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, res)
}

// #endregion introspection

// #region decide-reward
type decideBody struct {
	S0 int32 `json:"s0"`
	S1 int32 `json:"s1"`
}

type rewardBody struct {
	DecisionID   string `json:"decision_id"`
	S0           int32  `json:"s0"`
	S1           int32  `json:"s1"`
	Action       *int   `json:"action" binding:"required"`
	WaitNs       uint64 `json:"wait_ns"`
	RunNs        uint64 `json:"run_ns"`
	TurnaroundNs uint64 `json:"turnaround_ns"`
}

func (s *Server) handleDecide(c *gin.Context) {
	var body decideBody
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req := codec.DecideRequest{S0: fixed.Scalar(body.S0), S1: fixed.Scalar(body.S1)}
	d := s.policy.Decide(req.S0, req.S1)
	id := uuid.New().String()
	if s.observer != nil {
		s.observer.ObserveDecision(id, req, d)
	}

	probs := make([]int32, len(d.Probabilities))
	for i, v := range d.Probabilities {
		probs[i] = int32(v)
	}
	c.JSON(http.StatusOK, gin.H{
		"decision_id":   id,
		"action":        d.Action,
		"niceness":      d.Niceness,
		"probabilities": probs,
	})
}

func (s *Server) handleReward(c *gin.Context) {
	var body rewardBody
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req := codec.RewardRequest{
		DecisionID:   body.DecisionID,
		S0:           fixed.Scalar(body.S0),
		S1:           fixed.Scalar(body.S1),
		Action:       *body.Action,
		WaitNs:       body.WaitNs,
		RunNs:        body.RunNs,
		TurnaroundNs: body.TurnaroundNs,
	}
	res, err := s.policy.Reward(req.S0, req.S1, req.Action, req.WaitNs, req.RunNs, req.TurnaroundNs)
	if err != nil {
		if s.observer != nil {
			s.observer.ObserveRejected(req, err)
		}
		if errors.Is(err, policy.ErrInvalidAction) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[httpapi] reward failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if s.observer != nil {
		s.observer.ObserveReward(req, res)
	}
	c.JSON(http.StatusOK, gin.H{
		"cost":        int32(res.Cost),
		"reward":      int32(res.Reward),
		"baseline":    int32(res.Baseline),
		"advantage":   int32(res.Advantage),
		"reward_text": res.Reward.String(),
	})
}

// #endregion decide-reward
