package scorecard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// AggregateRPC is the optional fast path: a single remote procedure that
// returns a pre-joined scorecard aggregate. Implementations return an
// RPCError when the procedure itself reported a problem (surfaced to the
// caller) and any other error for transport failures (which trigger the
// multi-query fallback). The returned aggregate never includes archived
// metrics; the loader hydrates those itself on every path.
type AggregateRPC interface {
	GetScorecardAggregate(ctx context.Context, scorecardID, userID string) (*Aggregate, error)
}

// RPCError is an error the remote procedure reported in-band.
type RPCError struct {
	Message string
}

func (e *RPCError) Error() string { return e.Message }

// IsRPCReported reports whether err (or anything it wraps) is an in-band
// procedure error rather than a transport failure.
func IsRPCReported(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr)
}

// HTTPAggregateRPC calls get_scorecard_aggregate over HTTP against the
// hosted backend's procedure endpoint.
type HTTPAggregateRPC struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPAggregateRPC creates a client for the procedure endpoint at
// baseURL.
func NewHTTPAggregateRPC(baseURL string) *HTTPAggregateRPC {
	return &HTTPAggregateRPC{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// rpcEnvelope is the procedure's wire response: either an in-band error or
// a pre-joined document.
type rpcEnvelope struct {
	Error *string     `json:"error"`
	Data  *rpcPayload `json:"data"`
}

type rpcPayload struct {
	Scorecard Scorecard   `json:"scorecard"`
	Metrics   []rpcMetric `json:"metrics"`
	Employees []Profile   `json:"employees"`
}

type rpcMetric struct {
	Metric
	Entries []MetricEntry  `json:"entries"`
	Owner   *OwnerIdentity `json:"owner"`
}

// GetScorecardAggregate invokes the procedure and maps its document onto
// the loader's aggregate shape. Entries are re-sorted newest first so the
// shape contract matches the multi-query path exactly.
func (c *HTTPAggregateRPC) GetScorecardAggregate(ctx context.Context, scorecardID, userID string) (*Aggregate, error) {
	body, err := json.Marshal(map[string]string{
		"scorecard_id": scorecardID,
		"user_id":      userID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/rpc/get_scorecard_aggregate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call aggregate rpc: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aggregate rpc status %d", resp.StatusCode)
	}

	var envelope rpcEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}
	if envelope.Error != nil && *envelope.Error != "" {
		return nil, &RPCError{Message: *envelope.Error}
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("aggregate rpc returned no data")
	}

	return envelope.Data.toAggregate(), nil
}

func (p *rpcPayload) toAggregate() *Aggregate {
	metrics := make([]MetricWithEntries, 0, len(p.Metrics))
	for _, m := range p.Metrics {
		entries := m.Entries
		if entries == nil {
			entries = []MetricEntry{}
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].PeriodStart.After(entries[j].PeriodStart)
		})
		metrics = append(metrics, MetricWithEntries{
			Metric:  m.Metric,
			Entries: entries,
			Owner:   m.Owner,
		})
	}
	return &Aggregate{
		Scorecard: p.Scorecard,
		Metrics:   metrics,
		Employees: p.Employees,
	}
}
