package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/linkmap/internal/cluster"
	"github.com/Aman-CERP/linkmap/internal/config"
	"github.com/Aman-CERP/linkmap/internal/links"
	"github.com/Aman-CERP/linkmap/internal/service"
	"github.com/Aman-CERP/linkmap/internal/topics"
	"github.com/Aman-CERP/linkmap/pkg/version"
)

// ServerName is reported to MCP clients.
const ServerName = "linkmap"

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var toolInfos = []ToolInfo{
	{
		Name:        service.OpPreviewClusters,
		Description: "Cluster a domain's pages by embedding similarity without saving anything. Returns cluster sizes, per-page assignments and the pages closest to each centroid.",
	},
	{
		Name:        service.OpCommitClusters,
		Description: "Cluster a domain's pages and save each page's cluster id. Pages left out of the run have their stale ids reset. Running it twice with the same parameters changes nothing.",
	},
	{
		Name:        service.OpClearClusters,
		Description: "Reset every cluster id of a domain.",
	},
	{
		Name:        service.OpClusterStatus,
		Description: "Count a domain's pages, pages with embeddings, pages with a cluster id and distinct clusters.",
	},
	{
		Name:        service.OpLabelTopics,
		Description: "Name each cluster with its most distinctive terms (TF-ICF) and sample page titles. Uses the committed clusters unless from_preview is set.",
	},
	{
		Name:        service.OpSuggestLinks,
		Description: "Suggest internal links between a domain's pages ranked by cosine similarity, with homepage, same-path and regex exclusions.",
	},
	{
		Name:        service.OpBuildGraph,
		Description: "Build a domain's internal link graph from extracted links or from link suggestions, with in/out degree, PageRank and HITS hub and authority scores per page.",
	},
}

// Server exposes the service as MCP tools.
type Server struct {
	mcp    *mcp.Server
	svc    *service.Service
	cfg    *config.Config
	logger *slog.Logger
}

// NewServer creates an MCP server over svc. Tool defaults come from the
// service configuration.
func NewServer(svc *service.Service, logger *slog.Logger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		svc:    svc,
		cfg:    svc.Config(),
		logger: logger,
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(toolInfos))
	copy(out, toolInfos)
	return out
}

// CallTool invokes a tool by name. args are decoded into the tool's input
// type the same way the protocol layer decodes them.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case service.OpPreviewClusters:
		return call(ctx, args, s.previewClusters)
	case service.OpCommitClusters:
		return call(ctx, args, s.commitClusters)
	case service.OpClearClusters:
		return call(ctx, args, s.clearClusters)
	case service.OpClusterStatus:
		return call(ctx, args, s.clusterStatus)
	case service.OpLabelTopics:
		return call(ctx, args, s.labelTopics)
	case service.OpSuggestLinks:
		return call(ctx, args, s.suggestLinks)
	case service.OpBuildGraph:
		return call(ctx, args, s.buildGraph)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func call[In, Out any](ctx context.Context, args map[string]any, fn func(context.Context, In) (Out, error)) (any, error) {
	var in In
	if len(args) > 0 {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, NewInvalidParamsError(err.Error())
		}
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, NewInvalidParamsError(fmt.Sprintf("%s: %v", ErrInvalidParams, err))
		}
	}
	out, err := fn(ctx, in)
	if err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

func (s *Server) registerTools() {
	addTool(s, toolInfos[0], s.previewClusters)
	addTool(s, toolInfos[1], s.commitClusters)
	addTool(s, toolInfos[2], s.clearClusters)
	addTool(s, toolInfos[3], s.clusterStatus)
	addTool(s, toolInfos[4], s.labelTopics)
	addTool(s, toolInfos[5], s.suggestLinks)
	addTool(s, toolInfos[6], s.buildGraph)
	s.logger.Debug("MCP tools registered", slog.Int("count", len(toolInfos)))
}

// addTool registers fn with the SDK and logs each call under a short
// request id.
func addTool[In, Out any](s *Server, info ToolInfo, fn func(context.Context, In) (Out, error)) {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: info.Name, Description: info.Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
			requestID := generateRequestID()
			start := time.Now()
			s.logger.Debug("tool_call",
				slog.String("request_id", requestID),
				slog.String("tool", info.Name))

			out, err := fn(ctx, in)
			if err != nil {
				var zero Out
				mapped := MapError(err)
				s.logger.Warn("tool_call_failed",
					slog.String("request_id", requestID),
					slog.String("tool", info.Name),
					slog.Int("code", mapped.Code),
					slog.String("error", err.Error()))
				return nil, zero, mapped
			}
			s.logger.Debug("tool_call_done",
				slog.String("request_id", requestID),
				slog.String("tool", info.Name),
				slog.Duration("duration", time.Since(start)))
			return nil, out, nil
		})
}

func (s *Server) clusterOptions(in ClusterInput, preview bool) cluster.Options {
	opts := s.cfg.ClusterOptions(preview)
	if in.K != nil {
		opts.K = *in.K
	}
	if in.Seed != nil {
		opts.Seed = *in.Seed
	}
	if in.MaxItems != nil {
		opts.MaxItems = *in.MaxItems
	}
	if in.MaxIter != nil {
		opts.MaxIter = *in.MaxIter
	}
	if in.Metric != "" {
		opts.Metric = in.Metric
	}
	return opts
}

func (s *Server) previewClusters(ctx context.Context, in PreviewClustersInput) (PreviewClustersOutput, error) {
	res, err := s.svc.PreviewClusters(ctx, in.Domain, s.clusterOptions(in.clusterInput(), true), in.Top)
	if err != nil {
		return PreviewClustersOutput{}, err
	}
	return toPreviewOutput(res), nil
}

func (s *Server) commitClusters(ctx context.Context, in ClusterInput) (CommitClustersOutput, error) {
	res, err := s.svc.CommitClusters(ctx, in.Domain, s.clusterOptions(in, false))
	if err != nil {
		return CommitClustersOutput{}, err
	}
	return toCommitOutput(res), nil
}

func (s *Server) clearClusters(ctx context.Context, in DomainInput) (ClearClustersOutput, error) {
	res, err := s.svc.ClearClusters(ctx, in.Domain)
	if err != nil {
		return ClearClustersOutput{}, err
	}
	return ClearClustersOutput{Domain: res.Domain, Cleared: res.Cleared}, nil
}

func (s *Server) clusterStatus(ctx context.Context, in DomainInput) (ClusterStatusOutput, error) {
	res, err := s.svc.Status(ctx, in.Domain)
	if err != nil {
		return ClusterStatusOutput{}, err
	}
	return toStatusOutput(res), nil
}

func (s *Server) labelTopics(ctx context.Context, in LabelTopicsInput) (LabelTopicsOutput, error) {
	req := service.TopicsRequest{Options: s.cfg.TopicOptions()}
	if in.TopN != nil {
		req.Options.TopN = *in.TopN
	}
	if in.SamplesPerCluster != nil {
		req.Options.SamplesPerCluster = *in.SamplesPerCluster
	}
	if len(in.StopwordsExtra) > 0 {
		req.Options.StopwordsExtra = append(append([]string(nil), req.Options.StopwordsExtra...), in.StopwordsExtra...)
	}
	if in.DedupeSubstrings != nil {
		req.Options.DedupeSubstrings = *in.DedupeSubstrings
	}
	if in.FromPreview {
		opts := s.clusterOptions(ClusterInput{K: in.K}, true)
		req.Preview = &opts
	}

	res, err := s.svc.LabelTopics(ctx, in.Domain, req)
	if err != nil {
		return LabelTopicsOutput{}, err
	}
	out := LabelTopicsOutput{Domain: res.Domain, Source: res.Source, Labels: res.Labels}
	if out.Labels == nil {
		out.Labels = []topics.ClusterLabel{}
	}
	return out, nil
}

func (s *Server) linkOptions(in SuggestLinksInput) links.Options {
	opts := s.cfg.LinkOptions()
	if in.PerItem != nil {
		opts.PerItem = *in.PerItem
	}
	if in.MinSim != nil {
		opts.MinSim = *in.MinSim
	}
	if in.MaxItems != nil {
		opts.MaxItems = *in.MaxItems
	}
	if in.FallbackWhenEmpty != nil {
		opts.FallbackWhenEmpty = *in.FallbackWhenEmpty
	}
	if in.ExcludeRegex != nil {
		opts.ExcludeRegex = *in.ExcludeRegex
	}
	if in.SkipHomepage != nil {
		opts.SkipHomepage = *in.SkipHomepage
	}
	if in.SkipSamePath != nil {
		opts.SkipSamePath = *in.SkipSamePath
	}
	if in.Candidates != "" {
		opts.Candidates = in.Candidates
	}
	if in.Seed != nil {
		opts.Seed = *in.Seed
	}
	return opts
}

func (s *Server) suggestLinks(ctx context.Context, in SuggestLinksInput) (SuggestLinksOutput, error) {
	res, err := s.svc.SuggestLinks(ctx, in.Domain, s.linkOptions(in))
	if err != nil {
		return SuggestLinksOutput{}, err
	}
	return toSuggestOutput(res), nil
}

func (s *Server) buildGraph(ctx context.Context, in BuildGraphInput) (BuildGraphOutput, error) {
	req := service.GraphRequest{
		Config:          s.cfg.Graph,
		FromSuggestions: in.FromSuggestions,
		Links:           s.linkOptions(SuggestLinksInput{PerItem: in.PerItem, MinSim: in.MinSim}),
	}
	if in.Damping != nil {
		req.Config.Damping = *in.Damping
	}
	if in.MaxIter != nil {
		req.Config.MaxIter = *in.MaxIter
	}
	if in.Tol != nil {
		req.Config.Tol = *in.Tol
	}

	g, err := s.svc.BuildGraph(ctx, in.Domain, req)
	if err != nil {
		return BuildGraphOutput{}, err
	}
	return toGraphOutput(strings.TrimSpace(in.Domain), g, in.Top), nil
}

// Serve runs the server until ctx is canceled or the client disconnects.
// Only the stdio transport is supported.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
