package service

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/telemetryforge/agent/config"
	"github.com/telemetryforge/agent/internal/api"
	"github.com/telemetryforge/agent/internal/defs"
	"github.com/telemetryforge/agent/internal/registry"
	"github.com/telemetryforge/agent/internal/session"
)

// metricsTimestampLayout keeps all nine fractional digits so every report
// has the same width.
const metricsTimestampLayout = "2006-01-02T15:04:05.000000000Z"

// defaultMetricsInterval backs MetricsIntervalSec when a config file zeroes it.
const defaultMetricsInterval = 60 * time.Second

// RegistryClient is the slice of the registry surface the service drives.
type RegistryClient interface {
	CreateAgent(ctx context.Context, input api.CreateAgentInput) (*api.CreateAgentResult, error)
	UpdateAgent(ctx context.Context, agentID string, config, distro, packageType *string, labels []api.Label) error
	AddMetrics(ctx context.Context, input api.AddMetricsInput) error
	Close()
}

// MetricsSource exposes the cumulative byte counters the service reports.
type MetricsSource interface {
	InputBytesTotal() float64
	OutputBytesTotal() float64
}

type AgentService interface {
	Start() error
	Stop()
}

type newRegistryClientFunc func(cfg registry.Config, log *zap.SugaredLogger) (RegistryClient, error)

// NewAgentService builds the enrollment and reporting service. Start
// registers the agent (or refreshes an existing registration) and begins
// the periodic metrics push.
func NewAgentService(cfg *config.Config, version string, sessionStore session.Store,
	metrics MetricsSource, log *zap.SugaredLogger) AgentService {
	return &agentSrv{
		config:       cfg,
		version:      version,
		sessionStore: sessionStore,
		metrics:      metrics,
		log:          log,
		newRegistryClientFunc: func(rcfg registry.Config, log *zap.SugaredLogger) (RegistryClient, error) {
			return registry.NewClient(rcfg, log)
		},
		hostnameFunc: os.Hostname,
	}
}

type agentSrv struct {
	config       *config.Config
	version      string
	sessionStore session.Store
	metrics      MetricsSource
	log          *zap.SugaredLogger

	newRegistryClientFunc newRegistryClientFunc //replaced in tests to avoid real network clients
	hostnameFunc          func() (string, error)

	agentClient RegistryClient //authenticated with the agent token, used for updates and metrics
	cancel      context.CancelFunc
	done        chan struct{}
}

// Start loads or establishes the agent's registration and launches the
// metrics reporter. It is not safe to call Start twice without Stop in
// between.
func (a *agentSrv) Start() error {
	sess, err := a.sessionStore.Load()
	if err != nil {
		return err
	}

	labels, err := parseLabels(a.config.Base.Labels)
	if err != nil {
		return err
	}
	configContent := a.readConfigFile()

	if sess == nil {
		if sess, err = a.register(labels, configContent); err != nil {
			return err
		}
	} else {
		a.log.Infof("Agent Service: using existing session, agent_id=%s", sess.AgentID)
		a.refresh(sess, labels, configContent)
	}

	client, err := a.newRegistryClientFunc(a.registryConfig(sess.AgentToken), a.log)
	if err != nil {
		return err
	}
	a.agentClient = client

	interval := time.Duration(a.config.Base.MetricsIntervalSec) * time.Second
	if interval <= 0 {
		interval = defaultMetricsInterval
		a.log.Warnf("Agent Service: metricsIntervalSec not set, using %s", interval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go a.reportMetrics(ctx, interval, &wg)
	wg.Wait()

	return nil
}

// Stop halts the metrics reporter and releases the registry client.
func (a *agentSrv) Stop() {
	a.log.Info("Agent Service: stopping")

	if a.cancel != nil {
		a.cancel()
		<-a.done
		a.cancel = nil
	}
	if a.agentClient != nil {
		a.agentClient.Close()
		a.agentClient = nil
	}
}

// register enrolls this agent with the registry using the operator's API
// token and persists the identity it gets back.
func (a *agentSrv) register(labels []api.Label, configContent string) (*session.Session, error) {
	client, err := a.newRegistryClientFunc(a.registryConfig(a.config.Base.APIToken), a.log)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	kind, err := mapAgentKind(a.config.Base.AgentKind)
	if err != nil {
		return nil, err
	}

	name := a.config.Base.AgentName
	if name == defs.EmptyString {
		name = a.generateAgentName()
	}

	input := api.CreateAgentInput{
		Kind:        kind,
		Name:        name,
		Version:     a.version,
		Config:      configContent,
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		Distro:      a.config.Base.Distro,
		PackageType: a.config.Base.PackageType,
		Labels:      labels,
	}
	a.log.Infof("Agent Service: registering agent, name=%s, kind=%s, version=%s, os=%s, arch=%s",
		input.Name, input.Kind, input.Version, input.OS, input.Arch)

	result, err := client.CreateAgent(context.Background(), input)
	if err != nil {
		return nil, err
	}
	a.log.Infof("Agent Service: agent registered, agent_id=%s, created_at=%s", result.ID, result.CreatedAt)

	sess := &session.Session{
		AgentID:    result.ID,
		AgentToken: result.Token,
	}
	if err := a.sessionStore.Save(sess); err != nil {
		a.log.Warnf("Agent Service: could not save session: %v", err)
	}
	return sess, nil
}

// refresh pushes the current config and labels for an already registered
// agent. Failure is logged but never fatal; a stale registration beats a
// dead agent.
func (a *agentSrv) refresh(sess *session.Session, labels []api.Label, configContent string) {
	if configContent == defs.EmptyString && len(labels) == 0 {
		return
	}

	client, err := a.newRegistryClientFunc(a.registryConfig(sess.AgentToken), a.log)
	if err != nil {
		a.log.Warnf("Agent Service: could not create update client: %v", err)
		return
	}
	defer client.Close()

	var configPtr, distroPtr, packageTypePtr *string
	if configContent != defs.EmptyString {
		configPtr = &configContent
	}
	if a.config.Base.Distro != defs.EmptyString {
		distroPtr = &a.config.Base.Distro
	}
	if a.config.Base.PackageType != defs.EmptyString {
		packageTypePtr = &a.config.Base.PackageType
	}

	if err := client.UpdateAgent(context.Background(), sess.AgentID,
		configPtr, distroPtr, packageTypePtr, labels); err != nil {
		a.log.Warnf("Agent Service: failed to update agent: %v", err)
		return
	}
	a.log.Info("Agent Service: agent updated")
}

// reportMetrics pushes the cumulative counters on the configured interval
// until the context is canceled.
func (a *agentSrv) reportMetrics(ctx context.Context, interval time.Duration, wg *sync.WaitGroup) {
	defer close(a.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	wg.Done()

	a.log.Infof("Agent Service: metrics reporting enabled, interval=%s", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.pushMetrics(ctx)
		}
	}
}

func (a *agentSrv) pushMetrics(ctx context.Context) {
	input := api.AddMetricsInput{
		Timestamp:        time.Now().UTC().Format(metricsTimestampLayout),
		InputBytesTotal:  a.metrics.InputBytesTotal(),
		OutputBytesTotal: a.metrics.OutputBytesTotal(),
	}
	a.log.Infof("Agent Service: sending metrics, input_bytes=%.0f, output_bytes=%.0f",
		input.InputBytesTotal, input.OutputBytesTotal)

	if err := a.agentClient.AddMetrics(ctx, input); err != nil {
		a.log.Errorf("Agent Service: failed to send metrics: %v", err)
	}
}

func (a *agentSrv) registryConfig(token string) registry.Config {
	base := a.config.Base
	reg := a.config.Registry
	return registry.Config{
		Endpoint:       base.APIURL,
		AuthToken:      token,
		Proxy:          base.Proxy,
		TLS:            reg.TLS,
		DefaultPerPage: reg.DefaultPerPage,
		DefaultSort:    reg.DefaultSort,
		RequestTimeout: time.Duration(reg.RequestTimeoutSec) * time.Second,
		UserAgent:      "telemetryforge-agent/" + a.version,
	}
}

// generateAgentName builds a stable-enough unique name when none is
// configured.
func (a *agentSrv) generateAgentName() string {
	hostname, err := a.hostnameFunc()
	if err != nil || hostname == defs.EmptyString {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8])
}

func (a *agentSrv) readConfigFile() string {
	path := a.config.Base.ConfigFile
	if path == defs.EmptyString {
		return defs.EmptyString
	}
	content, err := os.ReadFile(path)
	if err != nil {
		a.log.Warnf("Agent Service: failed to read config file %s: %v", path, err)
		return defs.EmptyString
	}
	return string(content)
}

// mapAgentKind translates the configured lowercase kind into the
// registry's enum.
func mapAgentKind(kind string) (string, error) {
	switch strings.ToLower(kind) {
	case "fluentbit":
		return defs.AgentKindFluentBit, nil
	case "fluentdo":
		return defs.AgentKindFluentDo, nil
	case "telemetryforge":
		return defs.AgentKindTelemetryForge, nil
	default:
		return defs.EmptyString, defs.ErrConfig().WithDetail(
			"invalid agent kind " + kind + ", must be fluentbit, fluentdo or telemetryforge")
	}
}

// parseLabels turns key=value strings into labels. An entry without a
// value is a configuration mistake worth failing on.
func parseLabels(raw []string) ([]api.Label, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	labels := make([]api.Label, 0, len(raw))
	for _, entry := range raw {
		key, value, found := strings.Cut(entry, "=")
		if !found || key == defs.EmptyString {
			return nil, defs.ErrConfig().WithDetail("invalid label " + entry + ", expected key=value")
		}
		labels = append(labels, api.Label{Key: key, Value: value})
	}
	return labels, nil
}
