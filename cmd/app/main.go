package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/telemetryforge/agent/config"
	"github.com/telemetryforge/agent/internal/classify"
	"github.com/telemetryforge/agent/internal/inference"
	"github.com/telemetryforge/agent/internal/service"
	"github.com/telemetryforge/agent/internal/session"
	"github.com/telemetryforge/agent/internal/util"
)

var (
	buildType    = ""
	buildVersion = ""
	buildDate    = ""
)

func main() {
	startText()

	var parser = flags.NewParser(nil, flags.Default)

	_, _ = parser.AddCommand("init", "init config", "write default config", &initCmd{})
	_, _ = parser.AddCommand("start", "start agent", "", &startCmd{})
	_, _ = parser.AddCommand("version", "print version", "print agent version and quit", &versionCmd{})
	_, _ = parser.AddCommand("classify", "classify a message", "evaluate the configured rules against one message and quit", &classifyCmd{})

	_, err := parser.Parse()
	if err != nil {
		os.Exit(1)
	}
}

func startText() {
	fmt.Printf("Telemetry Forge agent %v (%v) build date: %v\n\n", buildType, buildVersion, buildDate)
}

func version() string {
	if len(buildVersion) > 0 {
		return buildVersion
	}
	return "dev"
}

type versionCmd struct{}

func (c *versionCmd) Execute([]string) error {
	return nil
}

type startCmd struct {
	ConfigFile string `short:"c" long:"config" description:"path to configuration file" default:"tf-agent.yaml"`
}

func (c *startCmd) Execute([]string) error {
	var cfg config.Config
	cfg.Default()

	err := cfg.Load(c.ConfigFile)
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	log := util.NewLogger(&cfg.Logging)
	log.Info("Loaded config file from " + c.ConfigFile)

	stats := service.NewPipelineStats()

	agentService, err := initAgentService(log, &cfg, stats)
	if err != nil {
		log.Errorf("Failed to initialise the agent service, err: %v", err)
		log.Warn("exiting")
		os.Exit(1)
	}

	if err = agentService.Start(); err != nil {
		log.Errorf("Failed to start the agent service, err: %v", err)
		log.Warn("exiting")
		os.Exit(1)
	}

	setCtrlC(agentService)

	if cfg.Classification.Enabled {
		ruleset, err := initRuleset(log, &cfg)
		if err != nil {
			log.Errorf("Failed to initialise the classifier, err: %v", err)
			agentService.Stop()
			os.Exit(1)
		}
		tagStdin(log, ruleset, stats)
	}

	select {} //keep reporting until interrupted
}

func setCtrlC(s service.AgentService) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		s.Stop()
		time.Sleep(2 * time.Second) //wait for everything to close properly
		os.Exit(0)
	}()
}

func initAgentService(log *zap.SugaredLogger, cfg *config.Config, stats *service.PipelineStats) (service.AgentService, error) {
	kv := util.NewFileStore(cfg.Base.SessionStorePath)
	if err := kv.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialise the session store")
	}

	return service.NewAgentService(cfg, version(), session.NewStore(kv), stats, log), nil
}

func initRuleset(log *zap.SugaredLogger, cfg *config.Config) (*classify.Ruleset, error) {
	var rds *redis.Client
	if cfg.Cache.MultiInstance {
		rds = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Cache.Redis.Host, cfg.Cache.Redis.Port),
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	}

	expiration := time.Duration(cfg.Cache.VerdictExpirationSec) * time.Second
	cache := classify.NewVerdictCache(cfg.Cache.MultiInstance, expiration, log, rds)

	client, err := inference.NewClient(inference.Config{
		Endpoint:  cfg.Classification.Endpoint,
		APIKey:    cfg.Classification.APIKey,
		Proxy:     cfg.Classification.Proxy,
		TLS:       cfg.Classification.TLS,
		UserAgent: "telemetryforge-agent/" + version(),
	}, log)
	if err != nil {
		return nil, err
	}

	return classify.NewRuleset(&cfg.Classification, client, cache, log)
}

// tagStdin reads log lines from stdin, classifies each and echoes it back
// prefixed with the matching tags.
func tagStdin(log *zap.SugaredLogger, ruleset *classify.Ruleset, stats *service.PipelineStats) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		stats.AddInputBytes(uint64(len(line)))

		tags, err := ruleset.Evaluate(context.Background(), line)
		if err != nil {
			log.Errorf("classification failed: %v", err)
			tags = nil
		}

		out := line
		if len(tags) > 0 {
			out = "[" + strings.Join(tags, ",") + "] " + line
		}
		fmt.Println(out)
		stats.AddOutputBytes(uint64(len(out)))
	}

	total, failed := ruleset.Counters()
	log.Infof("classifier finished, requests=%d, failed=%d", total, failed)
}

type classifyCmd struct {
	ConfigFile string `short:"c" long:"config" description:"path to configuration file" default:"tf-agent.yaml"`
	Message    string `short:"m" long:"message" description:"log message to classify" required:"true"`
}

func (c *classifyCmd) Execute([]string) error {
	var cfg config.Config
	cfg.Default()
	if err := cfg.Load(c.ConfigFile); err != nil {
		return err
	}

	log := util.NewLogger(&cfg.Logging)

	ruleset, err := initRuleset(log, &cfg)
	if err != nil {
		return err
	}

	tags, err := ruleset.Evaluate(context.Background(), c.Message)
	if err != nil {
		return err
	}

	if len(tags) == 0 {
		fmt.Println("no rules matched")
		return nil
	}
	fmt.Println(strings.Join(tags, "\n"))
	return nil
}

type initCmd struct {
	FileName string `short:"f" long:"file-name" description:"output file name" default:"tf-agent.yaml"`
}

func (c *initCmd) Execute([]string) error {
	var cfg config.Config
	cfg.Default()
	if err := cfg.Save(c.FileName); err != nil {
		return err
	}

	fmt.Printf("written file %s\n\n", c.FileName)
	return nil
}
