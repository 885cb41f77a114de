package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"

	"github.com/sonarwatch/sonar/internal/config"
	"github.com/sonarwatch/sonar/internal/durationstr"
	"github.com/sonarwatch/sonar/internal/metricname"
)

const defaultConfigFilename = "sonar.yaml"

func newInitCmd() *cobra.Command {
	var maximum bool
	var urlFile string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(defaultConfigFilename); err == nil && !overwrite {
				return &exitError{code: 2, err: fmt.Errorf("%s already exists, pass --overwrite to replace it", defaultConfigFilename)}
			}

			cfg, err := sampleConfig(maximum, urlFile)
			if err != nil {
				return &exitError{code: 1, err: err}
			}

			raw, err := yaml.Marshal(cfg)
			if err != nil {
				return &exitError{code: 1, err: fmt.Errorf("marshaling sample config: %w", err)}
			}

			if err := os.WriteFile(defaultConfigFilename, raw, 0o644); err != nil {
				return &exitError{code: 1, err: fmt.Errorf("writing %s: %w", defaultConfigFilename, err)}
			}

			fmt.Printf("wrote %s\n", defaultConfigFilename)
			return nil
		},
	}

	cmd.Flags().BoolVar(&maximum, "maximum", false, "Emit every field at its default value")
	cmd.Flags().StringVar(&urlFile, "file", "", "Newline-delimited list of URLs to expand into targets")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing sonar.yaml")

	return cmd
}

func sampleConfig(maximum bool, urlFile string) (*config.Config, error) {
	var targets []config.Target

	if urlFile != "" {
		urls, err := readURLList(urlFile)
		if err != nil {
			return nil, err
		}
		for _, u := range urls {
			targets = append(targets, config.Target{
				Name: metricname.Normalize(u),
				URL:  u,
			})
		}
	} else {
		targets = []config.Target{{
			Name: "example",
			URL:  "https://example.com/",
		}}
	}

	cfg := &config.Config{Targets: targets}

	if maximum {
		for i := range cfg.Targets {
			t := &cfg.Targets[i]
			t.Interval = config.Duration(durationstr.MustParse(config.DefaultInterval))
			t.Timeout = config.Duration(durationstr.MustParse(config.DefaultTimeout))
			t.MaxConcurrent = config.DefaultMaxConcurrent
			t.RequestStrategy = config.RequestStrategyWait
			t.Buckets = append([]float64(nil), config.DefaultBuckets...)
			t.Log = &config.LogConfig{
				File:     fmt.Sprintf("./%s.log", t.Name),
				ReportOn: config.ReportOnFailure,
			}
		}
		cfg.Server = &config.ServerConfig{
			IP:              "0.0.0.0",
			Port:            9090,
			HealthEndpoint:  config.DefaultHealthEndpoint,
			MetricsEndpoint: config.DefaultMetricsEndpoint,
		}
		cfg.Dashboard = &config.DashboardConfig{OutputPath: "./sonar-dashboard.json"}
	}

	return cfg, nil
}

func readURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading url list %s: %w", path, err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading url list %s: %w", path, err)
	}
	return urls, nil
}
