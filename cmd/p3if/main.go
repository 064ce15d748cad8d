// Package main provides the P3IF CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/orneryd/p3if/pkg/config"
	"github.com/orneryd/p3if/pkg/logging"
	"github.com/orneryd/p3if/pkg/model"
	"github.com/orneryd/p3if/pkg/p3if"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	inputPath  string
	output     string
	quiet      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "p3if",
		Short: "P3IF - Properties, Processes and Perspectives Inter-Framework",
		Long: `P3IF stores patterns along three dimensions (property, process,
perspective) and the relationships that tie them together.

Features:
  • Indexed pattern and relationship store with cascade delete
  • JSON and YAML import/export with checksums
  • Badger or Redis persistence
  • Similarity matrices and cross-domain analytics
  • Dimension hot swap`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Config file (default: ./p3if.yaml or ~/.p3if/p3if.yaml)")
	pf.StringVar(&flags.inputPath, "input", "", "Load a JSON or YAML document before running the command")
	pf.StringVarP(&flags.output, "output", "o", "yaml", "Output format: yaml or json")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "Only log errors")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "P3IF v%s (%s)\n", version, commit)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "import [file]",
		Short: "Import patterns and relationships from a JSON or YAML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withFramework(cmd, func(fw *p3if.Framework) error {
				res, err := fw.Store().ImportFile(args[0])
				if err != nil {
					return err
				}
				if err := flags.print(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if res.Patterns.Failed+res.Relationships.Failed > 0 {
					return fmt.Errorf("%d records rejected", res.Patterns.Failed+res.Relationships.Failed)
				}
				return nil
			})
		},
	})

	exportCmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export the framework to a JSON or YAML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			withMetadata, _ := cmd.Flags().GetBool("metadata")
			return flags.withFramework(cmd, func(fw *p3if.Framework) error {
				if err := fw.Store().ExportFile(args[0], withMetadata); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d patterns and %d relationships to %s\n",
					fw.Store().PatternCount(), fw.Store().RelationshipCount(), args[0])
				return nil
			})
		},
	}
	exportCmd.Flags().Bool("metadata", false, "Include framework metadata and checksum")
	rootCmd.AddCommand(exportCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show summary statistics and framework metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withFramework(cmd, func(fw *p3if.Framework) error {
				if err := fw.Prewarm(cmd.Context()); err != nil {
					return err
				}
				out := struct {
					Summary any `json:"summary" yaml:"summary"`
					Metrics any `json:"metrics" yaml:"metrics"`
				}{fw.Store().SummaryStatistics(), fw.Analytics().Metrics()}
				return flags.print(cmd.OutOrStdout(), out)
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check every pattern and relationship",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withFramework(cmd, func(fw *p3if.Framework) error {
				report := fw.Store().ValidateFramework()
				if err := flags.print(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				if !report.Valid {
					return fmt.Errorf("framework has %d validation errors", len(report.Errors))
				}
				return nil
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "similarity [dimension]",
		Short: "Show the similarity matrix of one dimension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := model.ParseDimension(args[0])
			if err != nil {
				return err
			}
			return flags.withFramework(cmd, func(fw *p3if.Framework) error {
				m, err := fw.Analytics().SimilarityMatrix(d)
				if err != nil {
					return err
				}
				return flags.print(cmd.OutOrStdout(), m)
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "domains",
		Short: "Show domain similarity and cross-domain relationships",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withFramework(cmd, func(fw *p3if.Framework) error {
				out := struct {
					Similarity  any `json:"similarity" yaml:"similarity"`
					CrossDomain any `json:"cross_domain" yaml:"cross_domain"`
				}{fw.Analytics().DomainSimilarity(), fw.Analytics().CrossDomain()}
				return flags.print(cmd.OutOrStdout(), out)
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "hot-swap [old] [new]",
		Short: "Move every relationship's old dimension slot into the new one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldDim, err := model.ParseDimension(args[0])
			if err != nil {
				return err
			}
			newDim, err := model.ParseDimension(args[1])
			if err != nil {
				return err
			}
			return flags.withFramework(cmd, func(fw *p3if.Framework) error {
				n, err := fw.Store().HotSwapDimension(oldDim, newDim)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "moved %s to %s in %d relationships\n", oldDim, newDim, n)
				return nil
			})
		},
	})

	return rootCmd
}

// withFramework opens the configured framework, preloads --input, runs fn
// and closes the framework.
func (f *globalFlags) withFramework(cmd *cobra.Command, fn func(fw *p3if.Framework) error) error {
	if f.output != "yaml" && f.output != "json" {
		return fmt.Errorf("unknown output format: %q", f.output)
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.quiet {
		cfg.Logging.Level = "error"
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	fw, err := p3if.Open(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer fw.Close()

	if f.inputPath != "" {
		res, err := fw.Store().ImportFile(f.inputPath)
		if err != nil {
			return fmt.Errorf("loading %s: %w", f.inputPath, err)
		}
		logger.Info("preloaded document",
			zap.String("path", f.inputPath),
			zap.Int("patterns", res.Patterns.Successful),
			zap.Int("relationships", res.Relationships.Successful),
			zap.Int("rejected", res.Patterns.Failed+res.Relationships.Failed))
	}

	return fn(fw)
}

func (f *globalFlags) print(w io.Writer, v any) error {
	if f.output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
