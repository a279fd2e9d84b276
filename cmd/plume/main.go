package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/plumekit/plume"
)

type renderFlags struct {
	dataFile     string
	templatesDir string
	outputFile   string
	leftDelim    string
	rightDelim   string
	strict       bool
	noEscape     bool
	noCache      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "plume: %s\n", err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "plume",
		Short:         "plume renders templates",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.AddCommand(newRenderCmd())
	return cmd
}

func newRenderCmd() *cobra.Command {
	flags := renderFlags{}
	cmd := &cobra.Command{
		Use:   "render TEMPLATE",
		Short: "Render a template file against a YAML or JSON data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(args[0], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.dataFile, "data", "d", "", "YAML or JSON file with template context values")
	cmd.Flags().StringVarP(&flags.templatesDir, "templates", "t", "", "Directory for resolving include and extends names (default: template's directory)")
	cmd.Flags().StringVarP(&flags.outputFile, "output", "o", "", "Write output to file instead of stdout")
	cmd.Flags().StringVar(&flags.leftDelim, "left-delim", "{{", "Left variable delimiter")
	cmd.Flags().StringVar(&flags.rightDelim, "right-delim", "}}", "Right variable delimiter")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "Fail on undefined variables and unknown filters")
	cmd.Flags().BoolVar(&flags.noEscape, "no-escape", false, "Disable HTML auto-escaping")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Disable the compiled-template cache")
	return cmd
}

func runRender(templatePath string, flags renderFlags) error {
	source, err := os.ReadFile(templatePath)
	if err != nil {
		return err
	}

	context, err := loadContext(flags.dataFile)
	if err != nil {
		return err
	}

	templatesDir := flags.templatesDir
	if templatesDir == "" {
		templatesDir = filepath.Dir(templatePath)
	}

	opts := []plume.Option{
		plume.WithDelims(flags.leftDelim, flags.rightDelim),
		plume.WithStrict(flags.strict),
		plume.WithAutoEscape(!flags.noEscape),
		plume.WithLoader(&plume.DirLoader{Root: templatesDir}),
	}
	if flags.noCache {
		opts = append(opts, plume.WithoutCache())
	}

	result, err := plume.New(opts...).Render(string(source), context)
	if err != nil {
		return err
	}

	if flags.outputFile != "" {
		return os.WriteFile(flags.outputFile, []byte(result), 0600)
	}
	_, err = os.Stdout.WriteString(result)
	return err
}

// loadContext reads the data file as YAML, which also covers JSON input.
func loadContext(path string) (map[string]interface{}, error) {
	if path == "" {
		return map[string]interface{}{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var context map[string]interface{}
	if err := yaml.Unmarshal(raw, &context); err != nil {
		return nil, fmt.Errorf("parse data file %s: %w", path, err)
	}
	return context, nil
}
