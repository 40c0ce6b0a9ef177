package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kilnhq/kiln/internal/engine"
	"github.com/kilnhq/kiln/internal/stream"
)

// Represents the 'kiln run' command.
type RunCmd struct {
	Recipe         string   `arg:"" help:"Recipe name to execute."`
	Props          []string `arg:"" optional:"" name:"prop" help:"key=value input properties; values parse as JSON, falling back to strings."`
	PropertiesFile string   `help:"JSON file holding the input property tree." placeholder:"PATH"`
	Output         string   `help:"Presentation protocol on stdout." enum:"annotations,json,none" default:"annotations"`
}

// Executes the run command.
func (c *RunCmd) Run(ctx context.Context) error {
	props, err := c.properties()
	if err != nil {
		return err
	}

	var sink stream.Sink
	switch c.Output {
	case "annotations":
		sink = stream.NewAnnotator(os.Stdout)
	case "json":
		sink = stream.NewStructured(os.Stdout)
	default:
		sink = stream.Discard{}
	}

	result, err := engine.Run(ctx, engine.Options{
		Recipe:     c.Recipe,
		Properties: props,
		Sink:       sink,
	})
	for _, w := range result.Warnings {
		slog.Warn("deprecation", "warning", w.Name, "declarer", w.Declarer, "caller", w.Caller)
	}
	if err != nil {
		return fmt.Errorf("recipe %s: %s: %w", c.Recipe, result.Status, err)
	}
	slog.Info("recipe succeeded", "recipe", c.Recipe)
	return nil
}

// Builds the input property tree from the file and the k=v arguments.
//
// File values load first; command-line pairs override them key by key.
func (c *RunCmd) properties() (map[string]any, error) {
	props := make(map[string]any)

	if c.PropertiesFile != "" {
		data, err := os.ReadFile(c.PropertiesFile)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &props); err != nil {
			return nil, fmt.Errorf("properties file %s: %w", c.PropertiesFile, err)
		}
	}

	for _, pair := range c.Props {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("bad property %q, want key=value", pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		props[key] = value
	}
	return props, nil
}
