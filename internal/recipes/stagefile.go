package recipes

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kilnhq/kiln/internal/modules"
	"github.com/kilnhq/kiln/internal/resolver"
	"github.com/kilnhq/kiln/internal/simulation"
	"github.com/kilnhq/kiln/internal/step"
)

// Stages a source file into a scratch dir, checksums it through stdin,
// and reports the digest on the step.
func init() {
	resolver.MustRegisterRecipe(&resolver.RecipeSpec{
		Repo: "kiln",
		Name: "stage_file",
		Deps: resolver.Use("kiln/step", "kiln/path", "kiln/file", "kiln/raw",
			"kiln/platform", "kiln/properties"),
		Run: func(ctx context.Context, rc *resolver.RecipeRun) error {
			api := modules.StepFrom(rc.Deps)
			path := modules.PathFrom(rc.Deps)
			file := modules.FileFrom(rc.Deps)
			raw := modules.RawFrom(rc.Deps)
			plat := modules.PlatformFrom(rc.Deps)
			props := modules.PropertiesFrom(rc.Deps)

			start, err := path.Start()
			if err != nil {
				return err
			}
			src := filepath.Join(start, "input.txt")
			if v, ok := props.Get("source"); ok {
				if s, ok := v.(string); ok && s != "" {
					src = s
				}
			}
			if !file.Exists(src) {
				return fmt.Errorf("source %q does not exist", src)
			}

			work, err := path.MkdTemp("stage")
			if err != nil {
				return err
			}
			staged := filepath.Join(work, "payload")
			if err := file.Copy(src, staged); err != nil {
				return err
			}
			content, err := file.ReadText(staged)
			if err != nil {
				return err
			}

			cmd := []any{"sha1sum", "-"}
			if plat.IsWindows() {
				cmd = []any{"certutil", "-hashfile", "-", "SHA1"}
			}
			capture := raw.Stdout()
			data := api.MustRun(ctx, &step.Step{
				Name:   "checksum payload",
				Cmd:    cmd,
				Stdin:  raw.Input(content),
				Stdout: capture,
			})

			sum, err := data.StdoutValue()
			if err != nil {
				return err
			}
			fields := strings.Fields(sum.(string))
			if len(fields) == 0 {
				return fmt.Errorf("empty checksum output")
			}
			pres := data.Presentation
			pres.SetText(fields[0])
			pres.SetProperty("platform", plat.OS()+"/"+plat.Arch())
			return nil
		},
	})

	simulation.Register("stage_file", func() []simulation.Case {
		const digest = "3f786850e387550fdab836ed7e6dc881de23001b"
		return []simulation.Case{{
			Name:  "checksum",
			Files: []string{"/start_dir/input.txt"},
			Steps: map[string]*step.TestData{
				"checksum payload": {Stdout: digest + "  -\n"},
			},
			PostProcess: []simulation.Hook{func(check *simulation.Check, steps *simulation.StepLog) {
				v, ok := steps.Get("checksum payload")
				if !check.That(ok, "checksum step must run", "steps", steps.Names()) {
					return
				}
				check.That(v.Text == digest, "digest on step text", "text", v.Text)
				check.That(v.Properties["platform"] == "linux/amd64", "platform property", "properties", v.Properties)
			}},
		}}
	})
}
