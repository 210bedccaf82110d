package pack

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"spritec/css"
	"spritec/source"
	"spritec/sprite"
	"spritec/state"
)

// Audit lists images from instruction sources which no stylesheet rule
// references - they would never make it into a sprite. Nothing is written,
// results go to stdout.
func Audit(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("audit")

	path := cmd.Args().Get(0)
	if len(path) == 0 {
		return errors.New("no instruction file has been specified")
	}

	instructions, err := LoadInstructions(path)
	if err != nil {
		return err
	}
	instructions, err = SelectInstructions(instructions, cmd.StringSlice("name"))
	if err != nil {
		return err
	}

	var errs error
	for _, in := range instructions {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		if err := auditOne(in, env, log); err != nil {
			log.Error("Unable to audit instruction", zap.String("name", in.Name), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", in.Name, err))
		}
	}
	return errs
}

func auditOne(in Instruction, env *state.LocalEnv, log *zap.Logger) error {
	resolved, err := source.Resolve(in.Img, env.CodePage, log)
	if err != nil {
		return err
	}
	defer resolved.Cleanup()

	data, err := os.ReadFile(in.CSS)
	if err != nil {
		return fmt.Errorf("unable to read stylesheet: %w", err)
	}

	sheet, err := css.NewParser(log).Parse(data, in.CSS)
	if err != nil {
		return err
	}

	unused, err := sprite.Unreferenced(sheet, filepath.Dir(in.CSS), resolved.Dir, log)
	if err != nil {
		return err
	}

	if len(unused) == 0 {
		fmt.Printf("%s: all images are referenced\n", in.Name)
		return nil
	}

	sort.Sort(natural.StringSlice(unused))
	for _, name := range unused {
		fmt.Printf("%s: %s\n", in.Name, name)
	}
	return nil
}
