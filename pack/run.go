package pack

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"spritec/cache"
	"spritec/source"
	"spritec/sprite"
	"spritec/state"
)

// Run compiles sprites for all (or selected) instructions from the
// instruction file. Instructions are independent and run concurrently,
// failures are collected and do not stop other compilations.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("pack")

	path := cmd.Args().Get(0)
	if len(path) == 0 {
		return errors.New("no instruction file has been specified")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Mailformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	env.Overwrite = cmd.Bool("overwrite")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	cp := cmd.String("force-zip-cp")
	if len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	instructions, err := LoadInstructions(path)
	if err != nil {
		return err
	}
	instructions, err = SelectInstructions(instructions, cmd.StringSlice("name"))
	if err != nil {
		return err
	}

	var buildCache *cache.Cache
	if env.Cfg.Cache.Enable {
		if buildCache, err = cache.Open(env.Cfg.Cache.Path, log); err != nil {
			log.Warn("Unable to open build cache, rebuilding everything", zap.Error(err))
			buildCache = nil
		}
		defer buildCache.Close()
	}

	jobs := int(cmd.Int("jobs"))
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	log.Info("Processing starting",
		zap.String("instructions", path), zap.Int("count", len(instructions)), zap.Int("jobs", jobs))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, env, instructions, buildCache, jobs, log)
}

// process fans instructions out over a bounded set of workers. The build
// cache connection is not concurrency-safe so access is serialized.
func process(ctx context.Context, env *state.LocalEnv, instructions []Instruction, buildCache *cache.Cache, jobs int, log *zap.Logger) error {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		cacheMu sync.Mutex
		errs    error
	)

	queue := make(chan Instruction)

	for range min(jobs, len(instructions)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for in := range queue {
				if err := compileOne(ctx, env, in, buildCache, &cacheMu, log); err != nil {
					log.Error("Unable to compile sprite", zap.String("name", in.Name), zap.Error(err))
					mu.Lock()
					errs = multierr.Append(errs, fmt.Errorf("%s: %w", in.Name, err))
					mu.Unlock()
				}
			}
		}()
	}

feed:
	for _, in := range instructions {
		select {
		case <-ctx.Done():
			break feed
		case queue <- in:
		}
	}
	close(queue)
	wg.Wait()

	if err := context.Cause(ctx); err != nil && !errors.Is(err, context.Canceled) {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// compileOne runs a single instruction end to end: materialize the image
// source, consult the cache, compile and record results.
func compileOne(ctx context.Context, env *state.LocalEnv, in Instruction, buildCache *cache.Cache, cacheMu *sync.Mutex, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	log = log.Named(in.Name)

	resolved, err := source.Resolve(in.Img, env.CodePage, log)
	if err != nil {
		return err
	}
	defer resolved.Cleanup()

	spritePath := buildSpritePath(in, env)
	cssOut := buildCSSOutPath(in, env)

	for _, out := range []string{spritePath, cssOut} {
		if len(out) == 0 {
			continue
		}
		if _, err := os.Stat(out); err == nil {
			if !env.Overwrite {
				return fmt.Errorf("output file already exists: %s", out)
			}
			log.Warn("Overwriting existing file", zap.String("file", out))
		} else if !os.IsNotExist(err) {
			return err
		}
	}

	cssData, err := os.ReadFile(in.CSS)
	if err != nil {
		return fmt.Errorf("unable to read stylesheet: %w", err)
	}

	// In-place rewrite changes the cache input itself, skip caching there.
	var fingerprint string
	if buildCache != nil && len(cssOut) != 0 {
		options := fmt.Sprintf("pad=%d;max=%d;sprite=%s;css=%s",
			env.Cfg.Sprite.Padding, env.Cfg.Sprite.MaxCanvasWidth, spritePath, cssOut)
		if fingerprint, err = cache.Fingerprint(cssData, resolved.Dir, options); err != nil {
			log.Warn("Unable to fingerprint compilation, rebuilding", zap.Error(err))
			fingerprint = ""
		}
		if len(fingerprint) != 0 {
			cacheMu.Lock()
			hit := buildCache.UpToDate(in.CSS, fingerprint, spritePath, cssOut)
			cacheMu.Unlock()
			if hit {
				log.Info("Artifacts are up to date, skipping",
					zap.String("sprite", spritePath), zap.String("stylesheet", cssOut))
				return nil
			}
		}
	}

	err = sprite.Process(ctx, log, sprite.Job{
		CSSPath:    in.CSS,
		ImageDir:   resolved.Dir,
		SpritePath: spritePath,
		CSSOutPath: cssOut,
	}, sprite.Options{
		Padding:        env.Cfg.Sprite.Padding,
		MaxCanvasWidth: env.Cfg.Sprite.MaxCanvasWidth,
		Workers:        env.Cfg.Sprite.Workers,
	})
	if err != nil {
		return err
	}

	if len(fingerprint) != 0 {
		cacheMu.Lock()
		err = buildCache.Store(in.CSS, fingerprint)
		cacheMu.Unlock()
		if err != nil {
			log.Warn("Unable to record compilation in build cache", zap.Error(err))
		}
	}

	// Store compilation results for debugging
	if env.Rpt != nil {
		env.Rpt.Store(fmt.Sprintf("result-%s%s", in.Name, filepath.Ext(spritePath)), spritePath)
		if len(cssOut) != 0 {
			env.Rpt.Store(fmt.Sprintf("result-%s.css", in.Name), cssOut)
		}
	}
	return nil
}
