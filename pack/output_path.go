package pack

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"spritec/config"
	"spritec/state"
)

const (
	spriteExt     = ".png"
	siblingSuffix = ".sprite.css"
)

// buildSpritePath returns output path/name for the sprite image. Explicit
// path from the instruction wins, then user-defined name template, then the
// default naming scheme - sprite image next to the stylesheet. Cleans up the
// path and if requested transliterates it.
func buildSpritePath(in Instruction, env *state.LocalEnv) string {
	if len(in.Sprite) != 0 {
		return in.Sprite
	}

	outDir := filepath.Dir(in.CSS)
	defaultFile := buildDefaultFileName(in, env)

	if env.Cfg.Sprite.OutputNameTemplate == "" {
		return filepath.Join(outDir, defaultFile)
	}

	expandedName := expandOutputNameTemplate(in, env)
	if expandedName == "" {
		// fallback to default name if template expansion failed
		return filepath.Join(outDir, defaultFile)
	}

	return assemblePathWithSubdirs(outDir, expandedName, env)
}

// buildCSSOutPath returns output path for the rewritten stylesheet. Empty
// result means the stylesheet is rewritten in place.
func buildCSSOutPath(in Instruction, env *state.LocalEnv) string {
	if env.Cfg.Sprite.CSSOutput == config.CSSOutputOverwrite {
		return ""
	}
	base := strings.TrimSuffix(filepath.Base(in.CSS), filepath.Ext(in.CSS))
	return filepath.Join(filepath.Dir(in.CSS), base+siblingSuffix)
}

func buildDefaultFileName(in Instruction, env *state.LocalEnv) string {
	baseName := in.Name
	if env.Cfg.Sprite.NameTransliterate {
		baseName = slug.Make(baseName)
	}
	return config.CleanFileName(baseName) + spriteExt
}

func expandOutputNameTemplate(in Instruction, env *state.LocalEnv) string {
	expandedName, err := expandTemplate(config.OutputNameTemplateFieldName, env.Cfg.Sprite.OutputNameTemplate, in)
	if err != nil {
		env.Log.Warn("Unable to prepare sprite filename", zap.Error(err))
		return ""
	}
	return filepath.FromSlash(expandedName)
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// path separators for subdirectories) and assembles it into a full output path,
// cleaning and transliterating segments as needed
func assemblePathWithSubdirs(outDir, expandedName string, env *state.LocalEnv) string {
	pathSegments := splitAndCleanPath(expandedName)

	if len(pathSegments) == 0 {
		return outDir
	}

	fileName := cleanPathSegment(pathSegments[len(pathSegments)-1], env) + spriteExt
	dirParts := make([]string, 0, len(pathSegments)+1)
	dirParts = append(dirParts, outDir)

	for _, segment := range pathSegments[:len(pathSegments)-1] {
		dirParts = append(dirParts, cleanPathSegment(segment, env))
	}

	dirParts = append(dirParts, fileName)
	return filepath.Join(dirParts...)
}

func splitAndCleanPath(path string) []string {
	path = strings.TrimSuffix(path, string(os.PathSeparator))
	segments := make([]string, 0, 8)

	for head, tail := filepath.Split(path); tail != ""; head, tail = filepath.Split(head) {
		segments = slices.Insert(segments, 0, tail)
		head = strings.TrimSuffix(head, string(os.PathSeparator))
		if head == "" {
			break
		}
		path = head
	}

	return segments
}

func cleanPathSegment(segment string, env *state.LocalEnv) string {
	if env.Cfg.Sprite.NameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
